package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("pw123456")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, PasswordCost, cost)

	assert.True(t, CheckPasswordHash("pw123456", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}

func TestNewTokenManager_RequiresSecret(t *testing.T) {
	_, err := NewTokenManager("", "clinic-api", time.Hour)
	require.Error(t, err)
}

func TestTokenManager_RoundTrip(t *testing.T) {
	tm, err := NewTokenManager("test-secret", "clinic-api", 0)
	require.NoError(t, err)
	assert.Equal(t, SessionTTL, tm.ttl)

	id := primitive.NewObjectID()
	token, err := tm.Generate(id)
	require.NoError(t, err)

	got, err := tm.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestTokenManager_PayloadCarriesOnlySubject(t *testing.T) {
	tm, err := NewTokenManager("test-secret", "clinic-api", time.Hour)
	require.NoError(t, err)

	token, err := tm.Generate(primitive.NewObjectID())
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, claims)
	require.NoError(t, err)
	assert.NotContains(t, claims, "role")
	assert.Contains(t, claims, "sub")
}

func TestTokenManager_Expired(t *testing.T) {
	tm, err := NewTokenManager("test-secret", "clinic-api", time.Hour)
	require.NoError(t, err)

	issued := time.Now().Add(-2 * time.Hour)
	tm.now = func() time.Time { return issued }
	token, err := tm.Generate(primitive.NewObjectID())
	require.NoError(t, err)

	tm.now = time.Now
	_, err = tm.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsForeignSignature(t *testing.T) {
	issuer, err := NewTokenManager("secret-a", "clinic-api", time.Hour)
	require.NoError(t, err)
	verifier, err := NewTokenManager("secret-b", "clinic-api", time.Hour)
	require.NoError(t, err)

	token, err := issuer.Generate(primitive.NewObjectID())
	require.NoError(t, err)

	_, err = verifier.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsNoneAlgorithm(t *testing.T) {
	tm, err := NewTokenManager("test-secret", "clinic-api", time.Hour)
	require.NoError(t, err)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": primitive.NewObjectID().Hex(),
		"iss": "clinic-api",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = tm.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_Garbage(t *testing.T) {
	tm, err := NewTokenManager("test-secret", "clinic-api", time.Hour)
	require.NoError(t, err)

	_, err = tm.Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
