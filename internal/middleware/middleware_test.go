package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/bekicr/universal-clinic/internal/models"
	"github.com/bekicr/universal-clinic/internal/storage/memory"
	"github.com/bekicr/universal-clinic/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type authFixture struct {
	router *gin.Engine
	tokens *utils.TokenManager
	store  *memory.Store
}

func newAuthFixture(t *testing.T) authFixture {
	t.Helper()
	tokens, err := utils.NewTokenManager("middleware-secret", "clinic-api", time.Hour)
	require.NoError(t, err)
	store := memory.New()

	r := gin.New()
	r.Use(RequestID(), Recovery(zerolog.Nop()))
	authed := r.Group("/", AuthMiddleware(tokens, store, zerolog.Nop()))
	authed.GET("/me", func(c *gin.Context) {
		user, _ := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"role": user.Role, "id": user.ID.Hex()})
	})
	authed.GET("/admin", RequireRole(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	return authFixture{router: r, tokens: tokens, store: store}
}

func (f authFixture) do(t *testing.T, path, header string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f authFixture) user(t *testing.T, role string) (models.User, string) {
	t.Helper()
	u := &models.User{Name: "U", Email: primitive.NewObjectID().Hex() + "@x.com", Role: role}
	require.NoError(t, f.store.CreateUser(context.Background(), u))
	token, err := f.tokens.Generate(u.ID)
	require.NoError(t, err)
	return *u, token
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	f := newAuthFixture(t)

	rec := f.do(t, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authorization token missing", errorBody(t, rec))

	rec = f.do(t, "/me", "Token abc")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	f := newAuthFixture(t)

	rec := f.do(t, "/me", "Bearer not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid or expired token", errorBody(t, rec))
}

func TestAuthMiddleware_DeletedUser(t *testing.T) {
	f := newAuthFixture(t)
	u, token := f.user(t, models.RolePatient)
	require.NoError(t, f.store.DeleteUser(context.Background(), u.ID))

	rec := f.do(t, "/me", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "User not found", errorBody(t, rec))
}

func TestAuthMiddleware_RoleComesFromStore(t *testing.T) {
	f := newAuthFixture(t)
	u, token := f.user(t, models.RolePatient)

	rec := f.do(t, "/admin", "Bearer "+token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Forbidden: insufficient role", errorBody(t, rec))

	// Promote in the store; the same token now carries admin rights.
	promoted := u
	promoted.Role = models.RoleAdmin
	require.NoError(t, f.store.DeleteUser(context.Background(), u.ID))
	require.NoError(t, f.store.CreateUser(context.Background(), &promoted))

	rec = f.do(t, "/admin", "Bearer "+token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAuthMiddleware_AttachesUser(t *testing.T) {
	f := newAuthFixture(t)
	u, token := f.user(t, models.RoleDoctor)

	rec := f.do(t, "/me", "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"role":"DOCTOR","id":"`+u.ID.Hex()+`"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestRequireRole_NoUser(t *testing.T) {
	r := gin.New()
	r.GET("/x", RequireRole(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRecovery(t *testing.T) {
	f := newAuthFixture(t)

	rec := f.do(t, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", errorBody(t, rec))
}

func TestRequestID_ReusesClientValue(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(requestIDKey)) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Body.String())
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}
