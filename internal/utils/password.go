package utils

import "golang.org/x/crypto/bcrypt"

// PasswordCost is the bcrypt work factor for patient, doctor and admin
// accounts. Tests and create-admin hash with the same cost.
const PasswordCost = 10

// HashPassword returns the bcrypt hash stored on models.User.Password.
func HashPassword(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), PasswordCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPasswordHash reports whether plain matches a stored hash. Login treats
// a mismatch and an unknown email the same way.
func CheckPasswordHash(plain, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}
