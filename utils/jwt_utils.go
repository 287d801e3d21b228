package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenClaims is the subset of session-token claims the storefront
// relies on. Role is a hint only: the session manager re-derives
// admin status from the authoritative check on every session change.
type TokenClaims struct {
	UserID   string
	Email    string
	FullName string
	Role     string
}

func GenerateToken(secret, userID, email, fullName, role string) (string, error) {
	claims := jwt.MapClaims{
		"user_id":   userID,
		"email":     email,
		"full_name": fullName,
		"role":      role,
		"exp":       time.Now().Add(7 * 24 * time.Hour).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

func ParseToken(secret, tokenString string) (TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return TokenClaims{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return TokenClaims{}, ErrInvalidToken
	}
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return TokenClaims{}, ErrInvalidToken
	}
	email, _ := claims["email"].(string)
	fullName, _ := claims["full_name"].(string)
	role, _ := claims["role"].(string)
	return TokenClaims{UserID: userID, Email: email, FullName: fullName, Role: role}, nil
}
