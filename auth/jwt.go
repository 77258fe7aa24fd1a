package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrUnauthorized = errors.New("unauthorized")

// Claims du jeton: sub = utilisateur
type Claims struct {
	Admin bool `json:"admin"`
	jwt.RegisteredClaims
}

func GenerateJWT(secret string, username string, isAdmin bool, expirationMinutes int) (string, error) {
	now := time.Now()
	claims := Claims{
		Admin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expirationMinutes) * time.Minute)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ExtractUserAndAdminFromJWT(r *http.Request, secret string) (username string, isAdmin bool, err error) {
	auth := r.Header.Get("Authorization")
	if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
		return "", false, fmt.Errorf("%w: no bearer token", ErrUnauthorized)
	}
	tokenString := strings.TrimPrefix(auth, "Bearer ")
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", false, fmt.Errorf("%w: invalid or expired JWT", ErrUnauthorized)
	}
	if claims.Subject == "" {
		return "", false, fmt.Errorf("%w: invalid JWT claims", ErrUnauthorized)
	}
	return claims.Subject, claims.Admin, nil
}
