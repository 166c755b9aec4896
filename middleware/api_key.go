package middleware

import (
	"context"
	"net/http"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

const APIKeyHeader = "X-Api-Key"

// ServiceAuth принимает либо X-Api-Key (сверяется с bcrypt-хэшем), либо Bearer-токен.
// Пустой keyHash отключает вход по ключу.
func ServiceAuth(secret, keyHash string) func(http.Handler) http.Handler {
	bearer := Authenticate(secret)
	return func(next http.Handler) http.Handler {
		viaToken := bearer(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(APIKeyHeader)
			if key == "" {
				viaToken.ServeHTTP(w, r)
				return
			}
			if keyHash == "" || bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)) != nil {
				writeAuthError(w, http.StatusUnauthorized, "invalid api key")
				return
			}
			claims := jwt.MapClaims{"role": RoleService, "user_id": "api-key"}
			ctx := context.WithValue(r.Context(), userContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// HashAPIKey is used by operators to produce INGEST_API_KEY_HASH.
func HashAPIKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
