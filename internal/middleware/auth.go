package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"WardMonitorAPI/internal/logger"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const (
	// ContextKeyUsername carries the authenticated username through the
	// request context.
	ContextKeyUsername contextKey = "username"
	ContextKeyRole     contextKey = "role"
)

// JWTAuth validates the Bearer token on every request that passes
// through it. Handlers mounted outside the protected subrouter (login,
// health, websocket upgrades) never see this middleware.
func JWTAuth(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				unauthorized(w, "Missing Authorization header")
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				unauthorized(w, "Authorization header must be a Bearer token")
				return
			}

			token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				log.Debug("Rejected token on %s %s: %v", r.Method, r.URL.Path, err)
				unauthorized(w, "Invalid or expired token")
				return
			}

			ctx := r.Context()
			if claims, ok := token.Claims.(jwt.MapClaims); ok {
				if sub, ok := claims["sub"].(string); ok {
					ctx = context.WithValue(ctx, ContextKeyUsername, sub)
				}
				if role, ok := claims["role"].(string); ok {
					ctx = context.WithValue(ctx, ContextKeyRole, role)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, `{"error": %q}`, msg)
}
