package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"portfoliocms/internal/auth"
	"portfoliocms/pkg/logger"
	"portfoliocms/pkg/respond"
)

type contextKey string

const AdminKey contextKey = "admin"

// AuthMiddleware requires a valid admin bearer token. Missing and expired
// tokens get 401; any other invalid token gets 403.
func AuthMiddleware(verifier auth.TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			tokenString := ""
			if strings.HasPrefix(authHeader, "Bearer ") {
				tokenString = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			}

			if tokenString == "" {
				respond.Error(w, http.StatusUnauthorized, "Access denied", "No authentication token provided")
				return
			}

			claims, err := verifier.Verify(tokenString)
			if errors.Is(err, auth.ErrExpiredToken) {
				respond.Error(w, http.StatusUnauthorized, "Token expired", "Your session has expired. Please login again.")
				return
			}
			if err != nil {
				logger.Sugar.Warnf("Invalid token: %v", err)
				respond.Error(w, http.StatusForbidden, "Invalid token", "Authentication failed")
				return
			}

			// Add the admin claims to context for the next handler
			ctx := context.WithValue(r.Context(), AdminKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminFromRequest returns the claims stored by AuthMiddleware, or nil.
func AdminFromRequest(r *http.Request) *auth.Claims {
	claims, _ := r.Context().Value(AdminKey).(*auth.Claims)
	return claims
}
