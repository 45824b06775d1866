package httputil

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
)

// TokenVerifier is satisfied by *auth.Client.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

type userIDKey struct{}

const bearerPrefix = "Bearer "

// BearerToken extracts the token from an "Authorization: Bearer ..." header.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", Unauthorized("Authorization header is required")
	}
	if !strings.HasPrefix(header, bearerPrefix) || len(header) == len(bearerPrefix) {
		return "", Unauthorized("Invalid Authorization header format")
	}
	return header[len(bearerPrefix):], nil
}

// VerifyRequest returns the Firebase UID of the caller.
func VerifyRequest(ctx context.Context, v TokenVerifier, r *http.Request) (string, error) {
	idToken, err := BearerToken(r)
	if err != nil {
		return "", err
	}
	token, err := v.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", NewError(http.StatusUnauthorized, "Unauthorized", err)
	}
	if token.UID == "" {
		return "", Unauthorized("Unauthorized")
	}
	return token.UID, nil
}

// RequireAuth rejects requests without a valid Firebase ID token and stores
// the caller's UID for UserID.
func RequireAuth(v TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uid, err := VerifyRequest(r.Context(), v, r)
			if err != nil {
				WriteError(w, logger, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), uid)))
		})
	}
}

func WithUserID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, userIDKey{}, uid)
}

// UserID returns the UID stored by RequireAuth.
func UserID(ctx context.Context) string {
	uid, _ := ctx.Value(userIDKey{}).(string)
	return uid
}
