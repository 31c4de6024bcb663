package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/barberbook/libs/auth"
	"github.com/md-rashed-zaman/barberbook/services/stub-api/internal/storage"
)

type ctxKeyUserID struct{}

func userID(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyUserID{}).(string)
	return v
}

func (h *Handler) issueToken(user storage.User) (string, error) {
	now := h.now()
	return auth.SignHS256(auth.Claims{
		Sub:   user.ID,
		Email: user.Email,
		Iat:   now.Unix(),
		Exp:   now.Add(h.tokenTTL).Unix(),
	}, h.secret)
}

// requireAuth rejects requests without a valid bearer token and puts the
// caller's user id in the request context.
func (h *Handler) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if !strings.HasPrefix(authHeader, "Bearer ") || token == "" {
			writeError(w, http.StatusUnauthorized, "JWT token is missing")
			return
		}
		claims, err := auth.ParseAndVerifyHS256(token, h.secret)
		if err != nil || claims.Sub == "" {
			writeError(w, http.StatusUnauthorized, "Invalid JWT token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyUserID{}, claims.Sub)))
	})
}
