package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/NordCoder/Uptimer/internal/domain/user"
	"github.com/NordCoder/Uptimer/internal/services/api/httpx"
)

type ctxKey int

const (
	userKey ctxKey = iota + 1
	tokenKey
)

func UserFromCtx(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(userKey).(*user.User)
	return u, ok
}

func TokenFromCtx(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey).(string)
	return t
}

// TokenFromRequest reads the session token from the "token" header or a bearer
// Authorization header.
func TokenFromRequest(r *http.Request) string {
	if t := strings.TrimSpace(r.Header.Get("token")); t != "" {
		return t
	}
	v := r.Header.Get("Authorization")
	if len(v) > 7 && strings.EqualFold(v[:7], "bearer ") {
		return strings.TrimSpace(v[7:])
	}
	return ""
}

// Middleware rejects requests without a valid token and stores the user in the context.
func (h *Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := TokenFromRequest(r)
		if token == "" {
			httpx.WriteError(w, http.StatusUnauthorized, "missing token")
			return
		}
		u, err := h.uc.Authenticate(r.Context(), token)
		if err != nil {
			httpx.Fail(w, h.log, err)
			return
		}
		ctx := context.WithValue(r.Context(), userKey, u)
		ctx = context.WithValue(ctx, tokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
