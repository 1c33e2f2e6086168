package middleware

import (
	"encoding/json"
	"net/http"
	"slices"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/auth"
	"service-dispatch/internal/logx"
)

// TokenVerifier resolves the Authorization header into an identity.
type TokenVerifier interface {
	Verify(token string) (auth.Identity, error)
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func reject(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: apperr.Message(err), Code: apperr.Code(err)})
}

// Authenticate attaches the bearer identity to the request context or answers 401.
func Authenticate(v TokenVerifier, logger logx.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := v.Verify(r.Header.Get("Authorization"))
			if err != nil {
				logger.Debug("bearer rejected", logx.String("path", r.URL.Path), logx.Err(err))
				reject(w, http.StatusUnauthorized, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole answers 403 unless the authenticated identity has one of roles.
func RequireRole(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.FromContext(r.Context())
			if !ok {
				reject(w, http.StatusUnauthorized, apperr.New(apperr.ErrUnauthorized, "missing token"))
				return
			}
			if !slices.Contains(roles, id.Role) {
				reject(w, http.StatusForbidden, apperr.New(apperr.ErrForbidden, "role "+string(id.Role)+" not allowed"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// InternalSecret guards service-to-service routes with a shared bearer secret.
func InternalSecret(secret string, logger logx.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.SecretMatches(r.Header.Get("Authorization"), secret) {
				logger.Warn("internal call rejected", logx.String("path", r.URL.Path))
				reject(w, http.StatusUnauthorized, apperr.New(apperr.ErrUnauthorized, "invalid internal secret"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
