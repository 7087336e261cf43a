package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/api-sage/banking-ledger/src/internal/commons"
	"github.com/api-sage/banking-ledger/src/internal/domain"
	"github.com/api-sage/banking-ledger/src/internal/logger"
	"github.com/api-sage/banking-ledger/src/internal/security"
)

type TokenParser interface {
	Parse(raw string) (security.Principal, error)
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, principal security.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

func PrincipalFrom(ctx context.Context) (security.Principal, bool) {
	principal, ok := ctx.Value(principalKey{}).(security.Principal)
	return principal, ok
}

// BearerAuth rejects requests without a valid "Authorization: Bearer" token
// and stores the parsed principal on the request context.
func BearerAuth(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				logger.Info("bearer auth middleware unauthorized request", logger.Fields{
					"method":      r.Method,
					"path":        r.URL.Path,
					"credentials": "missing",
				})
				unauthorized(w, "Authentication required")
				return
			}

			principal, err := tokens.Parse(raw)
			if err != nil {
				logger.Info("bearer auth middleware unauthorized request", logger.Fields{
					"method":      r.Method,
					"path":        r.URL.Path,
					"credentials": "invalid",
					"reason":      err.Error(),
				})
				unauthorized(w, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireRole lets the request through only when the authenticated caller
// holds one of roles.
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFrom(r.Context())
			if !ok {
				unauthorized(w, "Authentication required")
				return
			}

			for _, role := range roles {
				if principal.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			logger.Info("role middleware forbidden request", logger.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"username": principal.Username,
				"role":     string(principal.Role),
			})
			Forbidden(w)
		})
	}
}

// CanAccessAccount reports whether principal may act on accountID. Admins
// may act on any account, users only on their own.
func CanAccessAccount(principal security.Principal, accountID string) bool {
	if principal.Role == domain.RoleAdmin {
		return true
	}
	return principal.AccountID != "" && strings.EqualFold(strings.TrimSpace(accountID), principal.AccountID)
}

func Forbidden(w http.ResponseWriter) {
	response := commons.ErrorResponse[struct{}]("You are not allowed to perform this action")
	response.Code = commons.KindForbidden
	writeJSON(w, http.StatusForbidden, response)
}

func unauthorized(w http.ResponseWriter, message string) {
	response := commons.ErrorResponse[struct{}](message)
	response.Code = commons.KindUnauthorized
	w.Header().Set("WWW-Authenticate", `Bearer realm="banking-ledger"`)
	writeJSON(w, http.StatusUnauthorized, response)
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
