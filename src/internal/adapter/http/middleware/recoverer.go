package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/api-sage/banking-ledger/src/internal/commons"
	"github.com/api-sage/banking-ledger/src/internal/logger"
)

// Recoverer turns a handler panic into a generic 500 envelope. The panic
// value is only echoed to the caller when exposeDetails is set.
func Recoverer(exposeDetails bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("http handler panic", fmt.Errorf("%v", rec), logger.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
					"stack":  string(debug.Stack()),
				})

				response, _ := commons.Failure[struct{}](commons.InternalError(nil))
				if exposeDetails {
					response.Errors = []string{fmt.Sprint(rec)}
				}
				writeJSON(w, http.StatusInternalServerError, response)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
