package kit

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// MetricsAuth rejects every request when token is empty.
func MetricsAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if token == "" || !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				WriteError(w, r, http.StatusForbidden, "forbidden", "", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
