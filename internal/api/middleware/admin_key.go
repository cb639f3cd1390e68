package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/smartirrigation/smartirrigation/internal/api/models"
)

// AdminKeyHeader carries the operator key for the admin API.
const AdminKeyHeader = "X-Admin-Key"

// AdminKey admits requests presenting key in X-Admin-Key or as a Bearer token.
// Keys are compared in constant time.
func AdminKey(key string) func(http.Handler) http.Handler {
	want := sha256.Sum256([]byte(key))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(AdminKeyHeader)
			if got == "" {
				if auth := r.Header.Get("Authorization"); len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
					got = auth[7:]
				}
			}

			sum := sha256.Sum256([]byte(got))
			if key == "" || got == "" || subtle.ConstantTimeCompare(sum[:], want[:]) != 1 {
				problem := models.NewProblem(models.ProblemTypeUnauthorized, GetRequestID(r.Context()), "a valid admin key is required")
				problem.Instance = r.URL.Path
				w.Header().Set("WWW-Authenticate", `Bearer realm="admin"`)
				problem.Write(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
