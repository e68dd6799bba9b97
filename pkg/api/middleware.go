package api

import (
	"net/http"

	"github.com/Svigo-o/PoCGen/pkg/httputil"
)

// recoverMiddleware converts a panicking handler into a 500 response so a
// single bad request can never take the listener down.
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("panic in handler", "path", r.URL.Path, "panic", rec)
				httputil.WriteInternalError(w, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
