package transport

import (
	"log/slog"
	"net/http"
)

// Recovery returns middleware that turns a handler panic into a 500
// response. The server keeps accepting requests afterwards.
func Recovery() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					if v == http.ErrAbortHandler {
						panic(v)
					}
					slog.ErrorContext(r.Context(), "handler panic",
						"panic", v,
						"path", r.URL.Path,
						"request_id", RequestIDFromContext(r.Context()),
					)
					WriteError(w, http.StatusInternalServerError, ErrorTypeServer, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
