package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/josh-kwaku/wallet-transfer/internal/handler"
	"github.com/josh-kwaku/wallet-transfer/internal/logging"
)

type headerTracker struct {
	http.ResponseWriter
	wroteHeader bool
}

func (t *headerTracker) WriteHeader(code int) {
	t.wroteHeader = true
	t.ResponseWriter.WriteHeader(code)
}

func (t *headerTracker) Write(b []byte) (int, error) {
	t.wroteHeader = true
	return t.ResponseWriter.Write(b)
}

// Recovery turns a handler panic into a 500. http.ErrAbortHandler is passed
// on to net/http, and nothing is written once the response has started.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tw := &headerTracker{ResponseWriter: w}
		defer func() {
			p := recover()
			if p == nil {
				return
			}
			if err, ok := p.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(p)
			}

			logging.FromContext(r.Context()).Error("panic recovered",
				"panic", p,
				"method", r.Method,
				"path", r.URL.Path,
				"response_started", tw.wroteHeader,
				"stack", string(debug.Stack()),
			)
			if !tw.wroteHeader {
				handler.RespondAppError(w, handler.ErrInternalError, nil)
			}
		}()
		next.ServeHTTP(tw, r)
	})
}
