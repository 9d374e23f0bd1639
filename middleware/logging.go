package middleware

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

type responseWriter struct {
	http.ResponseWriter
	body   *bytes.Buffer
	status int
	size   int
}

func (rw *responseWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.status >= http.StatusBadRequest {
		rw.body.Write(b)
	}

	size, err := rw.ResponseWriter.Write(b)
	rw.size += size
	return size, err
}

// Hijack нужен для апгрейда до WebSocket.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("underlying response writer does not support hijacking")
	}
	rw.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// RequestLogger logs one line per request; error responses are logged with their body.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				status:         http.StatusOK,
				body:           &bytes.Buffer{},
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start)

			logMsg := fmt.Sprintf(
				"%s %s - %d %dB in %s",
				r.Method,
				r.URL.Path, // без query: там может быть access_token
				rw.status,
				rw.size,
				duration.String(),
			)
			attrs := []any{slog.String("request_id", chiMiddleware.GetReqID(r.Context()))}

			if rw.status >= http.StatusBadRequest {
				logger.ErrorContext(r.Context(), logMsg, append(attrs, slog.String("response_body", rw.body.String()))...)
			} else {
				logger.InfoContext(r.Context(), logMsg, attrs...)
			}
		})
	}
}
