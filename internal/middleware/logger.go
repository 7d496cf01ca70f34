package middleware

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"time"

	"WardMonitorAPI/internal/logger"
)

type statusWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.statusCode = code
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	n, err := sw.ResponseWriter.Write(b)
	sw.bytesWritten += n
	return n, err
}

// Hijack exposes the underlying connection so websocket upgrades still
// work behind the logging wrapper.
func (sw *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := sw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("underlying ResponseWriter does not support hijacking")
	}
	return hj.Hijack()
}

func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			sw := &statusWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(sw, r)

			log.Info("%s %s %d %dms %d bytes",
				r.Method,
				r.URL.Path,
				sw.statusCode,
				time.Since(start).Milliseconds(),
				sw.bytesWritten,
			)
		})
	}
}
