package httpapi

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/jonwraymond/landmarks/observe"
)

// requestContext copies chi's request id into the observe context so
// every log line of the request carries it.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := chimiddleware.GetReqID(r.Context()); id != "" {
			r = r.WithContext(observe.WithRequestID(r.Context(), id))
			w.Header().Set(chimiddleware.RequestIDHeader, id)
		}
		next.ServeHTTP(w, r)
	})
}

// AccessLog logs one line per request.
func AccessLog(logger observe.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []observe.Field{
				observe.F("method", r.Method),
				observe.F("path", r.URL.Path),
				observe.F("status", status),
				observe.F("bytes", ww.BytesWritten()),
				observe.F("duration_ms", float64(time.Since(start).Microseconds())/1000),
				observe.F("remote_addr", r.RemoteAddr),
			}
			if status >= http.StatusInternalServerError {
				logger.Warn(r.Context(), "http request", fields...)
				return
			}
			logger.Info(r.Context(), "http request", fields...)
		})
	}
}
