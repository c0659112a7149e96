package middleware

import (
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/NordCoder/Uptimer/internal/obs"
	"github.com/NordCoder/Uptimer/internal/services/api/httpx"
)

var mRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "api_requests_total", Help: "HTTP API requests",
}, []string{"method", "status"})

var mLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "api_request_duration_seconds", Help: "HTTP API latency",
	Buckets: prometheus.DefBuckets,
}, []string{"method"})

// Logging writes one structured line per request, at warn for 4xx and error for 5xx.
func Logging(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			dur := time.Since(start)
			mRequests.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
			mLatency.WithLabelValues(r.Method).Observe(dur.Seconds())

			level := zapcore.InfoLevel
			switch {
			case status >= 500:
				level = zapcore.ErrorLevel
			case status >= 400:
				level = zapcore.WarnLevel
			}
			obs.WithTrace(r.Context(), log).Check(level, "http request").Write(
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Duration("duration", dur),
				zap.String("request_id", chimw.GetReqID(r.Context())),
			)
		})
	}
}

func Recover(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if p := recover(); p != nil {
					log.Error("panic recovered",
						zap.Any("panic", p),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.ByteString("stack", debug.Stack()),
					)
					httpx.WriteError(w, http.StatusInternalServerError, "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
