package middleware

import (
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"hrpay/internal/platform/logger"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

// Logger emits one structured entry per request.
func Logger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)

			entry := log.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     recorder.status,
				"durationMs": time.Since(start).Milliseconds(),
				"requestId":  GetRequestID(r.Context()),
				"bytes":      humanize.Bytes(uint64(recorder.bytes)),
			})
			switch {
			case recorder.status >= http.StatusInternalServerError:
				entry.Error("request failed")
			case recorder.status >= http.StatusBadRequest:
				entry.Warn("request rejected")
			default:
				entry.Info("request served")
			}
		})
	}
}
