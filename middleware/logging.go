package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// requestInfo lets handlers deeper in the chain report back to RequestLogger.
type requestInfo struct {
	claims *Claims
}

const requestInfoKey ctxKey = 1

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
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

// RequestLogger logs one line per request and puts a request-scoped logger
// into the context for handlers (zerolog.Ctx).
func RequestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			reqLog := log.With().Str("method", r.Method).Str("path", r.URL.Path).Logger()
			info := &requestInfo{}
			ctx := context.WithValue(reqLog.WithContext(r.Context()), requestInfoKey, info)

			next.ServeHTTP(rec, r.WithContext(ctx))

			if rec.status == 0 {
				rec.status = http.StatusOK
			}
			ev := reqLog.Info()
			if rec.status >= 500 {
				ev = reqLog.Error()
			} else if rec.status >= 400 {
				ev = reqLog.Warn()
			}
			if info.claims != nil {
				ev = ev.Str("user", info.claims.UserID.String()).Str("role", string(info.claims.Role))
			}
			ev.Int("status", rec.status).
				Int("bytes", rec.bytes).
				Str("ip", getClientIP(r)).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}

// CORS allows the dashboard and mobile app origins and answers preflights.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, x-api-key, X-Requested-With")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
