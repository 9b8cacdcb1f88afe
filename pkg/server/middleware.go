package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-crmpanel/pkg/intl"
	"github.com/goliatone/go-crmpanel/pkg/session"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusRecorder) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func (w *statusRecorder) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

type ctxKey int

const (
	requestIDKey ctxKey = iota
	sessionIDKey
	loggerKey
)

func (s *Server) requestID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(s.cfg.RequestIDHeader)); id != "" {
		return id
	}
	return uuid.NewString()
}

// withRequestLogger tags every request with an id and logs its outcome.
func (s *Server) withRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := s.requestID(r)
		w.Header().Set(s.cfg.RequestIDHeader, id)

		logger := s.logger.WithFields(logrus.Fields{
			"request-id": id,
			"path":       r.URL.Path,
			"method":     r.Method,
		})
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		ctx = context.WithValue(ctx, loggerKey, logger)

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r.WithContext(ctx))

		entry := logger.WithFields(logrus.Fields{
			"status":   rec.Status(),
			"duration": time.Since(start).String(),
		})
		switch {
		case rec.Status() >= http.StatusInternalServerError:
			entry.Error("request completed")
		case rec.Status() >= http.StatusBadRequest:
			entry.Warn("request completed")
		default:
			entry.Info("request completed")
		}
	})
}

// withMetrics records request counts and latency per route template.
func (s *Server) withMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		s.metrics.ObserveRequest(route, r.Method, rec.Status(), time.Since(start))
	})
}

// withLocale negotiates the response locale from Accept-Language.
func (s *Server) withLocale(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		locale := s.cfg.DefaultLocale
		if header := r.Header.Get("Accept-Language"); header != "" {
			locale = s.bundle.Negotiate(header)
		}
		w.Header().Set("Content-Language", locale)
		next.ServeHTTP(w, r.WithContext(intl.WithLocale(r.Context(), locale)))
	})
}

// withSession resolves the session cookie, issuing a new id when it is
// missing or malformed.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := s.cfg.Session.SidCookieKey
		sid := ""
		if cookie, err := r.Cookie(key); err == nil && session.ValidID(cookie.Value) {
			sid = cookie.Value
		}
		if sid == "" {
			sid = session.NewID()
			http.SetCookie(w, &http.Cookie{
				Name:     key,
				Value:    sid,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
				MaxAge:   int(s.cfg.Session.TTL.Seconds()),
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionIDKey, sid)))
	})
}

func sessionID(ctx context.Context) string {
	sid, _ := ctx.Value(sessionIDKey).(string)
	return sid
}

func (s *Server) log(ctx context.Context) logrus.FieldLogger {
	if logger, ok := ctx.Value(loggerKey).(logrus.FieldLogger); ok {
		return logger
	}
	return s.logger
}
