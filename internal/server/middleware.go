package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/matheus3301/lexchat/internal/auth"
	"go.uber.org/zap"
)

type contextKey string

const userIDKey contextKey = "user_id"

// UserID returns the authenticated user id set by the auth middleware.
func UserID(ctx context.Context) int64 {
	v, _ := ctx.Value(userIDKey).(int64)
	return v
}

// responseWriter records whether and with what status a response was written.
type responseWriter struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (w *responseWriter) WriteHeader(code int) {
	if w.wrote {
		return
	}
	w.status = code
	w.wrote = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wrote {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// recoverJSON logs a handler panic and answers 500 JSON if nothing was sent yet.
func (s *Server) recoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrap := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered",
					zap.Any("panic", err),
					zap.String("path", r.URL.Path),
					zap.String("request_id", chimw.GetReqID(r.Context())))
				if !wrap.wrote {
					s.writeError(wrap, http.StatusInternalServerError, "internal server error")
				}
			}
		}()
		next.ServeHTTP(wrap, r)
	})
}

// requestLog logs method, path, status and duration of every request.
func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrap := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrap, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", wrap.status),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", chimw.GetReqID(r.Context())))
	})
}

// requireAuth validates the bearer token and stores its user id in the context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			s.writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := auth.ParseToken(token, s.secret)
		if err != nil {
			s.writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// actingAs rejects requests that name a user other than the token holder.
func (s *Server) actingAs(w http.ResponseWriter, r *http.Request, claimed int64) bool {
	if claimed != UserID(r.Context()) {
		s.writeError(w, http.StatusForbidden, "token does not belong to the requested user")
		return false
	}
	return true
}
