package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/matheus3301/lexchat/internal/store"
	"go.uber.org/zap"
)

// Options configures the development chat backend.
type Options struct {
	JWTSecret      string
	TokenTTL       time.Duration
	AllowedOrigins []string
	// News serves /api/news. Nil answers 503.
	News http.Handler
}

// Server is the HTTP chat backend the terminal client talks to during
// development. It serves the same routes as the production backend.
type Server struct {
	db     *store.DB
	secret string
	ttl    time.Duration
	opts   Options
	logger *zap.Logger
	router chi.Router
}

// New builds the router over db.
func New(db *store.DB, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 7 * 24 * time.Hour
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	s := &Server{
		db:     db,
		secret: opts.JWTSecret,
		ttl:    opts.TokenTTL,
		opts:   opts,
		logger: logger,
	}
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(s.recoverJSON)
	r.Use(s.requestLog)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", chimw.RequestIDHeader},
		ExposedHeaders:   []string{chimw.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Post("/auth/register", s.register)
	r.Post("/auth/login", s.login)
	r.Get("/api/news", s.news)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/users/search", s.searchUsers)

		r.Get("/conversations", s.listConversations)
		r.Post("/conversations", s.createConversation)
		r.Post("/conversations/direct", s.findOrCreateDirect)
		r.Get("/conversations/{id}/messages", s.listMessages)
		r.Post("/conversations/{id}/messages", s.sendMessage)
		r.Post("/conversations/{id}/read", s.markRead)
		r.Post("/conversations/{id}/participants", s.addParticipant)
		r.Get("/chats/conversations/{id}/participants", s.listParticipants)
	})
	return r
}

func (s *Server) news(w http.ResponseWriter, r *http.Request) {
	if s.opts.News == nil {
		s.writeError(w, http.StatusServiceUnavailable, "news upstream not configured")
		return
	}
	s.opts.News.ServeHTTP(w, r)
}

// internalError logs err and answers a generic 500.
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.logger.Error(op+" failed",
		zap.String("request_id", chimw.GetReqID(r.Context())),
		zap.Error(err))
	s.writeError(w, http.StatusInternalServerError, "internal server error")
}
