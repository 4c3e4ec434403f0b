package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nutrisha-ai/nutrisha/pkg/usecase"
	"github.com/nutrisha-ai/nutrisha/pkg/utils/logging"
)

// DefaultMaxBodySize bounds JSON request bodies
const DefaultMaxBodySize = 1 << 20

type AuthUseCase = usecase.AuthUseCaseInterface

type Server struct {
	router      *chi.Mux
	uc          *usecase.UseCases
	authUC      AuthUseCase
	maxBodySize int64
}

type Options func(*Server)

// WithAuth overrides the authenticator taken from the use cases
func WithAuth(authUC AuthUseCase) Options {
	return func(s *Server) {
		s.authUC = authUC
	}
}

func WithMaxBodySize(n int64) Options {
	return func(s *Server) {
		s.maxBodySize = n
	}
}

func New(uc *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router:      r,
		uc:          uc,
		authUC:      uc.Auth,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware(s.authUC))

		r.Get("/auth/me", meHandler)

		r.Route("/chat", func(r chi.Router) {
			r.Post("/send", s.sendMessageHandler)
			r.Post("/conversations", s.createConversationHandler)
			r.Get("/conversations", s.listConversationsHandler)
			r.Put("/conversations/{conversationID}/mode", s.updateModeHandler)
			r.Get("/messages/{conversationID}", s.getMessagesHandler)
		})

		r.Route("/memories", func(r chi.Router) {
			r.Post("/search", s.searchMemoriesHandler)
			r.Delete("/", s.purgeMemoriesHandler)
			r.Delete("/{memoryID}", s.deleteMemoryHandler)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Post("/register-token", s.registerTokenHandler)
			r.Post("/deactivate-device", s.deactivateDeviceHandler)
		})
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		logger := logging.Default().With("request_id", middleware.GetReqID(r.Context()))
		r = r.WithContext(logging.With(r.Context(), logger))

		defer func() {
			logger.Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}
