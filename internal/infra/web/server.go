package web

import (
	"net/http"
	"strings"

	"corporate-fund-bot/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type Server struct {
	statsUC  usecase.StatsUseCase
	personUC usecase.PersonUseCase
	fundUC   usecase.FundUseCase
	notifUC  usecase.NotificationUseCase
	apiKey   string
	auth     *AuthManager
	log      *zerolog.Logger
}

func NewServer(
	statsUC usecase.StatsUseCase,
	personUC usecase.PersonUseCase,
	fundUC usecase.FundUseCase,
	notifUC usecase.NotificationUseCase,
	apiKey string,
	auth *AuthManager,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		statsUC:  statsUC,
		personUC: personUC,
		fundUC:   fundUC,
		notifUC:  notifUC,
		apiKey:   apiKey,
		auth:     auth,
		log:      logger,
	}
}

// RegisterRoutes sets up the routing for the admin API.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/session", s.sessionHandler)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/stats", statsHandler(s.statsUC))

			r.Get("/people", peopleListHandler(s.personUC))
			r.Post("/people", personCreateHandler(s.personUC))
			r.Get("/people/{personnelNumber}", personGetHandler(s.personUC))
			r.Delete("/people/{personnelNumber}", personDeleteHandler(s.personUC))

			r.Get("/funds", fundsListHandler(s.fundUC))
			r.Get("/funds/{fundID}", fundStatusHandler(s.fundUC))

			r.Post("/notifications/purge", purgeHandler(s.notifUC))
		})
	})
}

// authMiddleware accepts either the static API key as a Bearer token or
// a session minted by /api/v1/session.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			s.log.Error().Msg("Admin API key is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		if authHeader := r.Header.Get("Authorization"); authHeader != "" {
			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) == 2 && strings.ToLower(tokenParts[0]) == "bearer" && tokenParts[1] == s.apiKey {
				next.ServeHTTP(w, r)
				return
			}
		}

		if s.auth != nil {
			if _, err := s.auth.ParseFromRequest(r); err == nil {
				next.ServeHTTP(w, r)
				return
			}
		}

		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	})
}

// sessionHandler exchanges the API key for a short-lived session cookie
// so browser-based admin tooling does not have to store the key.
func (s *Server) sessionHandler(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil || s.apiKey == "" {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	authHeader := r.Header.Get("Authorization")
	tokenParts := strings.Split(authHeader, " ")
	if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" || tokenParts[1] != s.apiKey {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if _, err := s.auth.Mint(w); err != nil {
		s.log.Error().Err(err).Msg("session mint failed")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
