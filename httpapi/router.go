package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter assembles the chi router: the inbound HTTP boundary named in
// the supplemented feature set, wired with CORS and standard chi request
// middleware the way a server built from this stack would set one up.
func NewRouter(s *Server) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/notary-info", s.handleNotaryInfo)
	r.Post("/prove", s.handleProve)
	r.Post("/prove/espn", s.handleProveEspn)
	r.Get("/prove/stream", s.handleProveStream)

	return r
}
