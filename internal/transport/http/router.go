package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-verify-api/internal/config"
	"github.com/go-verify-api/internal/transport/http/handler"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	healthH := handler.NewHealthHandler()
	verifyH := handler.NewVerificationHandler(deps.Verification)

	r.Get("/health-check/{action}", healthH.Ping)
	r.Post("/signup", verifyH.Signup)
	r.Post("/verify", verifyH.Verify)
	r.Get("/callback", verifyH.Callback)
	r.Post("/authorize", verifyH.Authorize)
	r.Post("/login", verifyH.Authorize)

	return r
}
