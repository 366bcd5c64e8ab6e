package router

import (
	"net/http"

	"plus-api/internal/handler"
	"plus-api/internal/middleware"
	"plus-api/pkg/apierror"
	"plus-api/pkg/response"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler          *handler.Handler
	PaymentsHandler  *handler.PaymentsHandler
	CosmeticsHandler *handler.CosmeticsHandler
	AdminHandler     *handler.AdminHandler
	Auth             *middleware.Auth
	AllowedOrigins   []string
	Logger           *zap.Logger
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Auth == nil {
		cfg.Auth = middleware.NewAuth(middleware.AuthConfig{Logger: cfg.Logger})
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.NewRecovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.NewLogging(cfg.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", middleware.AdminKeyHeader},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, apierror.NotFound(""))
	})

	if cfg.Handler != nil {
		r.Get("/health", cfg.Handler.Health)
		r.Get("/ready", cfg.Handler.Ready)
		r.Get("/api/status", cfg.Handler.Status)
	}

	if cfg.PaymentsHandler != nil {
		r.Route("/payments", func(r chi.Router) {
			r.Post("/tebex-webhook", cfg.PaymentsHandler.TebexWebhook)
			r.Post("/restore", cfg.PaymentsHandler.Restore)
		})
	}

	if cfg.CosmeticsHandler != nil {
		r.Get("/capes", cfg.CosmeticsHandler.ListCapes)
		r.Route("/cosmetics", func(r chi.Router) {
			r.Get("/", cfg.CosmeticsHandler.List)
			r.Post("/active", cfg.CosmeticsHandler.Active)
			r.With(cfg.Auth.OptionalPlayer).Get("/player", cfg.CosmeticsHandler.GetPlayer)
			r.With(cfg.Auth.RequirePlayer).Put("/player", cfg.CosmeticsHandler.UpdateActive)
		})
	}

	if cfg.AdminHandler != nil {
		r.Route("/admin", func(r chi.Router) {
			r.Use(cfg.Auth.RequireAdmin)
			r.Get("/stats", cfg.AdminHandler.GetStats)
			r.Post("/cosmetics", cfg.AdminHandler.CreateCosmetic)
			r.Put("/packages/{package_id}/cosmetics/{cosmetic_id}", cfg.AdminHandler.MapPackage)
			r.Delete("/cache", cfg.AdminHandler.ClearCache)
		})
	}

	return r
}
