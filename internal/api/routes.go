package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures the full route tree.
func SetupRoutes(h *Handlers, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.HealthCheck)

	// Guest-facing unsubscribe link from message footers. No auth; the
	// signature in the link is the credential.
	if h.receiver != nil {
		r.Get("/u", h.receiver.HandleUnsubscribe)
		r.Post("/webhooks/provider", h.receiver.HandleProviderWebhook)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/segments", func(r chi.Router) {
			r.Get("/", h.ListSegments)
			r.Post("/", h.CreateSegment)
			r.Get("/operators", h.ListOperators)
			r.Post("/preview", h.PreviewCount)
			r.Post("/customers", h.ListSegmentCustomers)
			r.Get("/{id}", h.GetSegment)
			r.Put("/{id}", h.UpdateSegment)
			r.Delete("/{id}", h.DeleteSegment)
			r.Post("/{id}/refresh-count", h.RefreshSegmentCount)
		})

		r.Route("/flows", func(r chi.Router) {
			r.Get("/", h.ListFlows)
			r.Post("/", h.CreateFlow)
			r.Get("/{id}", h.GetFlow)
			r.Put("/{id}", h.UpdateFlow)
			r.Post("/{id}/active", h.SetFlowActive)
		})

		r.Post("/automation/run", h.RunAutomation)
	})

	return r
}
