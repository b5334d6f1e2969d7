package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/clinicbook/clinicbook-go/internal/nav"
	"github.com/clinicbook/clinicbook-go/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Handler        *Handler
	Guard          *nav.Guard
	Logger         *logging.Logger
	MetricsHandler http.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", cfg.Handler.Health)
		public.Post("/login", cfg.Handler.Login)
		public.Post("/register", cfg.Handler.Register)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Protected views, gated by the route guard before they mount.
	r.Group(func(protected chi.Router) {
		protected.Use(RequireAuth(cfg.Guard))
		protected.Post("/logout", cfg.Handler.Logout)
		protected.Get("/doctors", cfg.Handler.Doctors)
		protected.Get("/doctors/{doctorID}", cfg.Handler.DoctorDetail)
		protected.Post("/doctors/{doctorID}/book", cfg.Handler.Book)
		protected.Get("/booking/confirmation", cfg.Handler.Confirmation)
		protected.Get("/appointments", cfg.Handler.Appointments)
		protected.Post("/appointments/{appointmentID}/cancel", cfg.Handler.CancelAppointment)
	})

	return r
}
