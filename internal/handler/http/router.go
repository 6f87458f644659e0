package http

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/cmlabs-hris/timecard-payroll/internal/handler/http/middleware"
	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
	"github.com/ulule/limiter/v3"
)

type RouterConfig struct {
	AppName        string
	Version        string
	Env            string
	LogLevel       slog.Level
	AllowedOrigins []string
}

type Handlers struct {
	Timecard  TimecardHandler
	Payroll   PayrollHandler
	PayPolicy PayPolicyHandler
	Events    EventsHandler
}

func NewRouter(cfg RouterConfig, JWTService jwt.Service, h Handlers, clockLimiter *limiter.Limiter) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(cfg.Env != "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", cfg.AppName),
		slog.String("version", cfg.Version),
		slog.String("env", cfg.Env),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  cfg.LogLevel,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {

		// SSE authenticates with a short-lived token in the query string
		r.Get("/events/stream", h.Events.Stream)

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired)

			r.Get("/events/token", h.Events.GetSSEToken)

			r.Route("/timecards", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(middleware.RateLimit(clockLimiter))
					r.Post("/clock-in", h.Timecard.ClockIn)
					r.Post("/breaks/start", h.Timecard.StartBreak)
					r.Post("/breaks/end", h.Timecard.EndBreak)
					r.Post("/clock-out", h.Timecard.ClockOut)
				})

				r.Get("/", h.Timecard.List)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.Timecard.Get)
					r.Post("/submit", h.Timecard.Submit)

					// Manager only
					r.Group(func(r chi.Router) {
						r.Use(middleware.RequireManager)
						r.Put("/", h.Timecard.Correct)
						r.Post("/reject", h.Timecard.Reject)
					})
				})
			})

			r.Route("/payroll", func(r chi.Router) {
				r.Use(middleware.RequireManager)

				r.Post("/preview", h.Payroll.Preview)
				r.Post("/approve", h.Payroll.Approve)
				r.Get("/live", h.Payroll.Live)

				r.Route("/reports/{period}", func(r chi.Router) {
					r.Get("/", h.Payroll.ListReports)
					r.Route("/{employeeID}", func(r chi.Router) {
						r.Get("/", h.Payroll.GetReport)
						r.Get("/versions", h.Payroll.ListReportVersions)
						r.Post("/rebuild", h.Payroll.RebuildReport)
					})
				})
			})

			r.Route("/pay-policy", func(r chi.Router) {
				r.Get("/", h.PayPolicy.Get)

				// Manager only
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireManager)
					r.Put("/", h.PayPolicy.Update)
					r.Put("/overrides/{employeeID}", h.PayPolicy.UpsertOverride)

					r.Get("/holidays", h.PayPolicy.ListHolidays)
					r.Post("/holidays", h.PayPolicy.CreateHoliday)
					r.Delete("/holidays/{id}", h.PayPolicy.DeleteHoliday)
				})
			})
		})
	})
	return r
}
