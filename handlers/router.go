package handlers

import (
	"workhours/config"
	"workhours/ledger"
	"workhours/middleware"
	"workhours/models"
	"workhours/report"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// NewRouter wires the full API surface. Everything below /api/control
// additionally requires the advanced permissions level.
func NewRouter(cfg *config.Config, db *gorm.DB, log *logrus.Logger) chi.Router {
	auth := middleware.NewAuth(cfg.JWTSecret, db)
	ledgerSvc := ledger.NewService(db, log)
	aggregator := report.NewAggregator(db)

	authHandler := NewAuthHandler(cfg, db, auth, log)
	taskHandler := NewTaskHandler(ledgerSvc, aggregator, db, log)
	controlHandler := NewControlHandler(db, log)
	reportHandler := NewReportHandler(aggregator, log)

	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)

	// Public routes
	router.Post("/api/login", authHandler.Login)
	router.Post("/api/register", authHandler.Register)
	router.Post("/api/logout", authHandler.Logout)

	// Authenticated routes
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware)

		r.Get("/api/me", authHandler.Me)

		// Task ledger (all authenticated users)
		r.Get("/api/tasks", taskHandler.List)
		r.Post("/api/tasks", taskHandler.Create)
		r.Put("/api/tasks/{id}", taskHandler.Update)
		r.Delete("/api/tasks/{id}", taskHandler.Delete)
		r.Get("/api/tasks/export", taskHandler.Export)

		// Entry-form lookups
		r.Get("/api/employees/suggest", taskHandler.SuggestEmployees)
		r.Get("/api/orders/suggest", taskHandler.SuggestOrders)
		r.Get("/api/orders/{number}/works", taskHandler.OrderWorks)
		r.Get("/api/orders/{number}/summary", taskHandler.OrderSummary)

		// Master data and reporting (advanced only)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireLevel(models.LevelAdvanced))

			r.Get("/api/control/overview", controlHandler.Overview)

			r.Get("/api/control/employees", controlHandler.ListEmployees)
			r.Post("/api/control/employees", controlHandler.CreateEmployee)
			r.Put("/api/control/employees/{id}", controlHandler.UpdateEmployee)
			r.Delete("/api/control/employees/{id}", controlHandler.DeleteEmployee)

			r.Get("/api/control/orders", controlHandler.ListOrders)
			r.Post("/api/control/orders", controlHandler.CreateOrder)
			r.Put("/api/control/orders/{id}", controlHandler.UpdateOrder)
			r.Delete("/api/control/orders/{id}", controlHandler.DeleteOrder)

			r.Get("/api/control/works", controlHandler.ListWorks)
			r.Post("/api/control/works", controlHandler.CreateWork)
			r.Put("/api/control/works/{id}", controlHandler.UpdateWork)
			r.Delete("/api/control/works/{id}", controlHandler.DeleteWork)

			r.Get("/api/control/users", controlHandler.ListUsers)
			r.Post("/api/control/users", controlHandler.CreateUser)
			r.Put("/api/control/users/{id}", controlHandler.UpdateUser)
			r.Delete("/api/control/users/{id}", controlHandler.DeleteUser)
			r.Post("/api/control/users/{id}/reset-password", controlHandler.ResetUserPassword)

			r.Get("/api/control/reports/orders", reportHandler.OrdersReport)
		})
	})

	return router
}
