package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rigbuilderhq/rigbuilder-backend/api/controllers"
	"github.com/rigbuilderhq/rigbuilder-backend/api/middleware"
	auditsvc "github.com/rigbuilderhq/rigbuilder-backend/internal/audit"
	authsvc "github.com/rigbuilderhq/rigbuilder-backend/internal/auth"
	buildsvc "github.com/rigbuilderhq/rigbuilder-backend/internal/builds"
	checkoutsvc "github.com/rigbuilderhq/rigbuilder-backend/internal/checkout"
	productsvc "github.com/rigbuilderhq/rigbuilder-backend/internal/products"
	stocksvc "github.com/rigbuilderhq/rigbuilder-backend/internal/stock"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/auth/session"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/config"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/enums"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/logger"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/metrics"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	apiMetrics *metrics.APIMetrics,
	registry *prometheus.Registry,
	database controllers.Pinger,
	cache controllers.Pinger,
	sessions session.AccessSessionChecker,
	authService authsvc.Service,
	productService productsvc.Service,
	stockService stocksvc.Service,
	buildService buildsvc.Service,
	checkoutService checkoutsvc.Service,
	auditService auditsvc.Service,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.ClientIP(),
		middleware.Logging(logg, apiMetrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, database, cache, logg))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/signup", controllers.AuthSignup(authService, logg))
		r.Post("/login", controllers.AuthLogin(authService, logg))
		r.Post("/refresh", controllers.AuthRefresh(authService, logg))
		r.Post("/forgot-password", controllers.AuthForgotPassword(authService, cfg, logg))
		r.Post("/reset-password", controllers.AuthResetPassword(authService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, sessions, logg))
			r.Post("/logout", controllers.AuthLogout(authService, logg))
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))

		r.Get("/products", controllers.ListProducts(productService, logg))
		r.Get("/builder", controllers.BuilderView(productService, buildService, logg))
		r.Post("/checkout", controllers.Checkout(checkoutService, logg))

		r.Route("/builds", func(r chi.Router) {
			r.Get("/", controllers.ListBuilds(buildService, logg))
			r.Post("/bulk/archive", controllers.BulkArchiveBuilds(buildService, logg))
			r.Post("/bulk/restore", controllers.BulkRestoreBuilds(buildService, logg))
			r.Post("/bulk/delete", controllers.BulkDeleteBuilds(buildService, logg))
			r.Get("/{id}", controllers.GetBuild(buildService, logg))
			r.Post("/{id}/archive", controllers.ArchiveBuild(buildService, logg))
			r.Post("/{id}/restore", controllers.RestoreBuild(buildService, logg))
			r.Post("/{id}/reorder", controllers.ReorderBuild(buildService, logg))
			r.Delete("/{id}", controllers.DeleteBuild(buildService, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.RoleAdmin, logg))

			r.Route("/products", func(r chi.Router) {
				r.Post("/", controllers.CreateProduct(productService, logg))
				r.Post("/bulk/archive", controllers.BulkArchiveProducts(productService, logg))
				r.Post("/bulk/restore", controllers.BulkRestoreProducts(productService, logg))
				r.Post("/bulk/delete", controllers.BulkDeleteProducts(productService, logg))
				r.Get("/{id}", controllers.GetProduct(productService, logg))
				r.Patch("/{id}", controllers.UpdateProduct(productService, logg))
				r.Post("/{id}/archive", controllers.ArchiveProduct(productService, logg))
				r.Post("/{id}/restore", controllers.RestoreProduct(productService, logg))
				r.Post("/{id}/stock/adjust", controllers.AdjustStock(stockService, logg))
				r.Post("/{id}/stock/restock", controllers.RestockProduct(stockService, logg))
				r.Delete("/{id}", controllers.DeleteProduct(productService, logg))
			})

			r.Get("/stock-movements", controllers.ListStockMovements(stockService, logg))
			r.Get("/audit-logs", controllers.ListAuditLogs(auditService, logg))
		})
	})

	return r
}
