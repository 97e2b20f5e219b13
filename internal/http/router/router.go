package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/spst-logistics/spst-api/internal/auth"
	"github.com/spst-logistics/spst-api/internal/config"
	"github.com/spst-logistics/spst-api/internal/database"
	"github.com/spst-logistics/spst-api/internal/http/handler"
	"github.com/spst-logistics/spst-api/internal/http/middleware"

	_ "github.com/spst-logistics/spst-api/docs" // Import generated swagger docs
)

type Router struct {
	cfg             *config.Config
	logger          *zap.Logger
	db              *gorm.DB
	authMiddleware  *auth.Middleware
	rateLimiter     *middleware.RateLimiter
	shipmentHandler *handler.ShipmentHandler
	quoteHandler    *handler.QuoteHandler
	waveHandler     *handler.WaveHandler
	carrierHandler  *handler.CarrierHandler
	paymentHandler  *handler.PaymentHandler
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	shipmentHandler *handler.ShipmentHandler,
	quoteHandler *handler.QuoteHandler,
	waveHandler *handler.WaveHandler,
	carrierHandler *handler.CarrierHandler,
	paymentHandler *handler.PaymentHandler,
) *Router {
	return &Router{
		cfg:             cfg,
		logger:          logger,
		db:              db,
		authMiddleware:  authMiddleware,
		rateLimiter:     rateLimiter,
		shipmentHandler: shipmentHandler,
		quoteHandler:    quoteHandler,
		waveHandler:     waveHandler,
		carrierHandler:  carrierHandler,
		paymentHandler:  paymentHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP) // Apply IP-based rate limiting globally

	// Health check (basic liveness probe)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Database health check (readiness probe with detailed stats)
	r.Get("/health/db", func(w http.ResponseWriter, r *http.Request) {
		stats, err := database.HealthCheckWithStats(rt.db)
		if err != nil {
			rt.logger.Error("Database health check failed", zap.Error(err))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status":  "unhealthy",
				"error":   err.Error(),
				"service": "database",
			})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "healthy",
			"service": "database",
			"stats":   stats,
		})
	})

	// Combined readiness check (checks all dependencies)
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		checks := make(map[string]interface{})
		allHealthy := true

		if err := database.HealthCheck(rt.db); err != nil {
			rt.logger.Error("Database health check failed", zap.Error(err))
			checks["database"] = map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
			}
			allHealthy = false
		} else {
			checks["database"] = map[string]interface{}{
				"status": "healthy",
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if allHealthy {
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "healthy",
				"checks": checks,
			})
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "unhealthy",
				"checks": checks,
			})
		}
	})

	// Swagger documentation
	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	// Locally stored shipment documents
	if rt.cfg.Storage.Mode == "local" {
		fs := http.StripPrefix("/files/", http.FileServer(http.Dir(rt.cfg.Storage.LocalBasePath)))
		r.Get("/files/*", fs.ServeHTTP)
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Stripe authenticates by webhook signature, not by bearer token
		r.Post("/stripe/webhook", rt.paymentHandler.Webhook)

		// Public quote share links
		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.OptionalAuthenticate)

			r.Get("/public/quotazioni/{token}", rt.quoteHandler.GetByPublicToken)
			r.Post("/public/quotazioni/{token}/accept", rt.quoteHandler.AcceptByPublicToken)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.Authenticate)

			// Shipments
			r.Route("/spedizioni", func(r chi.Router) {
				r.Get("/", rt.shipmentHandler.List)
				r.Post("/", rt.shipmentHandler.Create)
				r.Get("/{id}", rt.shipmentHandler.GetByID)
				r.Patch("/{id}", rt.shipmentHandler.Update)
				r.Patch("/{id}/status", rt.shipmentHandler.UpdateStatus)
				r.Patch("/{id}/tracking", rt.shipmentHandler.UpdateTracking)
				r.Put("/{id}/packages", rt.shipmentHandler.ReplacePackages)
				r.Post("/{id}/upload", rt.shipmentHandler.Upload)
			})

			// Quotes
			r.Route("/quotazioni", func(r chi.Router) {
				r.Get("/", rt.quoteHandler.List)
				r.Post("/", rt.quoteHandler.Create)
				r.Get("/{id}", rt.quoteHandler.GetByID)
				r.Delete("/{id}", rt.quoteHandler.Delete)
				r.Post("/{id}/accept", rt.quoteHandler.Accept)
				r.Post("/{id}/options", rt.quoteHandler.AddOption)
				r.Delete("/{id}/options/{optionId}", rt.quoteHandler.RemoveOption)
				r.Patch("/{id}/status", rt.quoteHandler.UpdateStatus)
			})

			// Pallet consolidation
			r.Route("/pallets", func(r chi.Router) {
				r.Get("/pool", rt.waveHandler.Pool)

				r.Route("/waves", func(r chi.Router) {
					r.Get("/", rt.waveHandler.List)
					r.Post("/", rt.waveHandler.Create)
					r.Get("/{id}", rt.waveHandler.GetByID)
					r.Patch("/{id}", rt.waveHandler.Update)
					r.Patch("/{id}/status", rt.waveHandler.SetStatus)
					r.Get("/{id}/manifest", rt.waveHandler.Manifest)
				})
			})

			// Carriers
			r.Route("/carriers", func(r chi.Router) {
				r.Get("/", rt.carrierHandler.List)
				r.Post("/", rt.carrierHandler.Create)
				r.Get("/{id}", rt.carrierHandler.GetByID)
			})
		})
	})

	return r
}
