package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/spst-logistics/spst-api/internal/config"
)

// CORS builds the cross-origin policy from config. The back-office UI and
// the customer portal run on separate origins, so production must list them
// explicitly; only development falls back to an allow-any policy.
func CORS(cfg *config.CORSConfig, environment string, logger *zap.Logger) func(http.Handler) http.Handler {
	options := cors.Options{
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   cfg.AllowedHeaders,
		ExposedHeaders:   cfg.ExposedHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	}

	devLike := environment == "development" || environment == "local" || environment == ""

	switch {
	case containsWildcard(cfg.AllowedOrigins):
		if !devLike {
			logger.Warn("CORS wildcard origin outside development",
				zap.String("environment", environment))
		}
		options.AllowOriginFunc = anyOrigin
	case len(cfg.AllowedOrigins) > 0:
		options.AllowedOrigins = cfg.AllowedOrigins
		logger.Info("CORS origins configured",
			zap.Strings("origins", cfg.AllowedOrigins))
	case devLike:
		options.AllowOriginFunc = anyOrigin
		logger.Info("CORS allowing all origins in development")
	default:
		// An empty AllowedOrigins list defaults to "*" inside the cors
		// package, so denying everything needs an explicit func.
		options.AllowOriginFunc = func(r *http.Request, origin string) bool { return false }
		logger.Warn("CORS has no allowed origins, denying all cross-origin requests",
			zap.String("environment", environment))
	}

	return cors.Handler(options)
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

func anyOrigin(r *http.Request, origin string) bool {
	return origin != ""
}
