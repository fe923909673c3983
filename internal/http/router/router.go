// Package router assembles the Gin engine from the application's modules.
package router

import (
	"context"
	"net/http"
	"time"

	apphttp "cold_solutions_backend/internal/http"
	"cold_solutions_backend/platform/config"
	"cold_solutions_backend/platform/httpkit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const healthTimeout = 2 * time.Second

// New builds the HTTP engine: shared middleware, health and metrics endpoints,
// then every module's routes under /api/v1.
func New(app *apphttp.App) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestID())
	engine.Use(httpkit.RequestLogger(app.Logger))
	engine.Use(httpkit.SecurityHeaders())
	if mw := corsMiddleware(app.Config); mw != nil {
		engine.Use(mw)
	}
	engine.Use(app.Metrics.Middleware())

	engine.GET("/api/health", health(app.Health))
	engine.GET("/metrics", gin.WrapH(app.Metrics.Handler()))

	v1 := engine.Group("/api/v1")
	v1.Use(httpkit.PerMinute(app.Config.GetRateLimitPerMinute(), app.Logger).RateLimit())

	rc := &apphttp.RouterContext{Engine: engine, V1: v1}
	for _, module := range app.Modules {
		module.RegisterRoutes(rc)
		app.Logger.Info("module registered", "module", module.Name())
	}

	return engine
}

func health(checker apphttp.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if checker != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
			defer cancel()
			if err := checker.Ping(ctx); err != nil {
				httpkit.Error(c, http.StatusServiceUnavailable, "database unavailable", nil)
				return
			}
		}
		httpkit.OK(c, gin.H{"status": "ok"})
	}
}

// corsMiddleware returns nil when no origin is allowed.
func corsMiddleware(cfg config.HTTPConfig) gin.HandlerFunc {
	cc := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", httpkit.HeaderRequestID, httpkit.HeaderActor},
		ExposeHeaders: []string{httpkit.HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}
	switch {
	case cfg.GetCORSAllowAll():
		cc.AllowAllOrigins = true
	case len(cfg.GetCORSOrigins()) > 0:
		cc.AllowOrigins = cfg.GetCORSOrigins()
		cc.AllowCredentials = cfg.GetCORSAllowCreds()
	default:
		return nil
	}
	return cors.New(cc)
}
