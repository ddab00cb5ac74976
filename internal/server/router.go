// Package server assembles the HTTP router from the catalog, auth and library
// handlers.
package server

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"gamecatalog/internal/auth"
	"gamecatalog/internal/catalog"
	"gamecatalog/internal/library"
	"gamecatalog/internal/middleware"
	"gamecatalog/pkg/metrics"
)

type Deps struct {
	DB             *sql.DB
	Catalog        *catalog.Service
	AuthRepo       *auth.Repo
	Tokens         auth.TokenService
	Metrics        *metrics.Registry
	Logger         zerolog.Logger
	RequestTimeout time.Duration
	// BcryptCost overrides the password hashing cost. Tests lower it.
	BcryptCost int
}

func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	router.Use(middleware.RequestLogger(d.Logger))
	if d.Metrics != nil {
		router.Use(middleware.Metrics(d.Metrics))
		router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := d.DB.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "not_ready",
				"db_error": err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "db": "ok"})
	})

	api := router.Group("", middleware.Timeout(d.RequestTimeout))

	// Auth
	authHandler := auth.NewHandler(d.AuthRepo, d.Tokens)
	authHandler.Cost = d.BcryptCost
	authHandler.RegisterRoutes(api.Group("/auth"))

	guards := auth.NewGuards(d.Tokens, d.AuthRepo)

	// Catalog (public reads, admin writes)
	catalog.NewHandler(d.Catalog, guards).RegisterRoutes(api.Group("/games"))

	// Protected routes
	protected := api.Group("/users", guards.Required)
	authHandler.RegisterUserRoutes(protected)
	library.NewHandler(d.Catalog).RegisterRoutes(protected)

	return router
}
