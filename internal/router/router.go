package router

import (
	"net/http"

	"github.com/go-authgate/ssogate/internal/config"
	"github.com/go-authgate/ssogate/internal/handlers"
	"github.com/go-authgate/ssogate/internal/keyset"
	"github.com/go-authgate/ssogate/internal/middleware"
	"github.com/go-authgate/ssogate/internal/obo"

	"github.com/gin-gonic/gin"
)

// New builds the HTTP routing tree. The exchange endpoints sit behind the
// token validation gate; the gate must run first so the handlers' unverified
// tenant decode only ever sees vetted tokens.
func New(cfg *config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), middleware.RequestID())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	keys := keyset.NewProvider(cfg.KeyDiscoveryURL)
	exchange := handlers.NewExchangeHandler(cfg, obo.NewClient(cfg.AuthorityBase, cfg.HTTPTimeout))

	auth := r.Group("/auth", middleware.RequireValidToken(cfg.ExpectedAudience, keys))
	auth.POST("/token", exchange.ExchangeToken)
	auth.GET("/exchange", exchange.ExchangeDefaultToken)

	return r
}
