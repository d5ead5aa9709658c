package webserver

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/onepulse/onepulse-claims/src/ClaimsApi/config"
)

func attachRoutes(g *gin.Engine, cfg config.Config, deps Deps) {
	g.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
	}))

	claimsH := NewClaims(cfg, deps)

	ipWindow := time.Duration(cfg.IPRateWindowSecs) * time.Second

	v1 := g.Group("/v1")
	{
		claims := v1.Group("/claims")
		claims.Use(JWT([]byte(cfg.JWTSecret)))

		claims.GET("/eligibility",
			RateLimitByIP(deps.Store, "eligibility", cfg.IPRateLimit, ipWindow),
			claimsH.Eligibility)
		claims.POST("/authorize",
			RateLimitByIP(deps.Store, "authorize", cfg.IPRateLimit, ipWindow),
			claimsH.Authorize)
		claims.POST("/confirm",
			RateLimitByIP(deps.Store, "confirm", cfg.ConfirmIPRateLimit, ipWindow),
			claimsH.Confirm)
		claims.GET("/stats", claimsH.Stats)
	}
}

// RequestID tags every request so handler logs can be correlated.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("reqid", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}
