package webserver

import (
	"github.com/gin-gonic/gin"

	"github.com/onepulse/onepulse-claims/src/ClaimsApi/config"
)

func New(cfg config.Config, deps Deps) *gin.Engine {
	g := gin.New()
	g.Use(gin.Logger(), gin.Recovery(), RequestID())
	attachRoutes(g, cfg, deps)
	return g
}
