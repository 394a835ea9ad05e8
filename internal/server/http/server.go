package http

import (
	"net/http"
	"sync"

	"github.com/Meesho/BharatMLStack/vigil/internal/capture"
	"github.com/Meesho/BharatMLStack/vigil/internal/external/model"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Deps wires the gateway to its collaborators: the model backend and the
// capture sink.
type Deps struct {
	Model   model.Client
	Capture func(capture.Record) error
}

var (
	router *gin.Engine
	once   sync.Once
)

func Init(deps Deps) {
	once.Do(func() {
		env := viper.GetString("APP_ENV")
		if env == "prod" || env == "production" {
			gin.SetMode(gin.ReleaseMode)
		}
		router = newRouter(deps)
	})
}

func newRouter(deps Deps) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(AuthMiddleware())

	r.GET("/health/self", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "true"})
	})

	RegisterRoutes(r, deps)
	return r
}

func Instance() *gin.Engine {
	if router == nil {
		log.Fatal().Msg("Router not initialized")
	}
	return router
}
