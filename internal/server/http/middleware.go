package http

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
)

const (
	CallerIdHeader  = "vigil-caller-id"
	AuthTokenHeader = "vigil-auth-token"
)

// AuthMiddleware validates authentication headers against the static token
// configured for the gateway.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip auth for health check
		if c.Request.URL.Path == "/health/self" {
			c.Next()
			return
		}

		callerId := c.GetHeader(CallerIdHeader)
		authToken := c.GetHeader(AuthTokenHeader)

		if callerId == "" {
			c.JSON(400, gin.H{"error": CallerIdHeader + " header is missing"})
			c.Abort()
			return
		}

		expectedToken := viper.GetString("GATEWAY_AUTH_TOKEN")
		if expectedToken != "" && authToken != expectedToken {
			c.JSON(401, gin.H{"error": "Invalid auth token"})
			c.Abort()
			return
		}

		c.Next()
	}
}
