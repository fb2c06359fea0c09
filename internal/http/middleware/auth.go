package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"taskfi_backend/internal/service"
)

// JWT validates the bearer token and puts the wallet address into the
// context. Websocket upgrades cannot set headers, so a token query
// parameter is accepted as a fallback.
func JWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ""
		if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			token = strings.TrimPrefix(auth, "Bearer ")
		} else {
			token = c.Query("token")
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		address, err := service.ParseJWT(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("address", address)
		c.Next()
	}
}

// Address returns the authenticated wallet address set by JWT.
func Address(c *gin.Context) string {
	v, _ := c.Get("address")
	s, _ := v.(string)
	return s
}
