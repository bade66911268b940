package middlewares

import (
	"net/http"

	"bitbucket.org/mmdatafocus/recon_backend/config"
	"bitbucket.org/mmdatafocus/recon_backend/utils"
	"github.com/gin-gonic/gin"
)

// SessionMiddleware resolves the `token` header to a username. The session
// store lives in Redis (written by the auth service, out of scope here); a
// signed JWT is accepted as fallback so internal jobs can call without a
// Redis session.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Request.Header.Get("token")
		if token == "" {
			c.Next()
			return
		}
		username, exists, err := config.GetRedisValue("Token:" + token)
		if err != nil || !exists {
			parsed, jwtErr := utils.JwtValidate(token)
			if jwtErr != nil || !parsed.Valid {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
				c.Abort()
				return
			}
			if claims, ok := parsed.Claims.(*utils.JwtCustomClaim); ok {
				username = claims.Subject
			}
		}

		c.Request = c.Request.WithContext(utils.SetUsernameInContext(c.Request.Context(), username))
		c.Next()
	}
}
