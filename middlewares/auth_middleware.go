// middlewares/auth_middleware.go
package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"nourish/utils"
)

// AuthMiddleware guards dev backend routes. It accepts only access tokens
// signed with secret and stores the caller's id under "userID".
func AuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Missing Authorization Header"})
			return
		}

		claims, err := utils.ParseJWT(secret, strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token has expired or is invalid"})
			return
		}
		if claims.Type != utils.AccessToken {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Only access tokens are allowed"})
			return
		}

		uid, err := claims.UserID()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid claims"})
			return
		}

		c.Set("userID", uid)
		c.Set("email", claims.Email)
		c.Next()
	}
}
