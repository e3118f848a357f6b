package middleware

import (
	"net/http"
	"strings"

	"hotseat/services"

	"github.com/gin-gonic/gin"
)

const claimsKey = "claims"

// RequireToken accepts a bearer token, or a token query parameter for
// clients that cannot set headers (browser websockets).
func RequireToken(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
			token = strings.TrimPrefix(header, "Bearer ")
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		claims, err := auth.ParseToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireHost must run after RequireToken.
func RequireHost() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil || claims.Role != services.RoleHost {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "host only"})
			return
		}
		c.Next()
	}
}

func Claims(c *gin.Context) *services.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*services.Claims)
	return claims
}
