package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"nusapos/internal/utils"
)

// JWTAuth guards every POS and promotion route. Claims land in the gin
// context under user_id, username and branch_id.
func JWTAuth(manager *utils.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Authorization header is missing"})
			c.Abort()
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		claims, err := manager.ParseToken(tokenStr)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserId)
		c.Set("username", claims.Username)
		c.Set("branch_id", claims.BranchId)

		c.Next()
	}
}
