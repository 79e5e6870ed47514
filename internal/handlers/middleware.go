package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"storefront-service/internal/models"
	"storefront-service/pkg/common"
)

const ctxUidKey = "uid"

// Identity extracts the authenticated subject. Authentication itself is
// terminated upstream (Firebase at the edge); this service trusts the
// forwarded X-Uid header.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetHeader("X-Uid")
		if uid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				common.NewErrorResponse("Missing identity", nil, http.StatusUnauthorized))
			return
		}
		c.Set(ctxUidKey, uid)
		c.Next()
	}
}

// RequireAdmin gates the back-office routes on the stored role.
func RequireAdmin(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetString(ctxUidKey)

		var user models.User
		if err := db.Where("uid = ?", uid).First(&user).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden,
				common.NewErrorResponse("Admin access required", nil, http.StatusForbidden))
			return
		}
		if user.Role != "admin" {
			c.AbortWithStatusJSON(http.StatusForbidden,
				common.NewErrorResponse("Admin access required", nil, http.StatusForbidden))
			return
		}
		c.Next()
	}
}
