package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"incentivehub/pkg/errutil"
)

// Error renders the last handler error as a JSON body with the HTTP status
// derived from its CoreStatus. Unclassified errors become 500s.
func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}

		var base errutil.BaseError
		if errors.As(last.Err, &base) {
			c.JSON(base.Code.HTTPStatus(), base.JSON())
			return
		}

		if errors.Is(last.Err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": errutil.StatusNotFound, "message": "entity not found"}})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": errutil.StatusInternal, "message": "internal error"}})
	}
}
