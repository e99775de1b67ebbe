package user

import (
	"bitwise74/blog-api/internal"
	"bitwise74/blog-api/internal/apperr"
	"bitwise74/blog-api/internal/blog"
	"bitwise74/blog-api/internal/httperr"
	"bitwise74/blog-api/internal/model"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// UserFetch returns the logged in user
func UserFetch(c *gin.Context, d *internal.Deps) {
	userID := c.MustGet("userID").(string)

	var user model.User
	if err := d.DB.WithContext(c.Request.Context()).Where("id = ?", userID).Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = fmt.Errorf("user %w", apperr.ErrNotFound)
		}

		httperr.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, blog.NewUserView(&user))
}
