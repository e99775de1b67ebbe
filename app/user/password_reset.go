package user

import (
	"bitwise74/blog-api/internal"
	"bitwise74/blog-api/internal/httperr"
	"net/http"

	"github.com/gin-gonic/gin"
)

type passwordResetBody struct {
	Email string `json:"email" binding:"required,email"`
}

// UserPasswordReset sends a one-time code to the account's email address
func UserPasswordReset(c *gin.Context, d *internal.Deps) {
	var data passwordResetBody
	if err := c.ShouldBindJSON(&data); err != nil {
		httperr.Bind(c, err)
		return
	}

	if _, err := d.Auth.RequestPasswordReset(c.Request.Context(), data.Email); err != nil {
		httperr.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "OTP sent successfully to your email",
		"email":   data.Email,
	})
}
