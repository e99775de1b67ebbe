package user

import (
	"bitwise74/blog-api/internal"
	"bitwise74/blog-api/internal/auth"
	"bitwise74/blog-api/internal/httperr"
	"net/http"

	"github.com/gin-gonic/gin"
)

type passwordConfirmBody struct {
	Email           string `json:"email" binding:"required,email"`
	OTPCode         string `json:"otp_code" binding:"required,len=6,numeric"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=NewPassword"`
}

// UserPasswordConfirm sets a new password using a code from UserPasswordReset
func UserPasswordConfirm(c *gin.Context, d *internal.Deps) {
	var data passwordConfirmBody
	if err := c.ShouldBindJSON(&data); err != nil {
		httperr.Bind(c, err)
		return
	}

	err := d.Auth.ConfirmPasswordReset(c.Request.Context(), auth.ConfirmInput{
		Email:           data.Email,
		OTPCode:         data.OTPCode,
		NewPassword:     data.NewPassword,
		ConfirmPassword: data.ConfirmPassword,
	})
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Password reset successfully",
	})
}
