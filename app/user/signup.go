package user

import (
	"bitwise74/blog-api/internal"
	"bitwise74/blog-api/internal/auth"
	"bitwise74/blog-api/internal/blog"
	"bitwise74/blog-api/internal/httperr"
	"net/http"

	"github.com/gin-gonic/gin"
)

type signupBody struct {
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required"`
	PasswordConfirm string `json:"password_confirm" binding:"required,eqfield=Password"`
	FirstName       string `json:"first_name" binding:"required,notblank,max=150"`
	LastName        string `json:"last_name" binding:"required,notblank,max=150"`
}

func UserSignup(c *gin.Context, d *internal.Deps) {
	var data signupBody
	if err := c.ShouldBindJSON(&data); err != nil {
		httperr.Bind(c, err)
		return
	}

	user, pair, err := d.Auth.Signup(c.Request.Context(), auth.SignupInput{
		Email:           data.Email,
		Password:        data.Password,
		PasswordConfirm: data.PasswordConfirm,
		FirstName:       data.FirstName,
		LastName:        data.LastName,
	})
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	setAuthCookie(c, d, pair)
	c.JSON(http.StatusCreated, gin.H{
		"user":   blog.NewUserView(user),
		"tokens": pair,
	})
}
