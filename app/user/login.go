package user

import (
	"bitwise74/blog-api/internal"
	"bitwise74/blog-api/internal/blog"
	"bitwise74/blog-api/internal/httperr"
	"net/http"

	"github.com/gin-gonic/gin"
)

type loginBody struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func UserLogin(c *gin.Context, d *internal.Deps) {
	var data loginBody
	if err := c.ShouldBindJSON(&data); err != nil {
		httperr.Bind(c, err)
		return
	}

	user, pair, err := d.Auth.Login(c.Request.Context(), data.Email, data.Password)
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	setAuthCookie(c, d, pair)
	c.JSON(http.StatusOK, gin.H{
		"user":   blog.NewUserView(user),
		"tokens": pair,
	})
}
