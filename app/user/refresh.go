package user

import (
	"bitwise74/blog-api/internal"
	"bitwise74/blog-api/internal/httperr"
	"net/http"

	"github.com/gin-gonic/gin"
)

type refreshBody struct {
	Refresh string `json:"refresh" binding:"required"`
}

func UserRefresh(c *gin.Context, d *internal.Deps) {
	var data refreshBody
	if err := c.ShouldBindJSON(&data); err != nil {
		httperr.Bind(c, err)
		return
	}

	access, err := d.Auth.Refresh(c.Request.Context(), data.Refresh)
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access": access,
	})
}
