package comment

import (
	"bitwise74/blog-api/internal"
	"bitwise74/blog-api/internal/httperr"
	"net/http"

	"github.com/gin-gonic/gin"
)

type createBody struct {
	PostID string `json:"post_id" binding:"required"`
	Body   string `json:"body"`
}

func CommentCreate(c *gin.Context, d *internal.Deps) {
	userID := c.MustGet("userID").(string)

	var data createBody
	if err := c.ShouldBindJSON(&data); err != nil {
		httperr.Bind(c, err)
		return
	}

	comment, err := d.Blog.CreateComment(c.Request.Context(), userID, data.PostID, data.Body)
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	c.JSON(http.StatusCreated, comment)
}
