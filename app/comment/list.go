package comment

import (
	"bitwise74/blog-api/internal"
	"bitwise74/blog-api/internal/httperr"
	"net/http"

	"github.com/gin-gonic/gin"
)

// CommentList returns the comments of the post given by ?post_id, newest first
func CommentList(c *gin.Context, d *internal.Deps) {
	userID := c.MustGet("userID").(string)

	comments, err := d.Blog.ListComments(c.Request.Context(), userID, c.Query("post_id"))
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, comments)
}
