package comment

import (
	"bitwise74/blog-api/internal"
	"bitwise74/blog-api/internal/httperr"
	"net/http"

	"github.com/gin-gonic/gin"
)

func CommentDelete(c *gin.Context, d *internal.Deps) {
	userID := c.MustGet("userID").(string)

	if err := d.Blog.DeleteComment(c.Request.Context(), userID, c.Param("id")); err != nil {
		httperr.Abort(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
