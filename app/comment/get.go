package comment

import (
	"bitwise74/blog-api/internal"
	"bitwise74/blog-api/internal/httperr"
	"net/http"

	"github.com/gin-gonic/gin"
)

func CommentGet(c *gin.Context, d *internal.Deps) {
	userID := c.MustGet("userID").(string)

	comment, err := d.Blog.GetComment(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, comment)
}
