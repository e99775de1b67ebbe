package comment

import (
	"bitwise74/blog-api/internal"
	"bitwise74/blog-api/internal/httperr"
	"net/http"

	"github.com/gin-gonic/gin"
)

// CommentLike likes the comment, or takes the like back if the user already
// liked it
func CommentLike(c *gin.Context, d *internal.Deps) {
	userID := c.MustGet("userID").(string)

	liked, count, err := d.CommentLikes.Toggle(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	msg := "Comment unliked successfully"
	if liked {
		msg = "Comment liked successfully"
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     msg,
		"liked":       liked,
		"likes_count": count,
	})
}
