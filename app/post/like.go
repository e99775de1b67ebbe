package post

import (
	"bitwise74/blog-api/internal"
	"bitwise74/blog-api/internal/httperr"
	"net/http"

	"github.com/gin-gonic/gin"
)

// PostLike likes the post, or takes the like back if the user already liked it
func PostLike(c *gin.Context, d *internal.Deps) {
	userID := c.MustGet("userID").(string)

	liked, count, err := d.PostLikes.Toggle(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	msg := "Post unliked successfully"
	if liked {
		msg = "Post liked successfully"
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     msg,
		"liked":       liked,
		"likes_count": count,
	})
}
