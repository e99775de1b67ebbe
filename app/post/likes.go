package post

import (
	"bitwise74/blog-api/internal"
	"bitwise74/blog-api/internal/httperr"
	"net/http"

	"github.com/gin-gonic/gin"
)

// PostLikes lists everyone who likes the post
func PostLikes(c *gin.Context, d *internal.Deps) {
	likers, err := d.PostLikes.Likers(c.Request.Context(), c.Param("id"))
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"likes_count": len(likers),
		"liked_by":    likers,
	})
}
