package post

import (
	"bitwise74/blog-api/internal"
	"bitwise74/blog-api/internal/blog"
	"bitwise74/blog-api/internal/httperr"
	"net/http"

	"github.com/gin-gonic/gin"
)

type updateBody struct {
	Title *string `json:"title" form:"title"`
	Body  *string `json:"body" form:"body"`
}

// PostUpdate changes the fields present in the request. Only the author may
// do that.
func PostUpdate(c *gin.Context, d *internal.Deps) {
	userID := c.MustGet("userID").(string)

	var data updateBody
	if err := c.ShouldBind(&data); err != nil {
		httperr.Bind(c, err)
		return
	}

	if err := d.Blog.CheckPostAuthor(c.Request.Context(), userID, c.Param("id")); err != nil {
		httperr.Abort(c, err)
		return
	}

	cover, err := saveCover(c, d)
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	in := blog.PostUpdate{
		Title: data.Title,
		Body:  data.Body,
	}

	if cover != "" {
		in.CoverPhoto = &cover
	}

	post, err := d.Blog.UpdatePost(c.Request.Context(), userID, c.Param("id"), in)
	if err != nil {
		d.Blog.DiscardCover(cover)
		httperr.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, post)
}
