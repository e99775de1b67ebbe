package post

import (
	"bitwise74/blog-api/internal"
	"bitwise74/blog-api/internal/blog"
	"bitwise74/blog-api/internal/httperr"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

type createBody struct {
	Title string `json:"title" form:"title"`
	Body  string `json:"body" form:"body"`
}

// PostCreate accepts JSON or a multipart form, the latter may carry a
// cover_photo file
func PostCreate(c *gin.Context, d *internal.Deps) {
	userID := c.MustGet("userID").(string)

	var data createBody
	if err := c.ShouldBind(&data); err != nil {
		httperr.Bind(c, err)
		return
	}

	cover, err := saveCover(c, d)
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	post, err := d.Blog.CreatePost(c.Request.Context(), userID, blog.PostInput{
		Title:      data.Title,
		Body:       data.Body,
		CoverPhoto: cover,
	})
	if err != nil {
		d.Blog.DiscardCover(cover)
		httperr.Abort(c, err)
		return
	}

	c.JSON(http.StatusCreated, post)
}

// saveCover stores the request's cover_photo, if there is one, and returns
// its key
func saveCover(c *gin.Context, d *internal.Deps) (string, error) {
	if c.ContentType() != gin.MIMEMultipartPOSTForm {
		return "", nil
	}

	fh, err := c.FormFile("cover_photo")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil
		}

		return "", fmt.Errorf("failed to read cover photo, %w", err)
	}

	return d.Blog.SaveCover(c.Request.Context(), fh, d.MaxUploadSize)
}
