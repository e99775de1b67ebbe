package post

import (
	"bitwise74/blog-api/internal"
	"bitwise74/blog-api/internal/apperr"
	"bitwise74/blog-api/internal/blog"
	"bitwise74/blog-api/internal/httperr"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
)

// PostList returns one page of posts, newest first
func PostList(c *gin.Context, d *internal.Deps) {
	userID := c.MustGet("userID").(string)

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		httperr.Abort(c, blog.ErrInvalidPage)
		return
	}

	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(blog.DefaultPageSize)))
	if err != nil || pageSize <= 0 {
		httperr.Abort(c, apperr.Validation("page_size", "Page size must be a positive number"))
		return
	}

	p, err := d.Blog.ListPosts(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	var next, previous *string
	if p.HasNext() {
		next = pageURL(c, p.Page+1, p.PageSize)
	}
	if p.HasPrevious() {
		previous = pageURL(c, p.Page-1, p.PageSize)
	}

	c.JSON(http.StatusOK, gin.H{
		"count":    p.Count,
		"next":     next,
		"previous": previous,
		"results":  p.Results,
	})
}

// pageURL links to another page of the current listing
func pageURL(c *gin.Context, page, pageSize int) *string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if p := c.GetHeader("X-Forwarded-Proto"); p != "" {
		scheme = p
	}

	q := c.Request.URL.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(pageSize))

	u := url.URL{
		Scheme:   scheme,
		Host:     c.Request.Host,
		Path:     c.Request.URL.Path,
		RawQuery: q.Encode(),
	}

	s := u.String()
	return &s
}
