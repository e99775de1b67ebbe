package internal

import (
	"bitwise74/blog-api/internal/auth"
	"bitwise74/blog-api/internal/blog"
	"bitwise74/blog-api/internal/like"
	"bitwise74/blog-api/pkg/security"

	"gorm.io/gorm"
)

// Deps is everything handlers need, built once by the router
type Deps struct {
	DB            *gorm.DB
	Tokens        *security.Issuer
	Auth          *auth.Service
	Blog          *blog.Service
	PostLikes     *like.Engine
	CommentLikes  *like.Engine
	MaxUploadSize int64
	SecureCookies bool
}
