package blog

import (
	"bitwise74/blog-api/internal/model"
	"time"
)

type PostView struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	CoverPhoto    *string   `json:"cover_photo"`
	Author        string    `json:"author"`
	AuthorID      string    `json:"author_id"`
	AuthorEmail   string    `json:"author_email"`
	LikesCount    int64     `json:"likes_count"`
	CommentsCount int64     `json:"comments_count"`
	Liked         bool      `json:"liked"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type UserView struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	DateJoined time.Time `json:"date_joined"`
}

type CommentView struct {
	ID         string    `json:"id"`
	PostID     string    `json:"post_id"`
	Body       string    `json:"body"`
	Author     UserView  `json:"author"`
	LikesCount int64     `json:"likes_count"`
	Liked      bool      `json:"liked"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type PostPage struct {
	Count    int64
	Page     int
	PageSize int
	Results  []PostView
}

func (p *PostPage) HasNext() bool {
	return int64(p.Page*p.PageSize) < p.Count
}

func (p *PostPage) HasPrevious() bool {
	return p.Page > 1
}

func NewUserView(u *model.User) UserView {
	return UserView{
		ID:         u.ID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		DateJoined: u.DateJoined,
	}
}
