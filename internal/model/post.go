package model

import "time"

type Post struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Title      string    `gorm:"size:255;not null" json:"title"`
	Body       string    `gorm:"type:text;not null" json:"body"`
	CoverPhoto string    `json:"cover_photo,omitempty"` // Storage key, empty if the post has none
	AuthorID   string    `gorm:"index;size:16;not null" json:"-"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Author   User      `gorm:"foreignKey:AuthorID" json:"-"`
	Comments []Comment `gorm:"foreignKey:PostID" json:"-"`
}
