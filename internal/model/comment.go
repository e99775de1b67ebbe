package model

import "time"

type Comment struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	PostID    string    `gorm:"index;size:36;not null" json:"post_id"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	AuthorID  string    `gorm:"index;size:16;not null" json:"-"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Author User `gorm:"foreignKey:AuthorID" json:"-"`
}
