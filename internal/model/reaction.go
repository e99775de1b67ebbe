package model

import "time"

// Reaction is a like given by a user to a likeable entity. The composite
// primary key is what keeps a user from liking the same thing twice.
type Reaction struct {
	UserID    string    `gorm:"primaryKey;size:16"`
	EntityID  string    `gorm:"primaryKey;size:36;index"`
	CreatedAt time.Time `gorm:"not null"`
}

type PostLike Reaction

func (PostLike) TableName() string { return "post_likes" }

type CommentLike Reaction

func (CommentLike) TableName() string { return "comment_likes" }
