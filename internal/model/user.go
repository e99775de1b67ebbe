// Package model defines database models
package model

import "time"

type User struct {
	ID           string    `gorm:"primaryKey;size:16" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"` // Case sensitive, stored as given
	PasswordHash string    `gorm:"not null" json:"-"`
	FirstName    string    `gorm:"size:150" json:"first_name"`
	LastName     string    `gorm:"size:150" json:"last_name"`
	DateJoined   time.Time `gorm:"autoCreateTime" json:"date_joined"`
	UpdatedAt    time.Time `json:"-"`

	ResetOTPs []PasswordResetOTP `gorm:"foreignKey:UserID" json:"-"`
}

// DisplayName is what we greet users with in mails
func (u *User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}

	return u.Email
}
