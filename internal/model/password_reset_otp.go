package model

import "time"

// PasswordResetOTP is a one time code that authorizes a password reset. Only
// the newest unused code of a user is ever valid, older ones get marked used
// when a new one is issued. Expiry isn't stored, it's derived from CreatedAt.
type PasswordResetOTP struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	UserID    string    `gorm:"index:idx_otp_user_used;size:16;not null"`
	Code      string    `gorm:"size:6;not null"` // Fixed width, leading zeros matter
	CreatedAt time.Time `gorm:"not null;index"`
	Used      bool      `gorm:"index:idx_otp_user_used;not null"`
}
