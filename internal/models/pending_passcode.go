package models

import "time"

// PendingPasscode is the single live one-time code for an email address.
// The email is stored exactly as submitted. The code column holds the
// longest configurable code (crypto.MaxCodeDigits).
type PendingPasscode struct {
	Email     string    `gorm:"primaryKey;size:320" json:"email"`
	Code      string    `gorm:"column:otp;size:18;not null" json:"otp"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName keeps the collection name shared with the document store.
func (PendingPasscode) TableName() string {
	return "otps"
}

// Expired reports whether the code is past its expiry at now. A code is
// still valid at the exact expiry instant.
func (p PendingPasscode) Expired(now time.Time) bool {
	return p.ExpiresAt.Before(now)
}
