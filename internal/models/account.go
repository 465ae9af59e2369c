package models

import (
	"strings"

	"gorm.io/gorm"
)

// Account is a registered user, keyed by a unique normalised email.
// IsAdmin is only ever changed out of band.
type Account struct {
	BaseModel

	Email   string `gorm:"uniqueIndex;size:320;not null" json:"email"`
	IsAdmin bool   `gorm:"not null;default:false" json:"isAdmin"`
}

// TableName keeps the collection name shared with the document store.
func (Account) TableName() string {
	return "users"
}

// BeforeSave applies the email normalisation every persisted account carries.
func (a *Account) BeforeSave(tx *gorm.DB) error {
	a.Email = NormalizeEmail(a.Email)
	return nil
}

// NormalizeEmail trims surrounding whitespace and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
