package store

import (
	"context"
	"errors"
	"time"

	"github.com/charlesng35/otpauth/internal/models"
)

var (
	// ErrNotFound is returned when no record matches a lookup.
	ErrNotFound = errors.New("store: record not found")
	// ErrDuplicate is returned when an insert violates a uniqueness constraint.
	ErrDuplicate = errors.New("store: duplicate record")
)

// AccountStore persists accounts keyed by normalised email.
type AccountStore interface {
	FindAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	CreateAccount(ctx context.Context, email string) (*models.Account, error)
	SetAdmin(ctx context.Context, email string, isAdmin bool) (*models.Account, error)
}

// PasscodeStore persists at most one pending passcode per email.
type PasscodeStore interface {
	// UpsertPasscode creates or overwrites the code held for email.
	UpsertPasscode(ctx context.Context, email, code string, expiresAt time.Time) error
	// FindPasscode matches email and code exactly; expired records are returned too.
	FindPasscode(ctx context.Context, email, code string) (*models.PendingPasscode, error)
	DeletePasscode(ctx context.Context, email string) error
	// PurgeExpiredPasscodes removes codes that expired before the cutoff.
	PurgeExpiredPasscodes(ctx context.Context, before time.Time) (int64, error)
}

// Store is the full persistence surface used by the service.
type Store interface {
	AccountStore
	PasscodeStore

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
