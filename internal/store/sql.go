package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/otpauth/internal/models"
)

// SQLStore implements Store on top of gorm.
type SQLStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewSQLStore wraps an open, migrated gorm handle.
func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	if db == nil {
		return nil, errors.New("store: db is required")
	}
	return &SQLStore{db: db, now: time.Now}, nil
}

// DB exposes the underlying handle for maintenance tooling.
func (s *SQLStore) DB() *gorm.DB {
	return s.db
}

func (s *SQLStore) FindAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	err := s.db.WithContext(ctx).
		Where("email = ?", models.NormalizeEmail(email)).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return &account, nil
}

func (s *SQLStore) CreateAccount(ctx context.Context, email string) (*models.Account, error) {
	account := &models.Account{Email: email}
	if err := s.db.WithContext(ctx).Create(account).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	return account, nil
}

func (s *SQLStore) SetAdmin(ctx context.Context, email string, isAdmin bool) (*models.Account, error) {
	account, err := s.FindAccountByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(account).Update("is_admin", isAdmin).Error; err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}
	account.IsAdmin = isAdmin
	return account, nil
}

func (s *SQLStore) UpsertPasscode(ctx context.Context, email, code string, expiresAt time.Time) error {
	now := s.now().UTC()
	record := models.PendingPasscode{
		Email:     email,
		Code:      code,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"otp", "expires_at", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("upsert passcode: %w", err)
	}
	return nil
}

func (s *SQLStore) FindPasscode(ctx context.Context, email, code string) (*models.PendingPasscode, error) {
	var record models.PendingPasscode
	err := s.db.WithContext(ctx).
		Where("email = ? AND otp = ?", email, code).
		Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find passcode: %w", err)
	}
	return &record, nil
}

func (s *SQLStore) DeletePasscode(ctx context.Context, email string) error {
	if err := s.db.WithContext(ctx).Where("email = ?", email).Delete(&models.PendingPasscode{}).Error; err != nil {
		return fmt.Errorf("delete passcode: %w", err)
	}
	return nil
}

func (s *SQLStore) PurgeExpiredPasscodes(ctx context.Context, before time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("expires_at < ?", before.UTC()).Delete(&models.PendingPasscode{})
	if result.Error != nil {
		return 0, fmt.Errorf("purge passcodes: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQLStore) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// isUniqueViolation detects uniqueness constraint failures across vendors,
// including drivers that bypass gorm's error translation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}
