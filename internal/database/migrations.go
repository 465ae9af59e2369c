package database

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/charlesng35/otpauth/internal/models"
)

// mysqlPasscodeEmailDDL gives otps.email a binary collation. MySQL's default
// *_ci collations would otherwise let "A@b.com" and "a@b.com" share one
// pending code.
const mysqlPasscodeEmailDDL = "ALTER TABLE otps MODIFY email VARCHAR(320) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL"

// AutoMigrate creates or updates the schema, including the unique index on
// account email.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}
	if err := db.AutoMigrate(
		&models.Account{},
		&models.PendingPasscode{},
	); err != nil {
		return err
	}

	if db.Dialector.Name() == DriverMySQL {
		if err := db.Exec(mysqlPasscodeEmailDDL).Error; err != nil {
			return fmt.Errorf("collate otps.email: %w", err)
		}
	}
	return nil
}
