package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/charlesng35/otpauth/internal/database"
	"github.com/charlesng35/otpauth/internal/store"
	"github.com/charlesng35/otpauth/pkg/logger"
)

// OpenStore connects the configured backend and prepares its schema: tables
// for the SQL drivers, unique indexes for MongoDB.
func OpenStore(ctx context.Context, cfg DatabaseConfig) (store.Store, error) {
	conn := cfg.ConnectionConfig()
	driver, err := database.ResolveDriver(conn)
	if err != nil {
		return nil, fmt.Errorf("resolve database driver: %w", err)
	}

	log := logger.WithModule("database")

	if driver == database.DriverMongo {
		db, err := database.OpenMongo(ctx, conn)
		if err != nil {
			return nil, err
		}
		mongoStore, err := store.NewMongoStore(db)
		if err != nil {
			return nil, err
		}
		if err := mongoStore.EnsureIndexes(ctx); err != nil {
			_ = mongoStore.Close(context.Background())
			return nil, fmt.Errorf("ensure mongodb indexes: %w", err)
		}
		log.Info("database connected", zap.String("driver", driver), zap.String("database", db.Name()))
		return mongoStore, nil
	}

	db, err := database.Open(conn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlStore, err := store.NewSQLStore(db)
	if err != nil {
		return nil, err
	}

	if err := database.AutoMigrate(db); err != nil {
		_ = sqlStore.Close(ctx)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log.Info("database connected", zap.String("driver", driver))
	return sqlStore, nil
}
