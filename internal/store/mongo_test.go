package store

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/otpauth/internal/database"
)

const mongoURIEnv = "OTPAUTH_TEST_MONGO_URI"

func newTestMongoStore(t *testing.T) *MongoStore {
	t.Helper()

	uri := strings.TrimSpace(os.Getenv(mongoURIEnv))
	if uri == "" {
		t.Skipf("%s not set", mongoURIEnv)
	}

	ctx := context.Background()
	db, err := database.OpenMongo(ctx, database.Config{
		Driver: database.DriverMongo,
		URL:    uri,
		Name:   "otpauth_test_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
	})
	require.NoError(t, err)

	s, err := NewMongoStore(db)
	require.NoError(t, err)
	require.NoError(t, s.EnsureIndexes(ctx))

	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = s.Close(context.Background())
	})
	return s
}

func TestMongoStoreContract(t *testing.T) {
	if os.Getenv(mongoURIEnv) == "" {
		t.Skipf("%s not set", mongoURIEnv)
	}
	runStoreContract(t, func(t *testing.T) Store {
		return newTestMongoStore(t)
	})
}

func TestNewMongoStoreRequiresDatabase(t *testing.T) {
	_, err := NewMongoStore(nil)
	require.Error(t, err)
}
