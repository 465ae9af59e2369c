package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/otpauth/internal/app"
	"github.com/charlesng35/otpauth/internal/database/testutil"
	"github.com/charlesng35/otpauth/internal/store"
)

type keepOpenStore struct {
	store.Store
}

func (keepOpenStore) Close(context.Context) error { return nil }

func useTestStore(t *testing.T) *store.SQLStore {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	sqlStore, err := store.NewSQLStore(db)
	require.NoError(t, err)

	original := storeOpener
	storeOpener = func(context.Context, app.DatabaseConfig) (store.Store, error) {
		return keepOpenStore{Store: sqlStore}, nil
	}
	t.Cleanup(func() { storeOpener = original })
	return sqlStore
}

func TestGrantAndRevokeAdmin(t *testing.T) {
	st := useTestStore(t)
	ctx := context.Background()
	_, err := st.CreateAccount(ctx, "ops@example.com")
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, run(ctx, []string{"grant-admin", "-email", "Ops@Example.com"}, &out))
	require.Contains(t, out.String(), "isAdmin=true")

	account, err := st.FindAccountByEmail(ctx, "ops@example.com")
	require.NoError(t, err)
	require.True(t, account.IsAdmin)

	out.Reset()
	require.NoError(t, run(ctx, []string{"revoke-admin", "-email", "ops@example.com"}, &out))
	require.Contains(t, out.String(), "isAdmin=false")
}

func TestGrantAdminUnknownAccount(t *testing.T) {
	useTestStore(t)

	err := run(context.Background(), []string{"grant-admin", "-email", "ghost@example.com"}, &bytes.Buffer{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no account registered")

	err = run(context.Background(), []string{"grant-admin"}, &bytes.Buffer{})
	require.EqualError(t, err, "-email is required")
}

func TestPurgePasscodes(t *testing.T) {
	st := useTestStore(t)
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, st.UpsertPasscode(ctx, "old@example.com", "111111", now.Add(-48*time.Hour)))
	require.NoError(t, st.UpsertPasscode(ctx, "fresh@example.com", "222222", now.Add(time.Minute)))

	var out bytes.Buffer
	require.NoError(t, run(ctx, []string{"purge-passcodes", "-retention", "1h"}, &out))
	require.Equal(t, "removed 1 expired passcodes\n", out.String())

	_, err := st.FindPasscode(ctx, "fresh@example.com", "222222")
	require.NoError(t, err)
}

func TestUnknownCommand(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), []string{"rotate-keys"}, &out)
	require.EqualError(t, err, `unknown command "rotate-keys"`)
	require.Contains(t, out.String(), "usage: otpctl")

	require.EqualError(t, run(context.Background(), nil, &out), "command is required")
}
