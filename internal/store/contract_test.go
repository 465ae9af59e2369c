package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// runStoreContract exercises the behaviour every Store backend must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	t.Run("upsert then find exact match", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.UpsertPasscode(ctx, "alice@example.com", "123456", base.Add(5*time.Minute)))

		record, err := s.FindPasscode(ctx, "alice@example.com", "123456")
		require.NoError(t, err)
		require.Equal(t, "alice@example.com", record.Email)
		require.Equal(t, "123456", record.Code)
		require.Equal(t, base.Add(5*time.Minute).Unix(), record.ExpiresAt.Unix())

		_, err = s.FindPasscode(ctx, "alice@example.com", "654321")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("passcode email is matched verbatim", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.UpsertPasscode(ctx, "Bob@Example.com", "111111", base.Add(time.Minute)))

		_, err := s.FindPasscode(ctx, "bob@example.com", "111111")
		require.ErrorIs(t, err, ErrNotFound)

		_, err = s.FindPasscode(ctx, "Bob@Example.com", "111111")
		require.NoError(t, err)
	})

	t.Run("upsert overwrites the previous code", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.UpsertPasscode(ctx, "carol@example.com", "000001", base.Add(time.Minute)))
		require.NoError(t, s.UpsertPasscode(ctx, "carol@example.com", "000002", base.Add(2*time.Minute)))

		_, err := s.FindPasscode(ctx, "carol@example.com", "000001")
		require.ErrorIs(t, err, ErrNotFound)

		record, err := s.FindPasscode(ctx, "carol@example.com", "000002")
		require.NoError(t, err)
		require.Equal(t, base.Add(2*time.Minute).Unix(), record.ExpiresAt.Unix())
	})

	t.Run("expired passcodes are still returned", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.UpsertPasscode(ctx, "dave@example.com", "222222", base.Add(-time.Hour)))

		record, err := s.FindPasscode(ctx, "dave@example.com", "222222")
		require.NoError(t, err)
		require.True(t, record.Expired(base))
	})

	t.Run("delete removes the code and tolerates absence", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.UpsertPasscode(ctx, "erin@example.com", "333333", base.Add(time.Minute)))
		require.NoError(t, s.DeletePasscode(ctx, "erin@example.com"))

		_, err := s.FindPasscode(ctx, "erin@example.com", "333333")
		require.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, s.DeletePasscode(ctx, "erin@example.com"))
	})

	t.Run("purge removes only codes expired before the cutoff", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.UpsertPasscode(ctx, "old@example.com", "444444", base.Add(-48*time.Hour)))
		require.NoError(t, s.UpsertPasscode(ctx, "recent@example.com", "555555", base.Add(-time.Hour)))
		require.NoError(t, s.UpsertPasscode(ctx, "live@example.com", "666666", base.Add(time.Minute)))

		purged, err := s.PurgeExpiredPasscodes(ctx, base.Add(-24*time.Hour))
		require.NoError(t, err)
		require.Equal(t, int64(1), purged)

		_, err = s.FindPasscode(ctx, "old@example.com", "444444")
		require.ErrorIs(t, err, ErrNotFound)
		_, err = s.FindPasscode(ctx, "recent@example.com", "555555")
		require.NoError(t, err)
		_, err = s.FindPasscode(ctx, "live@example.com", "666666")
		require.NoError(t, err)
	})

	t.Run("accounts are normalised and unique", func(t *testing.T) {
		s := newStore(t)

		_, err := s.FindAccountByEmail(ctx, "frank@example.com")
		require.ErrorIs(t, err, ErrNotFound)

		created, err := s.CreateAccount(ctx, "  Frank@Example.com ")
		require.NoError(t, err)
		require.NotEmpty(t, created.ID)
		require.Equal(t, "frank@example.com", created.Email)
		require.False(t, created.IsAdmin)

		found, err := s.FindAccountByEmail(ctx, "FRANK@example.com")
		require.NoError(t, err)
		require.Equal(t, created.ID, found.ID)

		_, err = s.CreateAccount(ctx, "frank@EXAMPLE.com")
		require.ErrorIs(t, err, ErrDuplicate)
	})

	t.Run("set admin toggles the flag", func(t *testing.T) {
		s := newStore(t)

		_, err := s.SetAdmin(ctx, "ghost@example.com", true)
		require.ErrorIs(t, err, ErrNotFound)

		created, err := s.CreateAccount(ctx, "grace@example.com")
		require.NoError(t, err)

		updated, err := s.SetAdmin(ctx, "grace@example.com", true)
		require.NoError(t, err)
		require.Equal(t, created.ID, updated.ID)
		require.True(t, updated.IsAdmin)

		found, err := s.FindAccountByEmail(ctx, "grace@example.com")
		require.NoError(t, err)
		require.True(t, found.IsAdmin)

		updated, err = s.SetAdmin(ctx, "grace@example.com", false)
		require.NoError(t, err)
		require.False(t, updated.IsAdmin)
	})

	t.Run("ping", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Ping(ctx))
	})
}
