package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/otpauth/internal/auth"
	"github.com/charlesng35/otpauth/internal/database/testutil"
	"github.com/charlesng35/otpauth/internal/models"
	"github.com/charlesng35/otpauth/internal/store"
)

type sentPasscode struct {
	Email string
	Code  string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentPasscode
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, email, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentPasscode{Email: email, Code: code})
	return nil
}

func (n *recordingNotifier) last(t *testing.T) sentPasscode {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.sent, "expected a passcode to be sent")
	return n.sent[len(n.sent)-1]
}

// faultStore wraps a real store, counting calls and failing selected operations.
type faultStore struct {
	store.Store

	mu    sync.Mutex
	calls int
	fail  map[string]error
}

func (f *faultStore) hit(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.fail[op]
}

func (f *faultStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *faultStore) failOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail == nil {
		f.fail = map[string]error{}
	}
	f.fail[op] = err
}

func (f *faultStore) FindAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	if err := f.hit("FindAccountByEmail"); err != nil {
		return nil, err
	}
	return f.Store.FindAccountByEmail(ctx, email)
}

func (f *faultStore) CreateAccount(ctx context.Context, email string) (*models.Account, error) {
	if err := f.hit("CreateAccount"); err != nil {
		return nil, err
	}
	return f.Store.CreateAccount(ctx, email)
}

func (f *faultStore) UpsertPasscode(ctx context.Context, email, code string, expiresAt time.Time) error {
	if err := f.hit("UpsertPasscode"); err != nil {
		return err
	}
	return f.Store.UpsertPasscode(ctx, email, code, expiresAt)
}

func (f *faultStore) FindPasscode(ctx context.Context, email, code string) (*models.PendingPasscode, error) {
	if err := f.hit("FindPasscode"); err != nil {
		return nil, err
	}
	return f.Store.FindPasscode(ctx, email, code)
}

func (f *faultStore) DeletePasscode(ctx context.Context, email string) error {
	if err := f.hit("DeletePasscode"); err != nil {
		return err
	}
	return f.Store.DeletePasscode(ctx, email)
}

type serviceFixture struct {
	svc      *PasscodeAuthService
	store    *faultStore
	notifier *recordingNotifier
	jwt      *auth.JWTService
	now      time.Time
}

func (f *serviceFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func newServiceFixture(t *testing.T, opts ...PasscodeAuthOption) *serviceFixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	sqlStore, err := store.NewSQLStore(db)
	require.NoError(t, err)

	fx := &serviceFixture{
		store:    &faultStore{Store: sqlStore},
		notifier: &recordingNotifier{},
		now:      time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return fx.now }

	fx.jwt, err = auth.NewJWTService(auth.JWTConfig{Secret: "test-secret", Clock: clock})
	require.NoError(t, err)

	opts = append([]PasscodeAuthOption{WithPasscodeClock(clock)}, opts...)
	fx.svc, err = NewPasscodeAuthService(fx.store, fx.store, fx.notifier, fx.jwt, opts...)
	require.NoError(t, err)

	return fx
}

// issue runs send-otp and returns the delivered code.
func (f *serviceFixture) issue(t *testing.T, email string) string {
	t.Helper()
	require.NoError(t, f.svc.SendPasscode(context.Background(), SendPasscodeInput{Email: email}))
	return f.notifier.last(t).Code
}
