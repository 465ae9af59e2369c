package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/otpauth/internal/api"
	"github.com/charlesng35/otpauth/internal/app"
	iauth "github.com/charlesng35/otpauth/internal/auth"
	sharedtestutil "github.com/charlesng35/otpauth/internal/database/testutil"
	"github.com/charlesng35/otpauth/internal/models"
	"github.com/charlesng35/otpauth/internal/monitoring"
	"github.com/charlesng35/otpauth/internal/monitoring/checks"
	"github.com/charlesng35/otpauth/internal/services"
	"github.com/charlesng35/otpauth/internal/store"
	"github.com/charlesng35/otpauth/pkg/mail"
	"github.com/charlesng35/otpauth/pkg/response"
)

const jwtSecret = "test-suite-super-secret-key-32-bytes!!"

var codePattern = regexp.MustCompile(`Your OTP is: (\d+)`)

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T      *testing.T
	Store  *FaultStore
	Mailer *CaptureMailer
	Router *gin.Engine
	JWT    *iauth.JWTService

	mu  sync.Mutex
	now time.Time
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate())
	sqlStore, err := store.NewSQLStore(db)
	require.NoError(t, err)

	env := &Env{
		T:      t,
		Store:  &FaultStore{Store: sqlStore},
		Mailer: &CaptureMailer{},
		now:    time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	cfg := &app.Config{
		Server: app.ServerConfig{FrontendURL: "http://localhost:3000"},
		Auth: app.AuthConfig{
			JWT:      app.JWTSettings{Secret: jwtSecret, Issuer: "test-suite"},
			Passcode: app.PasscodeSettings{Length: 6, TTL: 5 * time.Minute},
		},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
			Health:     app.HealthConfig{Enabled: true},
		},
	}

	jwtCfg := cfg.Auth.JWTServiceConfig()
	jwtCfg.Clock = env.Now
	env.JWT, err = iauth.NewJWTService(jwtCfg)
	require.NoError(t, err)

	notifier, err := services.NewPasscodeNotifier(env.Mailer, services.NotifierConfig{
		From:     "no-reply@example.com",
		Lifetime: cfg.Auth.PasscodeLifetime(),
	})
	require.NoError(t, err)

	opts := append(cfg.Auth.PasscodeOptions(), services.WithPasscodeClock(env.Now))
	svc, err := services.NewPasscodeAuthService(env.Store, env.Store, notifier, env.JWT, opts...)
	require.NoError(t, err)

	health := monitoring.NewHealthManager()
	health.RegisterReadiness(checks.Store(env.Store, time.Second))

	env.Router, err = api.NewRouter(svc, env.JWT, cfg, health)
	require.NoError(t, err)

	return env
}

// Now is the clock shared by the service and the token issuer.
func (e *Env) Now() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

// Advance moves the shared clock forward.
func (e *Env) Advance(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = e.now.Add(d)
}

// SendOTP requests a passcode for email and returns the code from the captured email.
func (e *Env) SendOTP(email string) string {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/auth/send-otp", map[string]string{"email": email}, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())
	return e.Mailer.LastCode(e.T)
}

// Register sends a passcode and registers email with it.
func (e *Env) Register(email string) TokenResult {
	e.T.Helper()

	code := e.SendOTP(email)
	w := e.Request(http.MethodPost, "/api/auth/register", map[string]string{"email": email, "otp": code}, "")
	require.Equal(e.T, http.StatusCreated, w.Code, w.Body.String())
	return DecodeInto[TokenResult](e.T, w)
}

// PromoteAdmin flags the account as an administrator.
func (e *Env) PromoteAdmin(email string) {
	e.T.Helper()
	_, err := e.Store.SetAdmin(context.Background(), email, true)
	require.NoError(e.T, err)
}

// UserPayload captures the account view returned from auth endpoints.
type UserPayload struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
}

// TokenResult mirrors the register and login response payloads.
type TokenResult struct {
	Message string      `json:"message"`
	Token   string      `json:"token"`
	User    UserPayload `json:"user"`
}

// DecodeError parses an error body from a recorder.
func DecodeError(t *testing.T, w *httptest.ResponseRecorder) response.ErrorBody {
	t.Helper()
	return DecodeInto[response.ErrorBody](t, w)
}

// DecodeInto unmarshals the response body into a new T.
func DecodeInto[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var dest T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dest), w.Body.String())
	return dest
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	switch v := body.(type) {
	case nil:
		buf = bytes.NewBuffer(nil)
	case []byte:
		buf = bytes.NewBuffer(v)
	case string:
		buf = bytes.NewBufferString(v)
	default:
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// CaptureMailer records outgoing messages and can be told to fail.
type CaptureMailer struct {
	mu       sync.Mutex
	messages []mail.Message
	err      error
}

// Send implements mail.Mailer.
func (m *CaptureMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msg)
	return nil
}

// Fail makes every following Send return err; nil restores delivery.
func (m *CaptureMailer) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Count returns the number of delivered messages.
func (m *CaptureMailer) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

// LastCode extracts the passcode from the most recent message.
func (m *CaptureMailer) LastCode(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()

	require.NotEmpty(t, m.messages, "expected a passcode email")
	match := codePattern.FindStringSubmatch(m.messages[len(m.messages)-1].Body)
	require.Len(t, match, 2, "passcode not found in email body")
	return match[1]
}

// FaultStore wraps a real store and fails selected operations.
type FaultStore struct {
	store.Store

	mu   sync.Mutex
	fail map[string]error
}

// FailOn makes the named operation return err; nil clears the fault.
func (f *FaultStore) FailOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail == nil {
		f.fail = map[string]error{}
	}
	f.fail[op] = err
}

func (f *FaultStore) fault(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fail[op]
}

func (f *FaultStore) UpsertPasscode(ctx context.Context, email, code string, expiresAt time.Time) error {
	if err := f.fault("UpsertPasscode"); err != nil {
		return err
	}
	return f.Store.UpsertPasscode(ctx, email, code, expiresAt)
}

func (f *FaultStore) FindPasscode(ctx context.Context, email, code string) (*models.PendingPasscode, error) {
	if err := f.fault("FindPasscode"); err != nil {
		return nil, err
	}
	return f.Store.FindPasscode(ctx, email, code)
}

func (f *FaultStore) DeletePasscode(ctx context.Context, email string) error {
	if err := f.fault("DeletePasscode"); err != nil {
		return err
	}
	return f.Store.DeletePasscode(ctx, email)
}

func (f *FaultStore) CreateAccount(ctx context.Context, email string) (*models.Account, error) {
	if err := f.fault("CreateAccount"); err != nil {
		return nil, err
	}
	return f.Store.CreateAccount(ctx, email)
}

func (f *FaultStore) FindAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	if err := f.fault("FindAccountByEmail"); err != nil {
		return nil, err
	}
	return f.Store.FindAccountByEmail(ctx, email)
}

func (f *FaultStore) Ping(ctx context.Context) error {
	if err := f.fault("Ping"); err != nil {
		return err
	}
	return f.Store.Ping(ctx)
}
