package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/otpauth/internal/auth"
	"github.com/charlesng35/otpauth/internal/models"
	"github.com/charlesng35/otpauth/internal/store"
	"github.com/charlesng35/otpauth/pkg/crypto"
	appErrors "github.com/charlesng35/otpauth/pkg/errors"
	"github.com/charlesng35/otpauth/pkg/logger"
	"github.com/charlesng35/otpauth/pkg/metrics"
	"github.com/charlesng35/otpauth/pkg/validator"
)

const (
	// DefaultPasscodeTTL is how long an issued passcode stays valid.
	DefaultPasscodeTTL = 5 * time.Minute
	// DefaultPasscodeLength is the number of digits in an issued passcode.
	DefaultPasscodeLength = 6
)

// Flow labels used for logging and metrics.
const (
	FlowRegister   = "register"
	FlowLogin      = "login"
	FlowAdminLogin = "admin_login"
)

// Client-facing messages.
const (
	MsgEmailRequired      = "Email is required"
	MsgInvalidEmailFormat = "Invalid email format"
	MsgCredentialsMissing = "Email and OTP are required"
	MsgSendFailed         = "Failed to send OTP"
	MsgRegisterFailed     = "Failed to register user"
	MsgLoginFailed        = "Failed to login user"
	MsgAdminLoginFailed   = "Failed to login admin"
)

// TokenIssuer signs bearer tokens for authenticated accounts.
type TokenIssuer interface {
	GenerateAccessToken(input auth.AccessTokenInput) (string, error)
}

// SendPasscodeInput is the payload of the send-otp flow.
type SendPasscodeInput struct {
	Email string `json:"email" validate:"required,basic_email"`
}

// VerifyPasscodeInput is the payload shared by register, login and admin login.
type VerifyPasscodeInput struct {
	Email string `json:"email" validate:"required"`
	OTP   string `json:"otp" validate:"required"`
}

// AccountView is the account summary returned to clients.
type AccountView struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin,omitempty"`
}

// AuthResult is returned by every successful verification flow.
type AuthResult struct {
	Token string
	User  AccountView
}

// PasscodeAuthOption customises the PasscodeAuthService.
type PasscodeAuthOption func(*PasscodeAuthService)

// WithPasscodeClock injects a custom time source.
func WithPasscodeClock(clock func() time.Time) PasscodeAuthOption {
	return func(s *PasscodeAuthService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithPasscodeTTL overrides the passcode lifetime.
func WithPasscodeTTL(ttl time.Duration) PasscodeAuthOption {
	return func(s *PasscodeAuthService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithPasscodeLength overrides the number of digits in generated passcodes.
func WithPasscodeLength(digits int) PasscodeAuthOption {
	return func(s *PasscodeAuthService) {
		if digits > 0 {
			s.generate = func() (string, error) {
				return crypto.GenerateNumericCode(digits)
			}
		}
	}
}

// WithPasscodeGenerator replaces the passcode source.
func WithPasscodeGenerator(generate func() (string, error)) PasscodeAuthOption {
	return func(s *PasscodeAuthService) {
		if generate != nil {
			s.generate = generate
		}
	}
}

// WithPasscodeLogger sets the logger used for infrastructure faults.
func WithPasscodeLogger(log *zap.Logger) PasscodeAuthOption {
	return func(s *PasscodeAuthService) {
		if log != nil {
			s.log = log
		}
	}
}

// PasscodeAuthService implements the passcode issue and verification flows.
type PasscodeAuthService struct {
	accounts  store.AccountStore
	passcodes store.PasscodeStore
	notifier  Notifier
	tokens    TokenIssuer
	generate  func() (string, error)
	ttl       time.Duration
	now       func() time.Time
	log       *zap.Logger
}

// NewPasscodeAuthService constructs the service with its collaborators.
func NewPasscodeAuthService(accounts store.AccountStore, passcodes store.PasscodeStore, notifier Notifier, tokens TokenIssuer, opts ...PasscodeAuthOption) (*PasscodeAuthService, error) {
	if accounts == nil || passcodes == nil {
		return nil, errors.New("passcode auth service: store is required")
	}
	if notifier == nil {
		return nil, errors.New("passcode auth service: notifier is required")
	}
	if tokens == nil {
		return nil, errors.New("passcode auth service: token issuer is required")
	}

	svc := &PasscodeAuthService{
		accounts:  accounts,
		passcodes: passcodes,
		notifier:  notifier,
		tokens:    tokens,
		generate: func() (string, error) {
			return crypto.GenerateNumericCode(DefaultPasscodeLength)
		},
		ttl: DefaultPasscodeTTL,
		now: time.Now,
		log: logger.WithModule("passcode_auth"),
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

// SendPasscode issues a fresh code for the address, replacing any previous
// one, and emails it. The address is used exactly as submitted. A delivery
// failure leaves the new code stored.
func (s *PasscodeAuthService) SendPasscode(ctx context.Context, in SendPasscodeInput) error {
	if err := validator.ValidateStruct(in); err != nil {
		return sendInputError(err)
	}

	code, err := s.generate()
	if err != nil {
		metrics.PasscodesIssued.WithLabelValues("generate_error").Inc()
		return appErrors.ErrInternalServer.WithInternal(err).WithMessage(MsgSendFailed)
	}

	expiresAt := s.now().Add(s.ttl)
	if err := s.passcodes.UpsertPasscode(ctx, in.Email, code, expiresAt); err != nil {
		metrics.PasscodesIssued.WithLabelValues("store_error").Inc()
		return appErrors.ErrStoreFault.WithInternal(err).WithMessage(MsgSendFailed)
	}

	if err := s.notifier.Send(ctx, in.Email, code); err != nil {
		metrics.PasscodesIssued.WithLabelValues("delivery_error").Inc()
		return appErrors.ErrDeliveryFailure.WithInternal(err)
	}

	metrics.PasscodesIssued.WithLabelValues(metrics.ResultSuccess).Inc()
	s.log.Debug("passcode issued", logger.Email(in.Email))
	return nil
}

// Register creates an account for the address behind a valid passcode.
func (s *PasscodeAuthService) Register(ctx context.Context, in VerifyPasscodeInput) (*AuthResult, error) {
	result, err := s.register(ctx, in)
	recordAttempt(FlowRegister, err)
	return result, err
}

func (s *PasscodeAuthService) register(ctx context.Context, in VerifyPasscodeInput) (*AuthResult, error) {
	if err := s.checkPasscode(ctx, in, MsgRegisterFailed); err != nil {
		return nil, err
	}

	email := models.NormalizeEmail(in.Email)
	_, err := s.accounts.FindAccountByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, appErrors.ErrAccountExists
	case !errors.Is(err, store.ErrNotFound):
		return nil, appErrors.ErrStoreFault.WithInternal(err).WithMessage(MsgRegisterFailed)
	}

	account, err := s.accounts.CreateAccount(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, appErrors.ErrAccountExists
		}
		return nil, appErrors.ErrStoreFault.WithInternal(err).WithMessage(MsgRegisterFailed)
	}

	return s.complete(ctx, in.Email, account, false, MsgRegisterFailed)
}

// Login exchanges a valid passcode for a token of an existing account.
func (s *PasscodeAuthService) Login(ctx context.Context, in VerifyPasscodeInput) (*AuthResult, error) {
	result, err := s.login(ctx, in, false)
	recordAttempt(FlowLogin, err)
	return result, err
}

// AdminLogin is Login restricted to accounts flagged as administrators.
func (s *PasscodeAuthService) AdminLogin(ctx context.Context, in VerifyPasscodeInput) (*AuthResult, error) {
	result, err := s.login(ctx, in, true)
	recordAttempt(FlowAdminLogin, err)
	return result, err
}

func (s *PasscodeAuthService) login(ctx context.Context, in VerifyPasscodeInput, admin bool) (*AuthResult, error) {
	failMsg := MsgLoginFailed
	if admin {
		failMsg = MsgAdminLoginFailed
	}

	if err := s.checkPasscode(ctx, in, failMsg); err != nil {
		return nil, err
	}

	account, err := s.accounts.FindAccountByEmail(ctx, models.NormalizeEmail(in.Email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, appErrors.ErrAccountNotFound
		}
		return nil, appErrors.ErrStoreFault.WithInternal(err).WithMessage(failMsg)
	}

	if admin && !account.IsAdmin {
		return nil, appErrors.ErrForbidden
	}

	return s.complete(ctx, in.Email, account, admin, failMsg)
}

// checkPasscode validates the input and confirms a matching, unexpired code.
// The record is never modified here.
func (s *PasscodeAuthService) checkPasscode(ctx context.Context, in VerifyPasscodeInput, failMsg string) error {
	if err := validator.ValidateStruct(in); err != nil {
		return appErrors.NewInvalidInput(MsgCredentialsMissing)
	}

	record, err := s.passcodes.FindPasscode(ctx, in.Email, in.OTP)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return appErrors.ErrInvalidPasscode
		}
		return appErrors.ErrStoreFault.WithInternal(err).WithMessage(failMsg)
	}

	if record.Expired(s.now()) {
		return appErrors.ErrPasscodeExpired
	}
	return nil
}

// complete signs the token and only then consumes the passcode. If the
// code cannot be deleted the token is discarded.
func (s *PasscodeAuthService) complete(ctx context.Context, passcodeEmail string, account *models.Account, admin bool, failMsg string) (*AuthResult, error) {
	token, err := s.tokens.GenerateAccessToken(auth.AccessTokenInput{
		UserID:  account.ID,
		IsAdmin: admin,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, failMsg)
	}

	if err := s.passcodes.DeletePasscode(ctx, passcodeEmail); err != nil {
		return nil, appErrors.ErrStoreFault.WithInternal(err).WithMessage(failMsg)
	}

	return &AuthResult{
		Token: token,
		User: AccountView{
			ID:      account.ID,
			Email:   account.Email,
			IsAdmin: admin,
		},
	}, nil
}

func sendInputError(err error) error {
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) && vErrs.Has("email", "required") {
		return appErrors.NewInvalidInput(MsgEmailRequired)
	}
	return appErrors.NewInvalidInput(MsgInvalidEmailFormat)
}

func recordAttempt(flow string, err error) {
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultFailure
	}
	metrics.AuthAttempts.WithLabelValues(flow, result).Inc()
}
