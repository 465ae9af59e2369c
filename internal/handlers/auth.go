package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/otpauth/internal/services"
	appErrors "github.com/charlesng35/otpauth/pkg/errors"
	"github.com/charlesng35/otpauth/pkg/logger"
	"github.com/charlesng35/otpauth/pkg/response"
)

// Success messages returned by the passcode flows.
const (
	MsgPasscodeSent  = "OTP sent successfully"
	MsgRegistered    = "User registered successfully"
	MsgLoggedIn      = "Login successful"
	MsgAdminLoggedIn = "Admin login successful"
)

// AuthHandler exposes the passcode flows over HTTP.
type AuthHandler struct {
	svc *services.PasscodeAuthService
	log *zap.Logger
}

// NewAuthHandler constructs an AuthHandler around the passcode service.
func NewAuthHandler(svc *services.PasscodeAuthService) (*AuthHandler, error) {
	if svc == nil {
		return nil, errors.New("auth handler: passcode service is required")
	}
	return &AuthHandler{svc: svc, log: logger.WithModule("auth_handler")}, nil
}

// verifyRequest is the body of register, login and admin login.
type verifyRequest struct {
	Email string        `json:"email"`
	OTP   passcodeField `json:"otp"`
}

func (r verifyRequest) input() services.VerifyPasscodeInput {
	return services.VerifyPasscodeInput{Email: r.Email, OTP: string(r.OTP)}
}

type tokenResponse struct {
	Message string               `json:"message"`
	Token   string               `json:"token"`
	User    services.AccountView `json:"user"`
}

type meResponse struct {
	User meUser `json:"user"`
}

type meUser struct {
	ID      string `json:"id"`
	IsAdmin bool   `json:"isAdmin"`
}

// POST /api/auth/send-otp
func (h *AuthHandler) SendOTP(c *gin.Context) {
	var req services.SendPasscodeInput
	if err := decodeJSON(c, &req, services.MsgEmailRequired); err != nil {
		h.fail(c, err)
		return
	}

	if err := h.svc.SendPasscode(requestContext(c), req); err != nil {
		h.fail(c, err)
		return
	}

	response.Message(c, http.StatusOK, MsgPasscodeSent)
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req verifyRequest
	if err := decodeJSON(c, &req, services.MsgCredentialsMissing); err != nil {
		h.fail(c, err)
		return
	}

	result, err := h.svc.Register(requestContext(c), req.input())
	if err != nil {
		h.fail(c, err)
		return
	}

	h.log.Info("account registered", zap.String("user_id", result.User.ID))
	h.token(c, http.StatusCreated, MsgRegistered, result)
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req verifyRequest
	if err := decodeJSON(c, &req, services.MsgCredentialsMissing); err != nil {
		h.fail(c, err)
		return
	}

	result, err := h.svc.Login(requestContext(c), req.input())
	if err != nil {
		h.fail(c, err)
		return
	}

	h.token(c, http.StatusOK, MsgLoggedIn, result)
}

// POST /api/auth/admin/login
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req verifyRequest
	if err := decodeJSON(c, &req, services.MsgCredentialsMissing); err != nil {
		h.fail(c, err)
		return
	}

	result, err := h.svc.AdminLogin(requestContext(c), req.input())
	if err != nil {
		h.fail(c, err)
		return
	}

	h.log.Info("admin signed in", zap.String("user_id", result.User.ID))
	h.token(c, http.StatusOK, MsgAdminLoggedIn, result)
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	response.JSON(c, http.StatusOK, meResponse{
		User: meUser{ID: claims.UserID, IsAdmin: claims.IsAdmin},
	})
}

func (h *AuthHandler) token(c *gin.Context, status int, message string, result *services.AuthResult) {
	response.JSON(c, status, tokenResponse{
		Message: message,
		Token:   result.Token,
		User:    result.User,
	})
}

// fail logs infrastructure faults with their cause and writes the client error.
func (h *AuthHandler) fail(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	if appErr.StatusCode >= http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("code", appErr.Code),
			zap.Error(appErr.Internal),
		)
	}
	response.Error(c, appErr)
}
