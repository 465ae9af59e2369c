package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/charlesng35/otpauth/pkg/errors"
)

// MessageBody is the minimal payload returned by every endpoint.
type MessageBody struct {
	Message string `json:"message"`
}

// ErrorBody is written for failed requests.
type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// JSON writes an arbitrary success payload.
func JSON(c *gin.Context, statusCode int, payload any) {
	c.JSON(statusCode, payload)
}

// Message writes a `{message}` success response.
func Message(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, MessageBody{Message: message})
}

// Error writes a JSON error response derived from an AppError.
// Internal causes are never serialised.
func Error(c *gin.Context, err error) {
	if err == nil {
		err = appErrors.ErrInternalServer
	}

	appErr := appErrors.FromError(err)
	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	c.JSON(status, ErrorBody{
		Message: appErr.Message,
		Code:    appErr.Code,
	})
}
