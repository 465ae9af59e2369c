package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	appErrors "github.com/charlesng35/otpauth/pkg/errors"
)

// maxBodyBytes bounds request payloads; the largest valid body is two short strings.
const maxBodyBytes = 8 << 10

// decodeJSON reads the request body into dest. An empty body leaves dest
// zero-valued so field validation reports what is missing. Malformed JSON
// is rejected with invalidMsg.
func decodeJSON(c *gin.Context, dest any, invalidMsg string) error {
	if c.Request == nil || c.Request.Body == nil {
		return nil
	}

	decoder := json.NewDecoder(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return appErrors.NewInvalidInput(invalidMsg).WithInternal(err)
	}
	return nil
}

// passcodeField accepts the code as a JSON string or a JSON integer, so
// clients that send {"otp": 574514} match the stored "574514".
type passcodeField string

func (p *passcodeField) UnmarshalJSON(data []byte) error {
	raw := string(data)
	switch {
	case raw == "null":
		return nil
	case len(raw) > 0 && raw[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = passcodeField(s)
		return nil
	}

	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("otp must be a string or a non-negative integer, got %s", raw)
	}
	*p = passcodeField(strconv.FormatUint(n, 10))
	return nil
}
