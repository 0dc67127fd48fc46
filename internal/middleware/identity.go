package middleware

// identity.go holds the context keys written by JWTAuth and the helpers
// that read them back.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/flight-seat-reservation/internal/apperr"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// SubjectID returns the authenticated airline or passenger id.
func SubjectID(c echo.Context) (uint64, error) {
	if id, ok := c.Get(ctxUserID).(uint64); ok && id > 0 {
		return id, nil
	}
	return 0, apperr.Unauthorized("authentication required")
}

// Role returns the authenticated role or "".
func Role(c echo.Context) string {
	r, _ := c.Get(ctxRole).(string)
	return r
}

// userKey identifies the caller for rate limiting; "anon" when no token
// was presented.
func userKey(c echo.Context) string {
	if id, ok := c.Get(ctxUserID).(uint64); ok && id > 0 {
		return Role(c) + "-" + strconv.FormatUint(id, 10)
	}
	return "anon"
}
