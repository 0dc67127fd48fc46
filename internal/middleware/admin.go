package middleware

import (
	"crypto/subtle"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/flight-seat-reservation/internal/apperr"
)

// AdminKey guards catalog administration with a static X-API-Key.  An
// empty key disables the admin surface entirely.
func AdminKey(key string) echo.MiddlewareFunc {
	return echomw.KeyAuthWithConfig(echomw.KeyAuthConfig{
		KeyLookup: "header:X-API-Key",
		Validator: func(got string, _ echo.Context) (bool, error) {
			if key == "" {
				return false, nil
			}
			return subtle.ConstantTimeCompare([]byte(got), []byte(key)) == 1, nil
		},
		ErrorHandler: func(error, echo.Context) error {
			return apperr.Unauthorized("valid X-API-Key required")
		},
	})
}
