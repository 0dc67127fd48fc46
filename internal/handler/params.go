package handler

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/flight-seat-reservation/internal/apperr"
)

// idParam parses a positive numeric path parameter.
func idParam(c echo.Context, name string) (uint64, error) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.InvalidInput("invalid " + name)
	}
	return id, nil
}

// bind decodes the JSON body into dst and runs the struct validator.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return apperr.InvalidInput("invalid request body")
	}
	return c.Validate(dst)
}
