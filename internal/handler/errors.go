package handler // package handler contains the echo HTTP handlers and their DTOs

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/flight-seat-reservation/internal/apperr"
)

type errorPart struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type errorResponse struct {
	Error errorPart `json:"error"`
}

// ErrorHandler renders every error as {"error": {code, message, details}}.
// Classified errors keep their status; echo's own errors (unknown route,
// wrong method, oversized body) are mapped by status; anything else is a
// 500 whose cause is logged but never shown.
func ErrorHandler(log logrus.FieldLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		ae := classify(err)
		entry := log.WithFields(logrus.Fields{
			"code":   ae.Code,
			"method": c.Request().Method,
			"path":   c.Path(),
		})
		if ae.HTTPStatus >= http.StatusInternalServerError {
			entry.WithError(err).Error("request failed")
		} else {
			entry.Debug(ae.Message)
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(ae.HTTPStatus)
			return
		}
		_ = c.JSON(ae.HTTPStatus, errorResponse{Error: errorPart{
			Code:    ae.Code,
			Message: ae.Message,
			Details: ae.Details,
		}})
	}
}

func classify(err error) *apperr.Error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := fmt.Sprint(he.Message)
		switch he.Code {
		case http.StatusNotFound:
			return &apperr.Error{Code: apperr.CodeNotFound, Message: msg, HTTPStatus: he.Code}
		case http.StatusUnauthorized:
			return apperr.Unauthorized(msg)
		case http.StatusForbidden:
			return apperr.Forbidden(msg)
		case http.StatusTooManyRequests:
			return apperr.TooManyRequests(msg)
		}
		if he.Code < http.StatusInternalServerError {
			return &apperr.Error{Code: apperr.CodeInvalidInput, Message: msg, HTTPStatus: he.Code}
		}
	}
	return apperr.From(err)
}
