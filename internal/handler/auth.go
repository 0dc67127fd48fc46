package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/flight-seat-reservation/internal/apperr"
	"github.com/iliyamo/flight-seat-reservation/internal/config"
	"github.com/iliyamo/flight-seat-reservation/internal/model"
	"github.com/iliyamo/flight-seat-reservation/internal/security"
	"github.com/iliyamo/flight-seat-reservation/internal/service"
	"github.com/iliyamo/flight-seat-reservation/internal/utils"
)

// AuthHandler registers airlines and passengers and logs them in.
type AuthHandler struct {
	cfg      config.Config
	catalog  *service.Catalog
	throttle *security.Throttle
	log      logrus.FieldLogger
}

func NewAuthHandler(cfg config.Config, catalog *service.Catalog, throttle *security.Throttle, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{cfg: cfg, catalog: catalog, throttle: throttle, log: log}
}

// RegisterAirline creates an airline account and returns an access token.
func (h *AuthHandler) RegisterAirline(c echo.Context) error {
	var req registerAirlineReq
	if err := bind(c, &req); err != nil {
		return err
	}
	hash, err := utils.HashPassword(req.Password, h.cfg.BcryptCost)
	if err != nil {
		return apperr.Internal("hash password failed", err)
	}
	a := &model.Airline{
		Name:         strings.TrimSpace(req.Name),
		IATACode:     strings.ToUpper(strings.TrimSpace(req.IATACode)),
		Country:      strings.TrimSpace(req.Country),
		Email:        normalizeEmail(req.Email),
		PasswordHash: hash,
	}
	if err := h.catalog.CreateAirline(c.Request().Context(), a); err != nil {
		return err
	}
	return h.issue(c, http.StatusCreated, a.ID, a.Email, utils.RoleAirline)
}

// RegisterPassenger creates a passenger account and returns an access
// token.
func (h *AuthHandler) RegisterPassenger(c echo.Context) error {
	var req registerPassengerReq
	if err := bind(c, &req); err != nil {
		return err
	}
	hash, err := utils.HashPassword(req.Password, h.cfg.BcryptCost)
	if err != nil {
		return apperr.Internal("hash password failed", err)
	}
	p := &model.Passenger{
		Name:         strings.TrimSpace(req.Name),
		Surname:      strings.TrimSpace(req.Surname),
		Email:        normalizeEmail(req.Email),
		PasswordHash: hash,
	}
	if err := h.catalog.RegisterPassenger(c.Request().Context(), p); err != nil {
		return err
	}
	return h.issue(c, http.StatusCreated, p.ID, p.Email, utils.RolePassenger)
}

// Login verifies credentials for the requested role.  Failures are
// counted per address and email; once the window is full the caller gets
// 429 until the oldest failure ages out.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return apperr.InvalidInput("invalid request body")
	}
	req.Email = normalizeEmail(req.Email)
	req.Role = strings.ToUpper(strings.TrimSpace(req.Role))
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	key := security.LoginKey(c.RealIP(), req.Email)
	allowed, retry, err := h.throttle.Allow(ctx, key)
	if err != nil {
		h.log.WithError(err).Warn("login throttle unavailable")
	}
	if !allowed {
		return tooManyAttempts(c, retry, "too many failed login attempts")
	}

	id, hash, err := h.lookup(ctx, req.Role, req.Email)
	if err != nil && !apperr.Is(err, apperr.CodeNotFound) {
		return err
	}
	if err != nil {
		utils.BurnPasswordCheck(req.Password)
		return h.fail(ctx, key)
	}
	if !utils.VerifyPassword(hash, req.Password) {
		return h.fail(ctx, key)
	}
	if err := h.throttle.Reset(ctx, key); err != nil {
		h.log.WithError(err).Warn("login throttle reset failed")
	}
	return h.issue(c, http.StatusOK, id, req.Email, req.Role)
}

func (h *AuthHandler) lookup(ctx context.Context, role, email string) (uint64, string, error) {
	if role == utils.RoleAirline {
		a, err := h.catalog.GetAirlineByEmail(ctx, email)
		if err != nil {
			return 0, "", err
		}
		return a.ID, a.PasswordHash, nil
	}
	p, err := h.catalog.GetPassengerByEmail(ctx, email)
	if err != nil {
		return 0, "", err
	}
	return p.ID, p.PasswordHash, nil
}

func (h *AuthHandler) fail(ctx context.Context, key string) error {
	if err := h.throttle.Fail(ctx, key); err != nil {
		h.log.WithError(err).Warn("login throttle record failed")
	}
	return apperr.Unauthorized("invalid credentials")
}

func (h *AuthHandler) issue(c echo.Context, status int, id uint64, email, role string) error {
	access, err := utils.NewAccessToken(h.cfg.JWTSecret, id, role, h.cfg.AccessTTLMin)
	if err != nil {
		return apperr.Internal("issue access token failed", err)
	}
	return c.JSON(status, authResp{
		Account: accountPart{ID: id, Email: email, Role: role},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// tooManyAttempts rejects a throttled caller with the seconds until the
// oldest failure leaves the window.
func tooManyAttempts(c echo.Context, retry time.Duration, msg string) error {
	secs := int(retry.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
	return apperr.TooManyRequests(msg).WithDetails(map[string]any{"retry_after": secs})
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
