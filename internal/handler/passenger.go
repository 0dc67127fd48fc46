package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/flight-seat-reservation/internal/apperr"
	"github.com/iliyamo/flight-seat-reservation/internal/middleware"
	"github.com/iliyamo/flight-seat-reservation/internal/model"
	"github.com/iliyamo/flight-seat-reservation/internal/security"
	"github.com/iliyamo/flight-seat-reservation/internal/service"
)

// IdempotencyHeader carries the client's request key for purchases.
const IdempotencyHeader = "Idempotency-Key"

const maxRequestKeyLen = 64

// PassengerHandler exposes ticket purchase and the passenger's own data.
type PassengerHandler struct {
	booking   *service.Booking
	lifecycle *service.Lifecycle
	throttle  *security.Throttle
	log       logrus.FieldLogger
}

func NewPassengerHandler(booking *service.Booking, lifecycle *service.Lifecycle, throttle *security.Throttle, log logrus.FieldLogger) *PassengerHandler {
	return &PassengerHandler{booking: booking, lifecycle: lifecycle, throttle: throttle, log: log}
}

// Purchase buys one ticket on :id for the authenticated passenger.  A
// repeated Idempotency-Key returns the first ticket with 200 instead of
// 201.  Rejected purchases count against a per-passenger window; a sold
// out flight does not.
func (h *PassengerHandler) Purchase(c echo.Context) error {
	pid, err := middleware.SubjectID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	key := security.PurchaseKey(pid)
	allowed, retry, err := h.throttle.Allow(ctx, key)
	if err != nil {
		h.log.WithError(err).Warn("purchase throttle unavailable")
	}
	if !allowed {
		return tooManyAttempts(c, retry, "too many failed purchase attempts")
	}

	t, replayed, err := h.purchase(c, pid)
	if err != nil {
		if !apperr.Is(err, apperr.CodeSeatsExhausted) {
			if ferr := h.throttle.Fail(ctx, key); ferr != nil {
				h.log.WithError(ferr).Warn("purchase throttle record failed")
			}
		}
		return err
	}
	if err := h.throttle.Reset(ctx, key); err != nil {
		h.log.WithError(err).Warn("purchase throttle reset failed")
	}
	if replayed {
		c.Response().Header().Set("Idempotent-Replayed", "true")
		return c.JSON(http.StatusOK, toTicket(t))
	}
	return c.JSON(http.StatusCreated, toTicket(t))
}

func (h *PassengerHandler) purchase(c echo.Context, pid uint64) (*model.Ticket, bool, error) {
	flightID, err := idParam(c, "id")
	if err != nil {
		return nil, false, err
	}
	var req purchaseReq
	if err := bind(c, &req); err != nil {
		return nil, false, err
	}
	key := strings.TrimSpace(c.Request().Header.Get(IdempotencyHeader))
	if len(key) > maxRequestKeyLen {
		return nil, false, apperr.Validation("request validation failed", map[string]any{IdempotencyHeader: "must be at most 64 characters"})
	}
	if req.Seat != nil {
		s := strings.ToUpper(strings.TrimSpace(*req.Seat))
		req.Seat = &s
	}

	r, err := h.booking.Purchase(c.Request().Context(), service.PurchaseRequest{
		PassengerID: pid,
		FlightID:    flightID,
		Class:       req.Class,
		ExtraIDs:    req.ExtraIDs,
		Seat:        req.Seat,
		RequestKey:  key,
	})
	if err != nil {
		return nil, false, err
	}
	return r.Ticket, r.Replayed, nil
}

func (h *PassengerHandler) MyTickets(c echo.Context) error {
	pid, err := middleware.SubjectID(c)
	if err != nil {
		return err
	}
	items, err := h.booking.ListByPassenger(c.Request().Context(), pid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newList(items, toTicket))
}

func (h *PassengerHandler) GetTicket(c echo.Context) error {
	pid, err := middleware.SubjectID(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	t, err := h.booking.GetTicket(c.Request().Context(), pid, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTicket(t))
}

// DeleteMe removes the passenger account and all of its tickets.
func (h *PassengerHandler) DeleteMe(c echo.Context) error {
	pid, err := middleware.SubjectID(c)
	if err != nil {
		return err
	}
	if err := h.lifecycle.DeletePassenger(c.Request().Context(), pid); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
