package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/flight-seat-reservation/internal/middleware"
	"github.com/iliyamo/flight-seat-reservation/internal/model"
	"github.com/iliyamo/flight-seat-reservation/internal/service"
)

// AirlineHandler is the airline's own surface: fleet, schedule,
// manifests and sales statistics.  Every route acts on the authenticated
// airline only.
type AirlineHandler struct {
	catalog   *service.Catalog
	flights   *service.Flights
	booking   *service.Booking
	lifecycle *service.Lifecycle
}

func NewAirlineHandler(catalog *service.Catalog, flights *service.Flights, booking *service.Booking, lifecycle *service.Lifecycle) *AirlineHandler {
	return &AirlineHandler{catalog: catalog, flights: flights, booking: booking, lifecycle: lifecycle}
}

func (h *AirlineHandler) CreateAircraft(c echo.Context) error {
	aid, err := middleware.SubjectID(c)
	if err != nil {
		return err
	}
	var req createAircraftReq
	if err := bind(c, &req); err != nil {
		return err
	}
	a := &model.Aircraft{AirlineID: aid, Model: strings.TrimSpace(req.Model), TotalSeats: req.TotalSeats}
	if err := h.catalog.CreateAircraft(c.Request().Context(), a); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toAircraft(a))
}

func (h *AirlineHandler) ListAircraft(c echo.Context) error {
	aid, err := middleware.SubjectID(c)
	if err != nil {
		return err
	}
	items, err := h.catalog.ListAircraftByAirline(c.Request().Context(), aid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newList(items, toAircraft))
}

// DeleteAircraft refuses with 409 while any flight still uses the
// aircraft.
func (h *AirlineHandler) DeleteAircraft(c echo.Context) error {
	aid, err := middleware.SubjectID(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.lifecycle.DeleteOwnAircraft(c.Request().Context(), aid, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AirlineHandler) CreateFlight(c echo.Context) error {
	aid, err := middleware.SubjectID(c)
	if err != nil {
		return err
	}
	var req createFlightReq
	if err := bind(c, &req); err != nil {
		return err
	}
	f := &model.Flight{
		AirlineID:          aid,
		AircraftID:         req.AircraftID,
		DepartureAirportID: req.DepartureAirportID,
		ArrivalAirportID:   req.ArrivalAirportID,
		DepartureAt:        req.DepartureAt,
		ArrivalAt:          req.ArrivalAt,
		Capacity:           req.Capacity,
		EconomyCents:       req.EconomyCents,
		BusinessCents:      req.BusinessCents,
		FirstCents:         req.FirstCents,
	}
	if err := h.flights.Create(c.Request().Context(), f); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toFlight(f))
}

func (h *AirlineHandler) ListFlights(c echo.Context) error {
	aid, err := middleware.SubjectID(c)
	if err != nil {
		return err
	}
	items, err := h.flights.ListByAirline(c.Request().Context(), aid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newList(items, toFlight))
}

// DeleteFlight cancels a flight together with every ticket issued on it.
func (h *AirlineHandler) DeleteFlight(c echo.Context) error {
	aid, err := middleware.SubjectID(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.lifecycle.DeleteOwnFlight(c.Request().Context(), aid, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Manifest lists the tickets sold on one of the airline's flights.
func (h *AirlineHandler) Manifest(c echo.Context) error {
	aid, err := middleware.SubjectID(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	items, err := h.booking.ListByFlight(c.Request().Context(), aid, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newList(items, toTicket))
}

func (h *AirlineHandler) Stats(c echo.Context) error {
	aid, err := middleware.SubjectID(c)
	if err != nil {
		return err
	}
	s, err := h.booking.AirlineStats(c.Request().Context(), aid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toStats(s))
}

// DeleteMe removes the airline with its fleet, flights and tickets.
func (h *AirlineHandler) DeleteMe(c echo.Context) error {
	aid, err := middleware.SubjectID(c)
	if err != nil {
		return err
	}
	if err := h.lifecycle.DeleteAirline(c.Request().Context(), aid); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
