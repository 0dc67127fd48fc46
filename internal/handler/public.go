package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/flight-seat-reservation/internal/apperr"
	"github.com/iliyamo/flight-seat-reservation/internal/model"
	"github.com/iliyamo/flight-seat-reservation/internal/service"
)

// PublicHandler serves the unauthenticated catalog and flight search.
type PublicHandler struct {
	catalog *service.Catalog
	flights *service.Flights
}

func NewPublicHandler(catalog *service.Catalog, flights *service.Flights) *PublicHandler {
	return &PublicHandler{catalog: catalog, flights: flights}
}

func (h *PublicHandler) ListAirlines(c echo.Context) error {
	items, err := h.catalog.ListAirlines(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newList(items, toAirline))
}

func (h *PublicHandler) GetAirline(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	a, err := h.catalog.GetAirline(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAirline(a))
}

func (h *PublicHandler) ListAirports(c echo.Context) error {
	items, err := h.catalog.ListAirports(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newList(items, toAirport))
}

func (h *PublicHandler) GetAirport(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	a, err := h.catalog.GetAirport(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAirport(a))
}

func (h *PublicHandler) ListExtras(c echo.Context) error {
	items, err := h.catalog.ListExtras(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newList(items, toExtra))
}

func (h *PublicHandler) GetExtra(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	e, err := h.catalog.GetExtra(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toExtra(e))
}

func (h *PublicHandler) GetFlight(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	f, err := h.flights.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toFlight(f))
}

// SearchFlights: /v1/flights/search?from=1&to=2&date=2025-06-01&sort=price|duration
func (h *PublicHandler) SearchFlights(c echo.Context) error {
	problems := map[string]any{}
	from, err := strconv.ParseUint(c.QueryParam("from"), 10, 64)
	if err != nil || from == 0 {
		problems["from"] = "must be an airport id"
	}
	to, err := strconv.ParseUint(c.QueryParam("to"), 10, 64)
	if err != nil || to == 0 {
		problems["to"] = "must be an airport id"
	}
	date, err := time.Parse(time.DateOnly, c.QueryParam("date"))
	if err != nil {
		problems["date"] = "must be YYYY-MM-DD"
	}
	if len(problems) > 0 {
		return apperr.Validation("invalid search", problems)
	}

	q := model.FlightQuery{
		DepartureAirportID: from,
		ArrivalAirportID:   to,
		Date:               date,
		Sort:               model.FlightSort(strings.ToLower(strings.TrimSpace(c.QueryParam("sort")))),
	}
	items, err := h.flights.Search(c.Request().Context(), q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newList(items, toFlight))
}
