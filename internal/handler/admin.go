package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/flight-seat-reservation/internal/model"
	"github.com/iliyamo/flight-seat-reservation/internal/service"
)

// AdminHandler maintains reference data and force-deletes accounts.
// Routes are guarded by the X-API-Key middleware.
type AdminHandler struct {
	catalog   *service.Catalog
	lifecycle *service.Lifecycle
}

func NewAdminHandler(catalog *service.Catalog, lifecycle *service.Lifecycle) *AdminHandler {
	return &AdminHandler{catalog: catalog, lifecycle: lifecycle}
}

func (h *AdminHandler) CreateAirport(c echo.Context) error {
	var req createAirportReq
	if err := bind(c, &req); err != nil {
		return err
	}
	a := &model.Airport{
		Name:     strings.TrimSpace(req.Name),
		City:     strings.TrimSpace(req.City),
		Country:  strings.TrimSpace(req.Country),
		IATACode: strings.ToUpper(strings.TrimSpace(req.IATACode)),
	}
	if err := h.catalog.CreateAirport(c.Request().Context(), a); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toAirport(a))
}

func (h *AdminHandler) CreateExtra(c echo.Context) error {
	var req createExtraReq
	if err := bind(c, &req); err != nil {
		return err
	}
	e := &model.Extra{Name: strings.TrimSpace(req.Name), CostCents: req.CostCents}
	if err := h.catalog.CreateExtra(c.Request().Context(), e); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toExtra(e))
}

func (h *AdminHandler) DeleteAirport(c echo.Context) error {
	return h.remove(c, h.lifecycle.DeleteAirport)
}

func (h *AdminHandler) DeleteExtra(c echo.Context) error {
	return h.remove(c, h.lifecycle.DeleteExtra)
}

func (h *AdminHandler) DeleteAirline(c echo.Context) error {
	return h.remove(c, h.lifecycle.DeleteAirline)
}

func (h *AdminHandler) DeletePassenger(c echo.Context) error {
	return h.remove(c, h.lifecycle.DeletePassenger)
}

func (h *AdminHandler) DeleteTicket(c echo.Context) error {
	return h.remove(c, h.lifecycle.DeleteTicket)
}

func (h *AdminHandler) remove(c echo.Context, del func(context.Context, uint64) error) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := del(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
