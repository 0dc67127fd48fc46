// Package service holds the booking core: catalog management, flight
// scheduling and search, the ticket purchase saga and the cascading
// deletes.  Services depend only on the store interfaces in ports.go.
package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/flight-seat-reservation/internal/apperr"
	"github.com/iliyamo/flight-seat-reservation/internal/model"
)

// CacheInvalidator drops cached public catalog responses.  It is
// satisfied by the Redis response cache middleware.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// invalidate clears the response cache after a catalog mutation.  A
// failure only means stale reads until the entries expire.
func invalidate(ctx context.Context, c CacheInvalidator, log logrus.FieldLogger) {
	if c == nil {
		return
	}
	if err := c.Invalidate(context.WithoutCancel(ctx)); err != nil {
		log.WithError(err).Warn("catalog cache invalidation failed")
	}
}

// Catalog creates and reads reference data.  Uniqueness is enforced by
// the stores in the same step as the insert.
type Catalog struct {
	airlines   AirlineStore
	aircraft   AircraftStore
	airports   AirportStore
	extras     ExtraStore
	passengers PassengerStore
	cache      CacheInvalidator
	log        logrus.FieldLogger
}

func NewCatalog(st Stores, cache CacheInvalidator, log logrus.FieldLogger) *Catalog {
	return &Catalog{
		airlines:   st.Airlines,
		aircraft:   st.Aircraft,
		airports:   st.Airports,
		extras:     st.Extras,
		passengers: st.Passengers,
		cache:      cache,
		log:        log,
	}
}

func (c *Catalog) CreateAirline(ctx context.Context, a *model.Airline) error {
	problems := map[string]any{}
	if strings.TrimSpace(a.Name) == "" {
		problems["name"] = "required"
	}
	if len(strings.TrimSpace(a.IATACode)) != 2 {
		problems["iata_code"] = "must be 2 characters"
	}
	if len(problems) > 0 {
		return apperr.Validation("invalid airline", problems)
	}
	if err := c.airlines.Create(ctx, a); err != nil {
		return err
	}
	invalidate(ctx, c.cache, c.log)
	return nil
}

func (c *Catalog) GetAirline(ctx context.Context, id uint64) (*model.Airline, error) {
	return c.airlines.GetByID(ctx, id)
}

func (c *Catalog) GetAirlineByEmail(ctx context.Context, email string) (*model.Airline, error) {
	return c.airlines.GetByEmail(ctx, email)
}

func (c *Catalog) ListAirlines(ctx context.Context) ([]*model.Airline, error) {
	return c.airlines.List(ctx)
}

// CreateAircraft registers an aircraft for an existing airline.
func (c *Catalog) CreateAircraft(ctx context.Context, a *model.Aircraft) error {
	if a.TotalSeats <= 0 {
		return apperr.Validation("invalid aircraft", map[string]any{"total_seats": "must be positive"})
	}
	if _, err := c.airlines.GetByID(ctx, a.AirlineID); err != nil {
		return err
	}
	return c.aircraft.Create(ctx, a)
}

func (c *Catalog) GetAircraft(ctx context.Context, id uint64) (*model.Aircraft, error) {
	return c.aircraft.GetByID(ctx, id)
}

func (c *Catalog) ListAircraftByAirline(ctx context.Context, airlineID uint64) ([]*model.Aircraft, error) {
	return c.aircraft.ListByAirline(ctx, airlineID)
}

func (c *Catalog) CreateAirport(ctx context.Context, a *model.Airport) error {
	if len(strings.TrimSpace(a.IATACode)) != 3 {
		return apperr.Validation("invalid airport", map[string]any{"iata_code": "must be 3 characters"})
	}
	if err := c.airports.Create(ctx, a); err != nil {
		return err
	}
	invalidate(ctx, c.cache, c.log)
	return nil
}

func (c *Catalog) GetAirport(ctx context.Context, id uint64) (*model.Airport, error) {
	return c.airports.GetByID(ctx, id)
}

func (c *Catalog) ListAirports(ctx context.Context) ([]*model.Airport, error) {
	return c.airports.List(ctx)
}

func (c *Catalog) CreateExtra(ctx context.Context, e *model.Extra) error {
	problems := map[string]any{}
	if strings.TrimSpace(e.Name) == "" {
		problems["name"] = "required"
	}
	if e.CostCents <= 0 {
		problems["cost_cents"] = "must be positive"
	}
	if len(problems) > 0 {
		return apperr.Validation("invalid extra", problems)
	}
	if err := c.extras.Create(ctx, e); err != nil {
		return err
	}
	invalidate(ctx, c.cache, c.log)
	return nil
}

func (c *Catalog) GetExtra(ctx context.Context, id uint64) (*model.Extra, error) {
	return c.extras.GetByID(ctx, id)
}

func (c *Catalog) ListExtras(ctx context.Context) ([]*model.Extra, error) {
	return c.extras.List(ctx)
}

func (c *Catalog) RegisterPassenger(ctx context.Context, p *model.Passenger) error {
	if strings.TrimSpace(p.Email) == "" {
		return apperr.Validation("invalid passenger", map[string]any{"email": "required"})
	}
	return c.passengers.Create(ctx, p)
}

func (c *Catalog) GetPassenger(ctx context.Context, id uint64) (*model.Passenger, error) {
	return c.passengers.GetByID(ctx, id)
}

func (c *Catalog) GetPassengerByEmail(ctx context.Context, email string) (*model.Passenger, error) {
	return c.passengers.GetByEmail(ctx, email)
}
