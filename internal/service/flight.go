package service

import (
	"context"
	"time"

	"github.com/iliyamo/flight-seat-reservation/internal/apperr"
	"github.com/iliyamo/flight-seat-reservation/internal/model"
)

// Flights schedules flights and serves search.  Seat counters are never
// touched here; only Booking and the stores change them.
type Flights struct {
	flights  FlightStore
	aircraft AircraftStore
	airports AirportStore
}

func NewFlights(st Stores) *Flights {
	return &Flights{flights: st.Flights, aircraft: st.Aircraft, airports: st.Airports}
}

// Create schedules a flight for f.AirlineID.  The aircraft must belong to
// that airline; Capacity defaults to the aircraft's seat count and may not
// exceed it.  RemainingSeats always starts at Capacity.
func (s *Flights) Create(ctx context.Context, f *model.Flight) error {
	ac, err := s.aircraft.GetByID(ctx, f.AircraftID)
	if err != nil {
		return err
	}
	if ac.AirlineID != f.AirlineID {
		return apperr.Forbidden("aircraft belongs to another airline")
	}
	for _, id := range []uint64{f.DepartureAirportID, f.ArrivalAirportID} {
		if _, err := s.airports.GetByID(ctx, id); err != nil {
			return err
		}
	}
	if f.Capacity == 0 {
		f.Capacity = ac.TotalSeats
	}
	if f.Capacity > ac.TotalSeats {
		return apperr.Validation("invalid flight", map[string]any{"capacity": "exceeds aircraft seats"})
	}
	f.RemainingSeats = f.Capacity
	f.DepartureAt = f.DepartureAt.UTC()
	f.ArrivalAt = f.ArrivalAt.UTC()
	if err := f.Validate(); err != nil {
		return err
	}
	return s.flights.Create(ctx, f)
}

func (s *Flights) Get(ctx context.Context, id uint64) (*model.Flight, error) {
	return s.flights.GetByID(ctx, id)
}

func (s *Flights) ListByAirline(ctx context.Context, airlineID uint64) ([]*model.Flight, error) {
	return s.flights.ListByAirline(ctx, airlineID)
}

// Search lists direct flights with seats left.  An empty sort means
// cheapest first.
func (s *Flights) Search(ctx context.Context, q model.FlightQuery) ([]*model.Flight, error) {
	switch q.Sort {
	case "":
		q.Sort = model.SortByPrice
	case model.SortByPrice, model.SortByDuration:
	default:
		return nil, apperr.Validation("invalid search", map[string]any{"sort": "must be price or duration"})
	}
	if q.DepartureAirportID == 0 || q.ArrivalAirportID == 0 || q.Date.IsZero() {
		return nil, apperr.Validation("invalid search", map[string]any{"query": "from, to and date are required"})
	}
	if q.DepartureAirportID == q.ArrivalAirportID {
		return nil, apperr.Validation("invalid search", map[string]any{"to": "must differ from origin"})
	}
	q.Date = q.Date.UTC().Truncate(24 * time.Hour)
	return s.flights.Search(ctx, q)
}
