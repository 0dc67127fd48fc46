package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/iliyamo/flight-seat-reservation/internal/apperr"
	"github.com/iliyamo/flight-seat-reservation/internal/model"
)

type Flights struct{ s *Store }

func (v *Flights) Create(_ context.Context, f *model.Flight) error {
	if err := f.Validate(); err != nil {
		return err
	}
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	_, okAirline := s.airlines[f.AirlineID]
	_, okAircraft := s.aircraft[f.AircraftID]
	_, okDep := s.airports[f.DepartureAirportID]
	_, okArr := s.airports[f.ArrivalAirportID]
	if !okAirline || !okAircraft || !okDep || !okArr {
		return missingRef()
	}
	f.ID = s.id()
	f.CreatedAt = s.now()
	f.DepartureAt = f.DepartureAt.UTC()
	f.ArrivalAt = f.ArrivalAt.UTC()
	e := &flightEntry{f: *f}
	e.remaining.Store(int64(f.RemainingSeats))
	s.flights[f.ID] = e
	return nil
}

func (v *Flights) GetByID(_ context.Context, id uint64) (*model.Flight, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	e, ok := v.s.flights[id]
	if !ok {
		return nil, apperr.NotFound("flight", id)
	}
	return e.snapshot(), nil
}

func (v *Flights) ListByAirline(_ context.Context, airlineID uint64) ([]*model.Flight, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	var out []*model.Flight
	for _, e := range v.s.flights {
		if e.f.AirlineID == airlineID {
			out = append(out, e.snapshot())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DepartureAt.Equal(out[j].DepartureAt) {
			return out[i].DepartureAt.Before(out[j].DepartureAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Search returns direct flights on the UTC day of q.Date with at least
// one remaining seat.
func (v *Flights) Search(_ context.Context, q model.FlightQuery) ([]*model.Flight, error) {
	from := time.Date(q.Date.Year(), q.Date.Month(), q.Date.Day(), 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	v.s.mu.RLock()
	var out []*model.Flight
	for _, e := range v.s.flights {
		f := e.snapshot()
		if f.DepartureAirportID != q.DepartureAirportID || f.ArrivalAirportID != q.ArrivalAirportID {
			continue
		}
		if f.DepartureAt.Before(from) || !f.DepartureAt.Before(to) || f.RemainingSeats <= 0 {
			continue
		}
		out = append(out, f)
	}
	v.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if q.Sort == model.SortByDuration {
			if a.Duration() != b.Duration() {
				return a.Duration() < b.Duration()
			}
		} else if a.EconomyCents != b.EconomyCents {
			return a.EconomyCents < b.EconomyCents
		}
		if !a.DepartureAt.Equal(b.DepartureAt) {
			return a.DepartureAt.Before(b.DepartureAt)
		}
		return a.ID < b.ID
	})
	return out, nil
}

// Reserve takes one seat with a compare-and-swap loop.  The table lock is
// only held shared, so reservations on different flights, and on the same
// flight, proceed concurrently.
func (v *Flights) Reserve(_ context.Context, flightID uint64) error {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	e, ok := v.s.flights[flightID]
	if !ok {
		return apperr.NotFound("flight", flightID)
	}
	for {
		cur := e.remaining.Load()
		if cur <= 0 {
			return apperr.SeatsExhausted(flightID)
		}
		if e.remaining.CompareAndSwap(cur, cur-1) {
			return nil
		}
	}
}

// Release returns one seat; at capacity it does nothing.
func (v *Flights) Release(_ context.Context, flightID uint64) error {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	e, ok := v.s.flights[flightID]
	if !ok {
		return apperr.NotFound("flight", flightID)
	}
	e.release()
	return nil
}

// Delete removes the flight and every ticket on it.
func (v *Flights) Delete(_ context.Context, id uint64) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.flights[id]; !ok {
		return apperr.NotFound("flight", id)
	}
	s.deleteFlightLocked(id)
	return nil
}

func (s *Store) deleteFlightLocked(id uint64) {
	for _, t := range s.tickets {
		if t.FlightID == id {
			s.removeTicketLocked(t)
		}
	}
	delete(s.flights, id)
}
