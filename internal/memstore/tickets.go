package memstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/iliyamo/flight-seat-reservation/internal/apperr"
	"github.com/iliyamo/flight-seat-reservation/internal/model"
)

type Tickets struct{ s *Store }

// Issue records a ticket.  Nothing is stored unless every check passes.
func (v *Tickets) Issue(ctx context.Context, t *model.Ticket) error {
	if err := t.CheckIssuable(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("issue ticket: %w", err)
	}
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.RequestKey != nil {
		if _, dup := s.requestKey[*t.RequestKey]; dup {
			return apperr.ConflictCause("request key already used", model.ErrDuplicateRequestKey)
		}
	}
	_, okPassenger := s.passengers[t.PassengerID]
	_, okFlight := s.flights[t.FlightID]
	if !okPassenger || !okFlight {
		return missingRef()
	}
	for _, e := range t.Extras {
		if _, ok := s.extras[e.ID]; !ok {
			return missingRef()
		}
	}
	t.ID = s.id()
	t.PurchasedAt = s.now()
	s.tickets[t.ID] = cloneTicket(t)
	if t.RequestKey != nil {
		s.requestKey[*t.RequestKey] = t.ID
	}
	return nil
}

func (v *Tickets) GetByID(_ context.Context, id uint64) (*model.Ticket, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	t, ok := v.s.tickets[id]
	if !ok {
		return nil, apperr.NotFound("ticket", id)
	}
	return cloneTicket(t), nil
}

func (v *Tickets) GetByRequestKey(_ context.Context, key string) (*model.Ticket, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	id, ok := v.s.requestKey[key]
	if !ok {
		return nil, apperr.NotFound("ticket", key)
	}
	return cloneTicket(v.s.tickets[id]), nil
}

func (v *Tickets) ListByFlight(_ context.Context, flightID uint64) ([]*model.Ticket, error) {
	return v.filter(func(t *model.Ticket) bool { return t.FlightID == flightID }, false), nil
}

// ListByPassenger returns newest tickets first.
func (v *Tickets) ListByPassenger(_ context.Context, passengerID uint64) ([]*model.Ticket, error) {
	return v.filter(func(t *model.Ticket) bool { return t.PassengerID == passengerID }, true), nil
}

func (v *Tickets) filter(keep func(*model.Ticket) bool, newestFirst bool) []*model.Ticket {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	var out []*model.Ticket
	for _, id := range sortedIDs(v.s.tickets) {
		if t := v.s.tickets[id]; keep(t) {
			out = append(out, cloneTicket(t))
		}
	}
	if newestFirst {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// Delete removes the ticket and returns its seat to the flight.
func (v *Tickets) Delete(_ context.Context, id uint64) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return apperr.NotFound("ticket", id)
	}
	if e, ok := s.flights[t.FlightID]; ok {
		e.release()
	}
	s.removeTicketLocked(t)
	return nil
}

func (v *Tickets) Stats(_ context.Context, airlineID uint64) (*model.AirlineStats, error) {
	s := v.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st model.AirlineStats
	for _, e := range s.flights {
		if e.f.AirlineID == airlineID {
			st.Flights++
		}
	}
	type route struct{ dep, arr uint64 }
	counts := map[route]int{}
	for _, t := range s.tickets {
		e, ok := s.flights[t.FlightID]
		if !ok || e.f.AirlineID != airlineID {
			continue
		}
		st.Tickets++
		st.RevenueCents += t.PriceCents
		counts[route{e.f.DepartureAirportID, e.f.ArrivalAirportID}]++
	}
	for r, n := range counts {
		st.TopRoutes = append(st.TopRoutes, model.RouteStat{DepartureAirportID: r.dep, ArrivalAirportID: r.arr, Tickets: n})
	}
	sort.Slice(st.TopRoutes, func(i, j int) bool {
		a, b := st.TopRoutes[i], st.TopRoutes[j]
		if a.Tickets != b.Tickets {
			return a.Tickets > b.Tickets
		}
		if a.DepartureAirportID != b.DepartureAirportID {
			return a.DepartureAirportID < b.DepartureAirportID
		}
		return a.ArrivalAirportID < b.ArrivalAirportID
	})
	if len(st.TopRoutes) > 5 {
		st.TopRoutes = st.TopRoutes[:5]
	}
	return &st, nil
}
