package memstore

import (
	"context"
	"sort"
	"strings"

	"github.com/iliyamo/flight-seat-reservation/internal/apperr"
	"github.com/iliyamo/flight-seat-reservation/internal/model"
)

type Airlines struct{ s *Store }

func (v *Airlines) Create(_ context.Context, a *model.Airline) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	a.IATACode = normCode(a.IATACode)
	a.Email = normEmail(a.Email)
	for _, x := range s.airlines {
		if x.IATACode == a.IATACode || x.Email == a.Email {
			return apperr.Conflict("airline IATA code or email already exists")
		}
	}
	a.ID = s.id()
	a.CreatedAt = s.now()
	c := *a
	s.airlines[a.ID] = &c
	return nil
}

func (v *Airlines) GetByID(_ context.Context, id uint64) (*model.Airline, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	a, ok := v.s.airlines[id]
	if !ok {
		return nil, apperr.NotFound("airline", id)
	}
	c := *a
	return &c, nil
}

func (v *Airlines) GetByEmail(_ context.Context, email string) (*model.Airline, error) {
	email = normEmail(email)
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	for _, a := range v.s.airlines {
		if a.Email == email {
			c := *a
			return &c, nil
		}
	}
	return nil, apperr.NotFound("airline", email)
}

func (v *Airlines) List(_ context.Context) ([]*model.Airline, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	out := make([]*model.Airline, 0, len(v.s.airlines))
	for _, id := range sortedIDs(v.s.airlines) {
		c := *v.s.airlines[id]
		out = append(out, &c)
	}
	return out, nil
}

// Delete removes the airline with its aircraft, flights and the tickets
// on those flights.
func (v *Airlines) Delete(_ context.Context, id uint64) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.airlines[id]; !ok {
		return apperr.NotFound("airline", id)
	}
	for fid, e := range s.flights {
		if e.f.AirlineID == id {
			s.deleteFlightLocked(fid)
		}
	}
	for aid, a := range s.aircraft {
		if a.AirlineID == id {
			delete(s.aircraft, aid)
		}
	}
	delete(s.airlines, id)
	return nil
}

type Aircraft struct{ s *Store }

func (v *Aircraft) Create(_ context.Context, a *model.Aircraft) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.airlines[a.AirlineID]; !ok {
		return missingRef()
	}
	a.ID = s.id()
	a.CreatedAt = s.now()
	c := *a
	s.aircraft[a.ID] = &c
	return nil
}

func (v *Aircraft) GetByID(_ context.Context, id uint64) (*model.Aircraft, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	a, ok := v.s.aircraft[id]
	if !ok {
		return nil, apperr.NotFound("aircraft", id)
	}
	c := *a
	return &c, nil
}

func (v *Aircraft) ListByAirline(_ context.Context, airlineID uint64) ([]*model.Aircraft, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	var out []*model.Aircraft
	for _, id := range sortedIDs(v.s.aircraft) {
		if a := v.s.aircraft[id]; a.AirlineID == airlineID {
			c := *a
			out = append(out, &c)
		}
	}
	return out, nil
}

// Delete refuses while any flight references the aircraft.
func (v *Aircraft) Delete(_ context.Context, id uint64) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.aircraft[id]; !ok {
		return apperr.NotFound("aircraft", id)
	}
	n := 0
	for _, e := range s.flights {
		if e.f.AircraftID == id {
			n++
		}
	}
	if n > 0 {
		return apperr.Conflict("aircraft is still assigned to flights").
			WithDetails(map[string]any{"aircraft_id": id, "flights": n})
	}
	delete(s.aircraft, id)
	return nil
}

type Airports struct{ s *Store }

func (v *Airports) Create(_ context.Context, a *model.Airport) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	a.IATACode = normCode(a.IATACode)
	for _, x := range s.airports {
		if x.IATACode == a.IATACode {
			return apperr.Conflict("airport IATA code already exists")
		}
	}
	a.ID = s.id()
	c := *a
	s.airports[a.ID] = &c
	return nil
}

func (v *Airports) GetByID(_ context.Context, id uint64) (*model.Airport, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	a, ok := v.s.airports[id]
	if !ok {
		return nil, apperr.NotFound("airport", id)
	}
	c := *a
	return &c, nil
}

func (v *Airports) List(_ context.Context) ([]*model.Airport, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	out := make([]*model.Airport, 0, len(v.s.airports))
	for _, a := range v.s.airports {
		c := *a
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].City != out[j].City {
			return out[i].City < out[j].City
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Delete refuses while any flight departs from or arrives at the airport.
func (v *Airports) Delete(_ context.Context, id uint64) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.airports[id]; !ok {
		return apperr.NotFound("airport", id)
	}
	n := 0
	for _, e := range s.flights {
		if e.f.DepartureAirportID == id || e.f.ArrivalAirportID == id {
			n++
		}
	}
	if n > 0 {
		return apperr.Conflict("airport is still used by flights").
			WithDetails(map[string]any{"airport_id": id, "flights": n})
	}
	delete(s.airports, id)
	return nil
}

type Passengers struct{ s *Store }

func (v *Passengers) Create(_ context.Context, p *model.Passenger) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	p.Email = normEmail(p.Email)
	for _, x := range s.passengers {
		if x.Email == p.Email {
			return apperr.Conflict("passenger email already exists")
		}
	}
	p.ID = s.id()
	p.CreatedAt = s.now()
	c := *p
	s.passengers[p.ID] = &c
	return nil
}

func (v *Passengers) GetByID(_ context.Context, id uint64) (*model.Passenger, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	p, ok := v.s.passengers[id]
	if !ok {
		return nil, apperr.NotFound("passenger", id)
	}
	c := *p
	return &c, nil
}

func (v *Passengers) GetByEmail(_ context.Context, email string) (*model.Passenger, error) {
	email = normEmail(email)
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	for _, p := range v.s.passengers {
		if p.Email == email {
			c := *p
			return &c, nil
		}
	}
	return nil, apperr.NotFound("passenger", email)
}

// Delete removes the passenger and their tickets, returning each seat.
func (v *Passengers) Delete(_ context.Context, id uint64) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.passengers[id]; !ok {
		return apperr.NotFound("passenger", id)
	}
	for _, t := range s.tickets {
		if t.PassengerID != id {
			continue
		}
		if e, ok := s.flights[t.FlightID]; ok {
			e.release()
		}
		s.removeTicketLocked(t)
	}
	delete(s.passengers, id)
	return nil
}

type Extras struct{ s *Store }

func (v *Extras) Create(_ context.Context, e *model.Extra) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	e.Name = strings.TrimSpace(e.Name)
	for _, x := range s.extras {
		if x.Name == e.Name {
			return apperr.Conflict("extra name already exists")
		}
	}
	e.ID = s.id()
	c := *e
	s.extras[e.ID] = &c
	return nil
}

func (v *Extras) GetByID(_ context.Context, id uint64) (*model.Extra, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	e, ok := v.s.extras[id]
	if !ok {
		return nil, apperr.NotFound("extra", id)
	}
	c := *e
	return &c, nil
}

func (v *Extras) GetByIDs(_ context.Context, ids []uint64) ([]*model.Extra, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	out := make([]*model.Extra, 0, len(ids))
	for _, id := range ids {
		e, ok := v.s.extras[id]
		if !ok {
			return nil, apperr.NotFound("extra", id)
		}
		c := *e
		out = append(out, &c)
	}
	return out, nil
}

func (v *Extras) List(_ context.Context) ([]*model.Extra, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	out := make([]*model.Extra, 0, len(v.s.extras))
	for _, e := range v.s.extras {
		c := *e
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Delete detaches the extra from every ticket.  Ticket prices are left
// as they were at purchase.
func (v *Extras) Delete(_ context.Context, id uint64) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.extras[id]; !ok {
		return apperr.NotFound("extra", id)
	}
	for _, t := range s.tickets {
		kept := t.Extras[:0]
		for _, e := range t.Extras {
			if e.ID != id {
				kept = append(kept, e)
			}
		}
		t.Extras = kept
	}
	delete(s.extras, id)
	return nil
}
