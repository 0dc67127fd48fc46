// Package memstore is an in-process implementation of every store the
// booking core needs.  It backs STORE_DRIVER=memory and the service
// tests.  All tables share one Store so cascades and referential checks
// see a consistent snapshot; the per-flight seat counters are atomics so
// Reserve and Release never wait on the table lock held by readers.
package memstore

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iliyamo/flight-seat-reservation/internal/apperr"
	"github.com/iliyamo/flight-seat-reservation/internal/model"
)

type flightEntry struct {
	f         model.Flight
	remaining atomic.Int64
}

// Store holds every table.  mu guards the maps; seat counters are
// changed under mu.RLock by compare-and-swap, and under mu.Lock by the
// cascading deletes.
type Store struct {
	mu sync.RWMutex

	nextID atomic.Uint64
	now    func() time.Time

	airlines   map[uint64]*model.Airline
	aircraft   map[uint64]*model.Aircraft
	airports   map[uint64]*model.Airport
	passengers map[uint64]*model.Passenger
	extras     map[uint64]*model.Extra
	flights    map[uint64]*flightEntry
	tickets    map[uint64]*model.Ticket
	requestKey map[string]uint64
}

func New() *Store {
	return &Store{
		now:        func() time.Time { return time.Now().UTC() },
		airlines:   map[uint64]*model.Airline{},
		aircraft:   map[uint64]*model.Aircraft{},
		airports:   map[uint64]*model.Airport{},
		passengers: map[uint64]*model.Passenger{},
		extras:     map[uint64]*model.Extra{},
		flights:    map[uint64]*flightEntry{},
		tickets:    map[uint64]*model.Ticket{},
		requestKey: map[string]uint64{},
	}
}

func (s *Store) Airlines() *Airlines     { return &Airlines{s} }
func (s *Store) Aircraft() *Aircraft     { return &Aircraft{s} }
func (s *Store) Airports() *Airports     { return &Airports{s} }
func (s *Store) Passengers() *Passengers { return &Passengers{s} }
func (s *Store) Extras() *Extras         { return &Extras{s} }
func (s *Store) Flights() *Flights       { return &Flights{s} }
func (s *Store) Tickets() *Tickets       { return &Tickets{s} }

func (s *Store) id() uint64 { return s.nextID.Add(1) }

func missingRef() *apperr.Error { return apperr.Conflict("referenced record does not exist") }

func normEmail(v string) string { return strings.ToLower(strings.TrimSpace(v)) }
func normCode(v string) string  { return strings.ToUpper(strings.TrimSpace(v)) }

func (e *flightEntry) snapshot() *model.Flight {
	f := e.f
	f.RemainingSeats = int(e.remaining.Load())
	return &f
}

// release adds one seat unless the flight is already at capacity.
func (e *flightEntry) release() {
	capacity := int64(e.f.Capacity)
	for {
		cur := e.remaining.Load()
		if cur >= capacity {
			return
		}
		if e.remaining.CompareAndSwap(cur, cur+1) {
			return
		}
	}
}

func cloneTicket(t *model.Ticket) *model.Ticket {
	c := *t
	c.Extras = append([]model.Extra(nil), t.Extras...)
	return &c
}

// removeTicketLocked drops a ticket and its request key.  mu must be held
// for writing.
func (s *Store) removeTicketLocked(t *model.Ticket) {
	if t.RequestKey != nil {
		delete(s.requestKey, *t.RequestKey)
	}
	delete(s.tickets, t.ID)
}

func sortedIDs[T any](m map[uint64]T) []uint64 {
	ids := make([]uint64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
