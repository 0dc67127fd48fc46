package model

import (
	"errors"
	"time"

	"github.com/iliyamo/flight-seat-reservation/internal/apperr"
)

// ErrDuplicateRequestKey is wrapped by the Conflict a ledger returns when a
// ticket with the same request key already exists.
var ErrDuplicateRequestKey = errors.New("request key already used")

// Ticket is an issued seat on a flight.  The price is locked in at
// purchase and already includes every attached extra.
//
// Fields:
//  ID          – primary key identifier.
//  PassengerID – ticket holder.
//  FlightID    – flight the seat belongs to.
//  Class       – fare tier.
//  PriceCents  – total price paid, fare plus extras.
//  Seat        – optional seat label, nil when unassigned.
//  RequestKey  – optional client de-duplication key, unique when set.
//  Extras      – attached extras, one unit each.
//  PurchasedAt – issuance timestamp.
type Ticket struct {
	ID          uint64    // tickets.id
	PassengerID uint64    // tickets.passenger_id
	FlightID    uint64    // tickets.flight_id
	Class       Class     // tickets.class
	PriceCents  int64     // tickets.price_cents
	Seat        *string   // tickets.seat (nullable)
	RequestKey  *string   // tickets.request_key (nullable, unique)
	Extras      []Extra   // ticket_extras joined with extras
	PurchasedAt time.Time // tickets.purchased_at
}

// ExtraIDs returns the ids of the attached extras in order.
func (t *Ticket) ExtraIDs() []uint64 {
	ids := make([]uint64, 0, len(t.Extras))
	for _, e := range t.Extras {
		ids = append(ids, e.ID)
	}
	return ids
}

// CheckIssuable is the ledger's own guard on class and price.  It runs
// regardless of what the booking engine already verified.
func (t *Ticket) CheckIssuable() error {
	if !t.Class.Valid() {
		return apperr.InvalidClass(string(t.Class))
	}
	if t.PriceCents <= 0 {
		return apperr.Validation("invalid ticket", map[string]any{"price_cents": "must be positive"})
	}
	if t.PassengerID == 0 || t.FlightID == 0 {
		return apperr.Validation("invalid ticket", map[string]any{"ticket": "passenger and flight are required"})
	}
	seen := make(map[uint64]struct{}, len(t.Extras))
	for _, e := range t.Extras {
		if _, dup := seen[e.ID]; dup {
			return apperr.Conflict("extra attached twice to the same ticket")
		}
		seen[e.ID] = struct{}{}
	}
	return nil
}

// RouteStat counts tickets sold on one origin/destination pair.
type RouteStat struct {
	DepartureAirportID uint64
	ArrivalAirportID   uint64
	Tickets            int
}

// AirlineStats summarises an airline's sales.
type AirlineStats struct {
	Flights      int
	Tickets      int
	RevenueCents int64
	TopRoutes    []RouteStat
}
