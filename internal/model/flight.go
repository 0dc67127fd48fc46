package model

import (
	"time"

	"github.com/iliyamo/flight-seat-reservation/internal/apperr"
)

// Flight is a scheduled departure with a bounded seat inventory.
// RemainingSeats is the only hot, contended field in the system; it is
// changed exclusively through the inventory's reserve and release
// operations.  Capacity is fixed when the flight is created and the
// invariant RemainingSeats + issued tickets == Capacity holds at all
// times.
//
// Fields:
//  ID                 – primary key identifier.
//  AirlineID          – operating airline.
//  AircraftID         – aircraft flying the route.
//  DepartureAirportID – origin airport.
//  ArrivalAirportID   – destination airport (differs from origin).
//  DepartureAt        – departure instant in UTC.
//  ArrivalAt          – arrival instant in UTC (after DepartureAt).
//  Capacity           – seats offered, at most the aircraft's total seats.
//  RemainingSeats     – seats still available, 0..Capacity.
//  EconomyCents       – economy unit price.
//  BusinessCents      – business unit price.
//  FirstCents         – first class unit price.
//  CreatedAt          – creation timestamp.
type Flight struct {
	ID                 uint64    // flights.id
	AirlineID          uint64    // flights.airline_id
	AircraftID         uint64    // flights.aircraft_id
	DepartureAirportID uint64    // flights.departure_airport_id
	ArrivalAirportID   uint64    // flights.arrival_airport_id
	DepartureAt        time.Time // flights.departure_at
	ArrivalAt          time.Time // flights.arrival_at
	Capacity           int       // flights.capacity
	RemainingSeats     int       // flights.remaining_seats
	EconomyCents       int64     // flights.economy_cents
	BusinessCents      int64     // flights.business_cents
	FirstCents         int64     // flights.first_cents
	CreatedAt          time.Time // flights.created_at
}

// PriceFor returns the unit price of class c in cents.  Unknown classes
// price at zero, which the ledger rejects.
func (f *Flight) PriceFor(c Class) int64 {
	switch c {
	case Economy:
		return f.EconomyCents
	case Business:
		return f.BusinessCents
	case First:
		return f.FirstCents
	}
	return 0
}

// Duration is the scheduled block time.
func (f *Flight) Duration() time.Duration { return f.ArrivalAt.Sub(f.DepartureAt) }

// Validate checks the structural invariants of a flight that do not need
// other entities: distinct airports, arrival after departure, positive
// prices and a seat counter inside 0..Capacity.
func (f *Flight) Validate() error {
	problems := map[string]any{}
	if f.DepartureAirportID == f.ArrivalAirportID {
		problems["arrival_airport_id"] = "must differ from departure airport"
	}
	if !f.ArrivalAt.After(f.DepartureAt) {
		problems["arrival_at"] = "must be after departure"
	}
	if f.EconomyCents <= 0 {
		problems["economy_cents"] = "must be positive"
	}
	if f.BusinessCents <= 0 {
		problems["business_cents"] = "must be positive"
	}
	if f.FirstCents <= 0 {
		problems["first_cents"] = "must be positive"
	}
	if f.Capacity <= 0 {
		problems["capacity"] = "must be positive"
	}
	if f.RemainingSeats < 0 || f.RemainingSeats > f.Capacity {
		problems["remaining_seats"] = "must be between 0 and capacity"
	}
	if len(problems) > 0 {
		return apperr.Validation("invalid flight", problems)
	}
	return nil
}

// FlightSort selects the ordering of search results.
type FlightSort string

const (
	SortByPrice    FlightSort = "price"
	SortByDuration FlightSort = "duration"
)

// FlightQuery describes a direct-flight search.  Date is interpreted as a
// UTC calendar day.
type FlightQuery struct {
	DepartureAirportID uint64
	ArrivalAirportID   uint64
	Date               time.Time
	Sort               FlightSort
}
