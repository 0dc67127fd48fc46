package service

import (
	"context"

	"github.com/iliyamo/flight-seat-reservation/internal/model"
)

// The stores below are implemented by internal/repository (MySQL) and
// internal/memstore.  Expected outcomes are reported as *apperr.Error.

type AirlineStore interface {
	Create(ctx context.Context, a *model.Airline) error
	GetByID(ctx context.Context, id uint64) (*model.Airline, error)
	GetByEmail(ctx context.Context, email string) (*model.Airline, error)
	List(ctx context.Context) ([]*model.Airline, error)
	Delete(ctx context.Context, id uint64) error
}

type AircraftStore interface {
	Create(ctx context.Context, a *model.Aircraft) error
	GetByID(ctx context.Context, id uint64) (*model.Aircraft, error)
	ListByAirline(ctx context.Context, airlineID uint64) ([]*model.Aircraft, error)
	Delete(ctx context.Context, id uint64) error
}

type AirportStore interface {
	Create(ctx context.Context, a *model.Airport) error
	GetByID(ctx context.Context, id uint64) (*model.Airport, error)
	List(ctx context.Context) ([]*model.Airport, error)
	Delete(ctx context.Context, id uint64) error
}

type ExtraStore interface {
	Create(ctx context.Context, e *model.Extra) error
	GetByID(ctx context.Context, id uint64) (*model.Extra, error)
	GetByIDs(ctx context.Context, ids []uint64) ([]*model.Extra, error)
	List(ctx context.Context) ([]*model.Extra, error)
	Delete(ctx context.Context, id uint64) error
}

type PassengerStore interface {
	Create(ctx context.Context, p *model.Passenger) error
	GetByID(ctx context.Context, id uint64) (*model.Passenger, error)
	GetByEmail(ctx context.Context, email string) (*model.Passenger, error)
	Delete(ctx context.Context, id uint64) error
}

// FlightStore is the seat inventory.  Reserve and Release must each be a
// single atomic step on the remaining-seat counter: concurrent callers
// never observe or produce a value outside 0..capacity.
type FlightStore interface {
	Create(ctx context.Context, f *model.Flight) error
	GetByID(ctx context.Context, id uint64) (*model.Flight, error)
	ListByAirline(ctx context.Context, airlineID uint64) ([]*model.Flight, error)
	Search(ctx context.Context, q model.FlightQuery) ([]*model.Flight, error)
	Reserve(ctx context.Context, flightID uint64) error
	Release(ctx context.Context, flightID uint64) error
	Delete(ctx context.Context, id uint64) error
}

// TicketStore is the ledger.  Issue is all-or-nothing; a reused request
// key fails with a Conflict wrapping model.ErrDuplicateRequestKey.
type TicketStore interface {
	Issue(ctx context.Context, t *model.Ticket) error
	GetByID(ctx context.Context, id uint64) (*model.Ticket, error)
	GetByRequestKey(ctx context.Context, key string) (*model.Ticket, error)
	ListByFlight(ctx context.Context, flightID uint64) ([]*model.Ticket, error)
	ListByPassenger(ctx context.Context, passengerID uint64) ([]*model.Ticket, error)
	Stats(ctx context.Context, airlineID uint64) (*model.AirlineStats, error)
	Delete(ctx context.Context, id uint64) error
}

// Stores bundles one implementation of every store.
type Stores struct {
	Airlines   AirlineStore
	Aircraft   AircraftStore
	Airports   AirportStore
	Extras     ExtraStore
	Passengers PassengerStore
	Flights    FlightStore
	Tickets    TicketStore
}
