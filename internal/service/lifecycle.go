package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/flight-seat-reservation/internal/apperr"
)

// Lifecycle applies the deletion rules.  Each store delete is a single
// transaction that removes the deepest dependents first; this type adds
// ownership checks and cache invalidation around them.
//
//	airline   -> tickets on its flights, flights, aircraft
//	aircraft  -> refused while flights reference it
//	airport   -> refused while flights reference it
//	flight    -> its tickets
//	passenger -> its tickets, seats returned
//	ticket    -> seat returned
//	extra     -> detached from tickets, prices unchanged
type Lifecycle struct {
	st    Stores
	cache CacheInvalidator
	log   logrus.FieldLogger
}

func NewLifecycle(st Stores, cache CacheInvalidator, log logrus.FieldLogger) *Lifecycle {
	return &Lifecycle{st: st, cache: cache, log: log}
}

func (l *Lifecycle) DeleteAirline(ctx context.Context, id uint64) error {
	if err := l.st.Airlines.Delete(ctx, id); err != nil {
		return err
	}
	l.log.WithField("airline_id", id).Info("airline deleted")
	invalidate(ctx, l.cache, l.log)
	return nil
}

func (l *Lifecycle) DeleteAircraft(ctx context.Context, id uint64) error {
	return l.st.Aircraft.Delete(ctx, id)
}

// DeleteOwnAircraft deletes an aircraft on behalf of its airline.
func (l *Lifecycle) DeleteOwnAircraft(ctx context.Context, airlineID, id uint64) error {
	ac, err := l.st.Aircraft.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if ac.AirlineID != airlineID {
		return apperr.Forbidden("aircraft belongs to another airline")
	}
	return l.DeleteAircraft(ctx, id)
}

func (l *Lifecycle) DeleteAirport(ctx context.Context, id uint64) error {
	if err := l.st.Airports.Delete(ctx, id); err != nil {
		return err
	}
	invalidate(ctx, l.cache, l.log)
	return nil
}

func (l *Lifecycle) DeleteFlight(ctx context.Context, id uint64) error {
	if err := l.st.Flights.Delete(ctx, id); err != nil {
		return err
	}
	l.log.WithField("flight_id", id).Info("flight deleted")
	return nil
}

// DeleteOwnFlight deletes a flight on behalf of its airline.
func (l *Lifecycle) DeleteOwnFlight(ctx context.Context, airlineID, id uint64) error {
	f, err := l.st.Flights.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if f.AirlineID != airlineID {
		return apperr.Forbidden("flight belongs to another airline")
	}
	return l.DeleteFlight(ctx, id)
}

func (l *Lifecycle) DeletePassenger(ctx context.Context, id uint64) error {
	if err := l.st.Passengers.Delete(ctx, id); err != nil {
		return err
	}
	l.log.WithField("passenger_id", id).Info("passenger deleted")
	return nil
}

func (l *Lifecycle) DeleteTicket(ctx context.Context, id uint64) error {
	return l.st.Tickets.Delete(ctx, id)
}

func (l *Lifecycle) DeleteExtra(ctx context.Context, id uint64) error {
	if err := l.st.Extras.Delete(ctx, id); err != nil {
		return err
	}
	invalidate(ctx, l.cache, l.log)
	return nil
}
