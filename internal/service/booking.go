package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iliyamo/flight-seat-reservation/internal/apperr"
	"github.com/iliyamo/flight-seat-reservation/internal/model"
	"github.com/iliyamo/flight-seat-reservation/internal/queue"
)

const tracerName = "github.com/iliyamo/flight-seat-reservation/internal/service"

// EventPublisher delivers ticket events to the broker.
type EventPublisher interface {
	PublishTicketIssued(ctx context.Context, ev queue.TicketIssuedEvent) error
}

// BookingConfig bounds the I/O steps of a purchase.
type BookingConfig struct {
	ReserveTimeout      time.Duration
	LedgerTimeout       time.Duration
	CompensationTimeout time.Duration
	PublishTimeout      time.Duration
}

// PurchaseRequest is one ticket purchase.  RequestKey, when set, makes the
// purchase idempotent: a repeated request returns the first ticket.
type PurchaseRequest struct {
	PassengerID uint64
	FlightID    uint64
	Class       string
	ExtraIDs    []uint64
	Seat        *string
	RequestKey  string
}

// Booking runs the purchase saga: reserve a seat, then record the ticket,
// and give the seat back if recording fails for any reason.
type Booking struct {
	passengers PassengerStore
	flights    FlightStore
	extras     ExtraStore
	tickets    TicketStore
	events     EventPublisher
	cfg        BookingConfig
	log        logrus.FieldLogger
	tracer     trace.Tracer

	pending sync.WaitGroup
}

func NewBooking(st Stores, events EventPublisher, cfg BookingConfig, log logrus.FieldLogger) *Booking {
	if cfg.ReserveTimeout <= 0 {
		cfg.ReserveTimeout = 5 * time.Second
	}
	if cfg.LedgerTimeout <= 0 {
		cfg.LedgerTimeout = 5 * time.Second
	}
	if cfg.CompensationTimeout <= 0 {
		cfg.CompensationTimeout = 5 * time.Second
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}
	return &Booking{
		passengers: st.Passengers,
		flights:    st.Flights,
		extras:     st.Extras,
		tickets:    st.Tickets,
		events:     events,
		cfg:        cfg,
		log:        log,
		tracer:     otel.Tracer(tracerName),
	}
}

// Receipt is the outcome of a purchase.  Replayed is set when the ticket
// was issued by an earlier request with the same key.
type Receipt struct {
	Ticket   *model.Ticket
	Replayed bool
}

// PurchaseTicket issues one ticket.  Validation failures (NotFound,
// InvalidClass) happen before any seat is taken.  SeatsExhausted means
// nothing changed.  PersistenceFailure means the seat was taken and then
// returned.
func (b *Booking) PurchaseTicket(ctx context.Context, req PurchaseRequest) (*model.Ticket, error) {
	r, err := b.Purchase(ctx, req)
	return r.Ticket, err
}

// Purchase is PurchaseTicket that also reports whether the ticket is a
// replay.
func (b *Booking) Purchase(ctx context.Context, req PurchaseRequest) (Receipt, error) {
	ctx, span := b.tracer.Start(ctx, "booking.PurchaseTicket", trace.WithAttributes(
		attribute.Int64("flight.id", int64(req.FlightID)),
		attribute.Int64("passenger.id", int64(req.PassengerID)),
		attribute.String("ticket.class", req.Class),
		attribute.Int("ticket.extras", len(req.ExtraIDs)),
	))
	defer span.End()

	t, replayed, err := b.purchase(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperr.From(err).Code)
		return Receipt{}, err
	}
	span.SetAttributes(
		attribute.Int64("ticket.id", int64(t.ID)),
		attribute.Int64("ticket.price_cents", t.PriceCents),
		attribute.Bool("ticket.replayed", replayed),
	)
	return Receipt{Ticket: t, Replayed: replayed}, nil
}

func (b *Booking) purchase(ctx context.Context, req PurchaseRequest) (*model.Ticket, bool, error) {
	class, err := model.ParseClass(req.Class)
	if err != nil {
		return nil, false, err
	}
	extraIDs := dedupe(req.ExtraIDs)

	if req.RequestKey != "" {
		prev, err := b.tickets.GetByRequestKey(ctx, req.RequestKey)
		switch {
		case err == nil:
			t, err := replay(prev, req)
			return t, err == nil, err
		case !apperr.Is(err, apperr.CodeNotFound):
			return nil, false, err
		}
	}

	if _, err := b.passengers.GetByID(ctx, req.PassengerID); err != nil {
		return nil, false, err
	}
	flight, err := b.flights.GetByID(ctx, req.FlightID)
	if err != nil {
		return nil, false, err
	}
	extras, err := b.extras.GetByIDs(ctx, extraIDs)
	if err != nil {
		return nil, false, err
	}

	if err := b.reserve(ctx, flight.ID); err != nil {
		return nil, false, err
	}
	hold := uuid.NewString()
	log := b.log.WithFields(logrus.Fields{
		"hold":         hold,
		"flight_id":    flight.ID,
		"passenger_id": req.PassengerID,
	})

	ticket := &model.Ticket{
		PassengerID: req.PassengerID,
		FlightID:    flight.ID,
		Class:       class,
		PriceCents:  flight.PriceFor(class),
		Seat:        req.Seat,
	}
	for _, e := range extras {
		ticket.PriceCents += e.CostCents
		ticket.Extras = append(ticket.Extras, *e)
	}
	if req.RequestKey != "" {
		key := req.RequestKey
		ticket.RequestKey = &key
	}

	issueCtx, cancel := context.WithTimeout(ctx, b.cfg.LedgerTimeout)
	err = b.tickets.Issue(issueCtx, ticket)
	cancel()
	if err != nil {
		b.compensate(ctx, flight.ID, log)
		if errors.Is(err, model.ErrDuplicateRequestKey) {
			// Lost a race with a concurrent request carrying the same key.
			prev, gerr := b.tickets.GetByRequestKey(context.WithoutCancel(ctx), req.RequestKey)
			if gerr == nil {
				t, err := replay(prev, req)
				return t, err == nil, err
			}
		}
		log.WithError(err).Warn("ticket write failed, seat released")
		return nil, false, apperr.PersistenceFailure(err)
	}

	log.WithFields(logrus.Fields{"ticket_id": ticket.ID, "price_cents": ticket.PriceCents}).Info("ticket issued")
	b.publish(ctx, ticket, flight)
	return ticket, false, nil
}

// reserve takes a seat detached from the caller's cancellation.  A
// cancelled statement may still have been applied by the database, and an
// unknown outcome can be neither kept nor released safely, so the
// reservation always runs to a reported result.  A caller that left in
// the meantime fails the ledger step and the seat is compensated there.
func (b *Booking) reserve(ctx context.Context, flightID uint64) error {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.cfg.ReserveTimeout)
	defer cancel()
	return b.flights.Reserve(rctx, flightID)
}

// compensate returns the reserved seat exactly once.  It runs detached
// from the caller's cancellation so an abandoned request still releases
// its hold.
func (b *Booking) compensate(ctx context.Context, flightID uint64, log logrus.FieldLogger) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.cfg.CompensationTimeout)
	defer cancel()
	if err := b.flights.Release(cctx, flightID); err != nil {
		log.WithError(err).Error("seat release failed, seat leaked")
	}
}

// publish sends the TicketIssued event in the background.  Delivery
// failures are logged and never affect the purchase.
func (b *Booking) publish(ctx context.Context, t *model.Ticket, f *model.Flight) {
	if b.events == nil {
		return
	}
	ev := queue.NewTicketIssued(t, f)
	b.pending.Add(1)
	go func() {
		defer b.pending.Done()
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.cfg.PublishTimeout)
		defer cancel()
		if err := b.events.PublishTicketIssued(pctx, ev); err != nil {
			b.log.WithError(err).WithField("ticket_id", t.ID).Warn("ticket event not published")
		}
	}()
}

// Wait blocks until background event deliveries finish.
func (b *Booking) Wait() { b.pending.Wait() }

// GetTicket returns one of the passenger's own tickets.
func (b *Booking) GetTicket(ctx context.Context, passengerID, ticketID uint64) (*model.Ticket, error) {
	t, err := b.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if t.PassengerID != passengerID {
		return nil, apperr.Forbidden("ticket belongs to another passenger")
	}
	return t, nil
}

func (b *Booking) ListByPassenger(ctx context.Context, passengerID uint64) ([]*model.Ticket, error) {
	return b.tickets.ListByPassenger(ctx, passengerID)
}

// ListByFlight returns the passenger manifest of one of the airline's
// flights.
func (b *Booking) ListByFlight(ctx context.Context, airlineID, flightID uint64) ([]*model.Ticket, error) {
	f, err := b.flights.GetByID(ctx, flightID)
	if err != nil {
		return nil, err
	}
	if f.AirlineID != airlineID {
		return nil, apperr.Forbidden("flight belongs to another airline")
	}
	return b.tickets.ListByFlight(ctx, flightID)
}

func (b *Booking) AirlineStats(ctx context.Context, airlineID uint64) (*model.AirlineStats, error) {
	return b.tickets.Stats(ctx, airlineID)
}

// replay returns a ticket already issued under the same request key.  A
// key reused by another passenger or for another flight is a Conflict.
func replay(prev *model.Ticket, req PurchaseRequest) (*model.Ticket, error) {
	if prev.PassengerID != req.PassengerID || prev.FlightID != req.FlightID {
		return nil, apperr.Conflict("request key already used for a different purchase")
	}
	return prev, nil
}

func dedupe(ids []uint64) []uint64 {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
