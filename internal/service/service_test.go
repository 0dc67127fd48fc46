package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/flight-seat-reservation/internal/apperr"
	"github.com/iliyamo/flight-seat-reservation/internal/logger"
	"github.com/iliyamo/flight-seat-reservation/internal/memstore"
	"github.com/iliyamo/flight-seat-reservation/internal/model"
	"github.com/iliyamo/flight-seat-reservation/internal/queue"
)

func memStores(m *memstore.Store) Stores {
	return Stores{
		Airlines:   m.Airlines(),
		Aircraft:   m.Aircraft(),
		Airports:   m.Airports(),
		Extras:     m.Extras(),
		Passengers: m.Passengers(),
		Flights:    m.Flights(),
		Tickets:    m.Tickets(),
	}
}

// ledger wraps the in-memory ledger so tests can make Issue fail or hang.
type ledger struct {
	*memstore.Tickets
	fail    error
	block   bool
	entered chan struct{}
}

func (l *ledger) Issue(ctx context.Context, t *model.Ticket) error {
	if l.block {
		if l.entered != nil {
			close(l.entered)
		}
		<-ctx.Done()
		return ctx.Err()
	}
	if l.fail != nil {
		return l.fail
	}
	return l.Tickets.Issue(ctx, t)
}

// abandoningFlights cancels the caller while Reserve is in flight and,
// like a database driver, reports the cancellation even though the
// decrement was applied.
type abandoningFlights struct {
	FlightStore
	cancel context.CancelFunc
}

func (f *abandoningFlights) Reserve(ctx context.Context, flightID uint64) error {
	f.cancel()
	if err := f.FlightStore.Reserve(context.Background(), flightID); err != nil {
		return err
	}
	return ctx.Err()
}

type recorder struct {
	mu     sync.Mutex
	events []queue.TicketIssuedEvent
	err    error
}

func (r *recorder) PublishTicketIssued(_ context.Context, ev queue.TicketIssuedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

type world struct {
	st        Stores
	catalog   *Catalog
	flights   *Flights
	booking   *Booking
	lifecycle *Lifecycle
	ledger    *ledger
	events    *recorder
}

func newWorld(t *testing.T) *world {
	t.Helper()
	m := memstore.New()
	w := &world{ledger: &ledger{Tickets: m.Tickets()}, events: &recorder{}}
	w.st = memStores(m)
	w.st.Tickets = w.ledger
	log := logger.Discard()
	w.catalog = NewCatalog(w.st, nil, log)
	w.flights = NewFlights(w.st)
	w.booking = NewBooking(w.st, w.events, BookingConfig{
		LedgerTimeout:       50 * time.Millisecond,
		CompensationTimeout: time.Second,
	}, log)
	w.lifecycle = NewLifecycle(w.st, nil, log)
	return w
}

func (w *world) airline(t *testing.T, code string) *model.Airline {
	t.Helper()
	a := &model.Airline{Name: "Airline " + code, IATACode: code, Country: "NL", Email: code + "@air.test"}
	require.NoError(t, w.catalog.CreateAirline(context.Background(), a))
	return a
}

func (w *world) aircraft(t *testing.T, airlineID uint64, seats int) *model.Aircraft {
	t.Helper()
	a := &model.Aircraft{AirlineID: airlineID, Model: "E190", TotalSeats: seats}
	require.NoError(t, w.catalog.CreateAircraft(context.Background(), a))
	return a
}

func (w *world) airport(t *testing.T, code string) *model.Airport {
	t.Helper()
	a := &model.Airport{Name: code, City: code, Country: "XX", IATACode: code}
	require.NoError(t, w.catalog.CreateAirport(context.Background(), a))
	return a
}

func (w *world) passenger(t *testing.T, email string) *model.Passenger {
	t.Helper()
	p := &model.Passenger{Name: "P", Surname: "Q", Email: email}
	require.NoError(t, w.catalog.RegisterPassenger(context.Background(), p))
	return p
}

func (w *world) flight(t *testing.T, ac *model.Aircraft, from, to *model.Airport, capacity int) *model.Flight {
	t.Helper()
	dep := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)
	f := &model.Flight{
		AirlineID: ac.AirlineID, AircraftID: ac.ID,
		DepartureAirportID: from.ID, ArrivalAirportID: to.ID,
		DepartureAt: dep, ArrivalAt: dep.Add(90 * time.Minute),
		Capacity:     capacity,
		EconomyCents: 10000, BusinessCents: 25000, FirstCents: 60000,
	}
	require.NoError(t, w.flights.Create(context.Background(), f))
	return f
}

func (w *world) remaining(t *testing.T, id uint64) int {
	t.Helper()
	f, err := w.st.Flights.GetByID(context.Background(), id)
	require.NoError(t, err)
	return f.RemainingSeats
}

type scenario struct {
	airline   *model.Airline
	aircraft  *model.Aircraft
	from, to  *model.Airport
	passenger *model.Passenger
}

func (w *world) basic(t *testing.T) scenario {
	a := w.airline(t, "KL")
	return scenario{
		airline:   a,
		aircraft:  w.aircraft(t, a.ID, 100),
		from:      w.airport(t, "AMS"),
		to:        w.airport(t, "CDG"),
		passenger: w.passenger(t, "c@pax.test"),
	}
}

func TestPurchasePricesClassPlusExtras(t *testing.T) {
	w := newWorld(t)
	s := w.basic(t)
	f := w.flight(t, s.aircraft, s.from, s.to, 10)
	boarding := &model.Extra{Name: "priority-boarding", CostCents: 2000}
	require.NoError(t, w.catalog.CreateExtra(context.Background(), boarding))

	tk, err := w.booking.PurchaseTicket(context.Background(), PurchaseRequest{
		PassengerID: s.passenger.ID, FlightID: f.ID, Class: "Economy",
		ExtraIDs: []uint64{boarding.ID, boarding.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(12000), tk.PriceCents)
	assert.Equal(t, model.Economy, tk.Class)
	assert.Equal(t, []uint64{boarding.ID}, tk.ExtraIDs())
	assert.Equal(t, 9, w.remaining(t, f.ID))

	w.booking.Wait()
	require.Len(t, w.events.events, 1)
	ev := w.events.events[0]
	assert.Equal(t, tk.ID, ev.TicketID)
	assert.Equal(t, s.airline.ID, ev.AirlineID)
	assert.NotEmpty(t, ev.EventID)
}

func TestPurchaseValidationHasNoSideEffects(t *testing.T) {
	w := newWorld(t)
	s := w.basic(t)
	f := w.flight(t, s.aircraft, s.from, s.to, 3)
	ctx := context.Background()

	cases := []struct {
		name string
		req  PurchaseRequest
		code string
	}{
		{"bad class", PurchaseRequest{PassengerID: s.passenger.ID, FlightID: f.ID, Class: "premium"}, apperr.CodeInvalidClass},
		{"unknown passenger", PurchaseRequest{PassengerID: 999, FlightID: f.ID, Class: "economy"}, apperr.CodeNotFound},
		{"unknown flight", PurchaseRequest{PassengerID: s.passenger.ID, FlightID: 999, Class: "economy"}, apperr.CodeNotFound},
		{"unknown extra", PurchaseRequest{PassengerID: s.passenger.ID, FlightID: f.ID, Class: "economy", ExtraIDs: []uint64{999}}, apperr.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := w.booking.PurchaseTicket(ctx, tc.req)
			assert.True(t, apperr.Is(err, tc.code), "got %v", err)
			assert.Equal(t, 3, w.remaining(t, f.ID))
		})
	}
}

func TestCompensationOnLedgerFailure(t *testing.T) {
	w := newWorld(t)
	s := w.basic(t)
	f := w.flight(t, s.aircraft, s.from, s.to, 4)
	w.ledger.fail = errors.New("disk full")

	_, err := w.booking.PurchaseTicket(context.Background(), PurchaseRequest{
		PassengerID: s.passenger.ID, FlightID: f.ID, Class: "business",
	})
	assert.True(t, apperr.Is(err, apperr.CodePersistenceFailure), "got %v", err)
	assert.Equal(t, 4, w.remaining(t, f.ID))

	w.booking.Wait()
	assert.Empty(t, w.events.events)
}

func TestCompensationOnLedgerTimeout(t *testing.T) {
	w := newWorld(t)
	s := w.basic(t)
	f := w.flight(t, s.aircraft, s.from, s.to, 4)
	w.ledger.block = true

	_, err := w.booking.PurchaseTicket(context.Background(), PurchaseRequest{
		PassengerID: s.passenger.ID, FlightID: f.ID, Class: "first",
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodePersistenceFailure))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 4, w.remaining(t, f.ID))
}

func TestCompensationWhenCallerAbandons(t *testing.T) {
	w := newWorld(t)
	w.booking.cfg.LedgerTimeout = time.Minute
	s := w.basic(t)
	f := w.flight(t, s.aircraft, s.from, s.to, 4)
	w.ledger.block = true
	w.ledger.entered = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-w.ledger.entered
		cancel()
	}()
	_, err := w.booking.PurchaseTicket(ctx, PurchaseRequest{
		PassengerID: s.passenger.ID, FlightID: f.ID, Class: "economy",
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 4, w.remaining(t, f.ID))
}

func TestCallerCancelledDuringReserveLeaksNoSeat(t *testing.T) {
	w := newWorld(t)
	s := w.basic(t)
	f := w.flight(t, s.aircraft, s.from, s.to, 3)

	ctx, cancel := context.WithCancel(context.Background())
	w.booking.flights = &abandoningFlights{FlightStore: w.st.Flights, cancel: cancel}

	_, err := w.booking.PurchaseTicket(ctx, PurchaseRequest{
		PassengerID: s.passenger.ID, FlightID: f.ID, Class: "economy",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	issued, err := w.st.Tickets.ListByFlight(context.Background(), f.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, w.remaining(t, f.ID)+len(issued))
	assert.Equal(t, 3, w.remaining(t, f.ID))
}

func TestLastSeatRace(t *testing.T) {
	w := newWorld(t)
	s := w.basic(t)
	f := w.flight(t, s.aircraft, s.from, s.to, 1)
	other := w.passenger(t, "a@pax.test")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, pid := range []uint64{s.passenger.ID, other.ID} {
		wg.Add(1)
		go func(i int, pid uint64) {
			defer wg.Done()
			_, errs[i] = w.booking.PurchaseTicket(context.Background(), PurchaseRequest{
				PassengerID: pid, FlightID: f.ID, Class: "economy",
			})
		}(i, pid)
	}
	wg.Wait()

	ok, exhausted := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case apperr.Is(err, apperr.CodeSeatsExhausted):
			exhausted++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, exhausted)
	assert.Equal(t, 0, w.remaining(t, f.ID))
}

func TestNoOversellUnderLoadKeepsConservation(t *testing.T) {
	w := newWorld(t)
	s := w.basic(t)
	f := w.flight(t, s.aircraft, s.from, s.to, 25)

	var wg sync.WaitGroup
	var mu sync.Mutex
	sold := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := w.booking.PurchaseTicket(context.Background(), PurchaseRequest{
				PassengerID: s.passenger.ID, FlightID: f.ID, Class: "economy",
			})
			if err == nil {
				mu.Lock()
				sold++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	tickets, err := w.st.Tickets.ListByFlight(context.Background(), f.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, sold)
	assert.Equal(t, 0, w.remaining(t, f.ID))
	assert.Equal(t, f.Capacity, w.remaining(t, f.ID)+len(tickets))
}

func TestRequestKeyReplay(t *testing.T) {
	w := newWorld(t)
	s := w.basic(t)
	f := w.flight(t, s.aircraft, s.from, s.to, 5)
	req := PurchaseRequest{PassengerID: s.passenger.ID, FlightID: f.ID, Class: "economy", RequestKey: "abc"}

	first, err := w.booking.PurchaseTicket(context.Background(), req)
	require.NoError(t, err)
	again, err := w.booking.PurchaseTicket(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, 4, w.remaining(t, f.ID))

	other := w.passenger(t, "z@pax.test")
	req.PassengerID = other.ID
	_, err = w.booking.PurchaseTicket(context.Background(), req)
	assert.True(t, apperr.Is(err, apperr.CodeConflict))
}

func TestConcurrentRequestKeyIssuesOnce(t *testing.T) {
	w := newWorld(t)
	s := w.basic(t)
	f := w.flight(t, s.aircraft, s.from, s.to, 10)
	req := PurchaseRequest{PassengerID: s.passenger.ID, FlightID: f.ID, Class: "economy", RequestKey: "same"}

	var wg sync.WaitGroup
	ids := make([]uint64, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tk, err := w.booking.PurchaseTicket(context.Background(), req)
			if assert.NoError(t, err) {
				ids[i] = tk.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids[1:] {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, 9, w.remaining(t, f.ID))
}

func TestPublishFailureDoesNotFailPurchase(t *testing.T) {
	w := newWorld(t)
	s := w.basic(t)
	f := w.flight(t, s.aircraft, s.from, s.to, 2)
	w.events.err = errors.New("broker down")

	_, err := w.booking.PurchaseTicket(context.Background(), PurchaseRequest{
		PassengerID: s.passenger.ID, FlightID: f.ID, Class: "economy",
	})
	require.NoError(t, err)
	w.booking.Wait()
	assert.Equal(t, 1, w.remaining(t, f.ID))
}

func TestTicketReadsCheckOwnership(t *testing.T) {
	w := newWorld(t)
	s := w.basic(t)
	f := w.flight(t, s.aircraft, s.from, s.to, 2)
	ctx := context.Background()

	tk, err := w.booking.PurchaseTicket(ctx, PurchaseRequest{PassengerID: s.passenger.ID, FlightID: f.ID, Class: "economy"})
	require.NoError(t, err)

	_, err = w.booking.GetTicket(ctx, s.passenger.ID+100, tk.ID)
	assert.True(t, apperr.Is(err, apperr.CodeForbidden))
	got, err := w.booking.GetTicket(ctx, s.passenger.ID, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, tk.ID, got.ID)

	_, err = w.booking.ListByFlight(ctx, s.airline.ID+100, f.ID)
	assert.True(t, apperr.Is(err, apperr.CodeForbidden))
	manifest, err := w.booking.ListByFlight(ctx, s.airline.ID, f.ID)
	require.NoError(t, err)
	assert.Len(t, manifest, 1)

	stats, err := w.booking.AirlineStats(ctx, s.airline.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), stats.RevenueCents)
}

func TestFlightCreateRules(t *testing.T) {
	w := newWorld(t)
	s := w.basic(t)
	ctx := context.Background()
	dep := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)
	base := func() *model.Flight {
		return &model.Flight{
			AirlineID: s.airline.ID, AircraftID: s.aircraft.ID,
			DepartureAirportID: s.from.ID, ArrivalAirportID: s.to.ID,
			DepartureAt: dep, ArrivalAt: dep.Add(time.Hour),
			EconomyCents: 1, BusinessCents: 2, FirstCents: 3,
		}
	}

	f := base()
	require.NoError(t, w.flights.Create(ctx, f))
	assert.Equal(t, 100, f.Capacity)
	assert.Equal(t, 100, f.RemainingSeats)

	f = base()
	f.Capacity = 101
	assert.True(t, apperr.Is(w.flights.Create(ctx, f), apperr.CodeValidation))

	f = base()
	f.ArrivalAirportID = f.DepartureAirportID
	assert.True(t, apperr.Is(w.flights.Create(ctx, f), apperr.CodeValidation))

	other := w.airline(t, "BA")
	f = base()
	f.AirlineID = other.ID
	assert.True(t, apperr.Is(w.flights.Create(ctx, f), apperr.CodeForbidden))

	f = base()
	f.ArrivalAirportID = 999
	assert.True(t, apperr.Is(w.flights.Create(ctx, f), apperr.CodeNotFound))
}

func TestSearchDefaultsAndRejectsBadSort(t *testing.T) {
	w := newWorld(t)
	s := w.basic(t)
	f := w.flight(t, s.aircraft, s.from, s.to, 2)
	ctx := context.Background()

	got, err := w.flights.Search(ctx, model.FlightQuery{
		DepartureAirportID: s.from.ID, ArrivalAirportID: s.to.ID,
		Date: time.Date(2030, 1, 1, 22, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, f.ID, got[0].ID)

	_, err = w.flights.Search(ctx, model.FlightQuery{
		DepartureAirportID: s.from.ID, ArrivalAirportID: s.to.ID, Date: time.Now(), Sort: "stops",
	})
	assert.True(t, apperr.Is(err, apperr.CodeValidation))
}

func TestAirlineCascade(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	from, to := w.airport(t, "AMS"), w.airport(t, "LHR")
	pax := w.passenger(t, "p@pax.test")

	doomed := w.airline(t, "AA")
	ac1 := w.aircraft(t, doomed.ID, 50)
	ac2 := w.aircraft(t, doomed.ID, 50)
	flights := []*model.Flight{
		w.flight(t, ac1, from, to, 10),
		w.flight(t, ac1, to, from, 10),
		w.flight(t, ac2, from, to, 10),
	}
	var doomedTickets []uint64
	for i := 0; i < 5; i++ {
		tk, err := w.booking.PurchaseTicket(ctx, PurchaseRequest{
			PassengerID: pax.ID, FlightID: flights[i%3].ID, Class: "economy",
		})
		require.NoError(t, err)
		doomedTickets = append(doomedTickets, tk.ID)
	}

	kept := w.airline(t, "BB")
	keptFlight := w.flight(t, w.aircraft(t, kept.ID, 20), from, to, 10)
	keptTicket, err := w.booking.PurchaseTicket(ctx, PurchaseRequest{PassengerID: pax.ID, FlightID: keptFlight.ID, Class: "economy"})
	require.NoError(t, err)

	require.NoError(t, w.lifecycle.DeleteAirline(ctx, doomed.ID))

	for _, id := range []uint64{ac1.ID, ac2.ID} {
		_, err := w.st.Aircraft.GetByID(ctx, id)
		assert.True(t, apperr.Is(err, apperr.CodeNotFound))
	}
	for _, f := range flights {
		_, err := w.st.Flights.GetByID(ctx, f.ID)
		assert.True(t, apperr.Is(err, apperr.CodeNotFound))
	}
	for _, id := range doomedTickets {
		_, err := w.st.Tickets.GetByID(ctx, id)
		assert.True(t, apperr.Is(err, apperr.CodeNotFound))
	}
	got, err := w.st.Tickets.GetByID(ctx, keptTicket.ID)
	require.NoError(t, err)
	assert.Equal(t, keptFlight.ID, got.FlightID)
	assert.Equal(t, 9, w.remaining(t, keptFlight.ID))
}

func TestOwnershipOnDeletes(t *testing.T) {
	w := newWorld(t)
	s := w.basic(t)
	f := w.flight(t, s.aircraft, s.from, s.to, 2)
	ctx := context.Background()
	other := w.airline(t, "LH")

	assert.True(t, apperr.Is(w.lifecycle.DeleteOwnFlight(ctx, other.ID, f.ID), apperr.CodeForbidden))
	assert.True(t, apperr.Is(w.lifecycle.DeleteOwnAircraft(ctx, other.ID, s.aircraft.ID), apperr.CodeForbidden))
	assert.True(t, apperr.Is(w.lifecycle.DeleteOwnAircraft(ctx, s.airline.ID, s.aircraft.ID), apperr.CodeConflict))
	require.NoError(t, w.lifecycle.DeleteOwnFlight(ctx, s.airline.ID, f.ID))
	require.NoError(t, w.lifecycle.DeleteOwnAircraft(ctx, s.airline.ID, s.aircraft.ID))
}

func TestTicketDeleteReturnsSeat(t *testing.T) {
	w := newWorld(t)
	s := w.basic(t)
	f := w.flight(t, s.aircraft, s.from, s.to, 2)
	ctx := context.Background()

	tk, err := w.booking.PurchaseTicket(ctx, PurchaseRequest{PassengerID: s.passenger.ID, FlightID: f.ID, Class: "economy"})
	require.NoError(t, err)
	assert.Equal(t, 1, w.remaining(t, f.ID))

	require.NoError(t, w.lifecycle.DeleteTicket(ctx, tk.ID))
	assert.Equal(t, 2, w.remaining(t, f.ID))
}

func TestCatalogUniqueness(t *testing.T) {
	w := newWorld(t)
	w.airline(t, "KL")
	err := w.catalog.CreateAirline(context.Background(), &model.Airline{Name: "Dup", IATACode: "kl", Email: "other@air.test"})
	assert.True(t, apperr.Is(err, apperr.CodeConflict))

	w.passenger(t, "x@pax.test")
	err = w.catalog.RegisterPassenger(context.Background(), &model.Passenger{Name: "Y", Email: "X@pax.test"})
	assert.True(t, apperr.Is(err, apperr.CodeConflict))

	airlines, err := w.catalog.ListAirlines(context.Background())
	require.NoError(t, err)
	assert.Len(t, airlines, 1)
}
