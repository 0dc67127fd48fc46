package memstore

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/flight-seat-reservation/internal/apperr"
	"github.com/iliyamo/flight-seat-reservation/internal/model"
)

type fixture struct {
	s         *Store
	airline   *model.Airline
	aircraft  *model.Aircraft
	from, to  *model.Airport
	passenger *model.Passenger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	s := New()
	f := &fixture{
		s:         s,
		airline:   &model.Airline{Name: "Skyways", IATACode: "sk", Country: "NL", Email: "ops@skyways.test"},
		from:      &model.Airport{Name: "Schiphol", City: "Amsterdam", Country: "NL", IATACode: "ams"},
		to:        &model.Airport{Name: "Heathrow", City: "London", Country: "GB", IATACode: "LHR"},
		passenger: &model.Passenger{Name: "Ada", Surname: "Lovelace", Email: "ada@example.test"},
	}
	require.NoError(t, s.Airlines().Create(ctx, f.airline))
	require.NoError(t, s.Airports().Create(ctx, f.from))
	require.NoError(t, s.Airports().Create(ctx, f.to))
	require.NoError(t, s.Passengers().Create(ctx, f.passenger))
	f.aircraft = &model.Aircraft{AirlineID: f.airline.ID, Model: "A320", TotalSeats: 180}
	require.NoError(t, s.Aircraft().Create(ctx, f.aircraft))
	return f
}

func (f *fixture) flight(t *testing.T, capacity int, dep time.Time) *model.Flight {
	t.Helper()
	fl := &model.Flight{
		AirlineID:          f.airline.ID,
		AircraftID:         f.aircraft.ID,
		DepartureAirportID: f.from.ID,
		ArrivalAirportID:   f.to.ID,
		DepartureAt:        dep,
		ArrivalAt:          dep.Add(time.Hour),
		Capacity:           capacity,
		RemainingSeats:     capacity,
		EconomyCents:       10000,
		BusinessCents:      20000,
		FirstCents:         40000,
	}
	require.NoError(t, f.s.Flights().Create(context.Background(), fl))
	return fl
}

func (f *fixture) issue(t *testing.T, flightID uint64) *model.Ticket {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.s.Flights().Reserve(ctx, flightID))
	tk := &model.Ticket{PassengerID: f.passenger.ID, FlightID: flightID, Class: model.Economy, PriceCents: 10000}
	require.NoError(t, f.s.Tickets().Issue(ctx, tk))
	return tk
}

func remaining(t *testing.T, s *Store, id uint64) int {
	t.Helper()
	fl, err := s.Flights().GetByID(context.Background(), id)
	require.NoError(t, err)
	return fl.RemainingSeats
}

func TestCatalogNormalisesAndRejectsDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.Equal(t, "SK", f.airline.IATACode)
	assert.Equal(t, "AMS", f.from.IATACode)

	err := f.s.Airlines().Create(ctx, &model.Airline{Name: "Other", IATACode: "XX", Email: "OPS@skyways.test"})
	assert.True(t, apperr.Is(err, apperr.CodeConflict))

	err = f.s.Airports().Create(ctx, &model.Airport{Name: "Dup", IATACode: " lhr"})
	assert.True(t, apperr.Is(err, apperr.CodeConflict))

	err = f.s.Passengers().Create(ctx, &model.Passenger{Name: "A", Email: "ADA@example.test "})
	assert.True(t, apperr.Is(err, apperr.CodeConflict))

	got, err := f.s.Passengers().GetByEmail(ctx, " Ada@Example.test")
	require.NoError(t, err)
	assert.Equal(t, f.passenger.ID, got.ID)

	err = f.s.Aircraft().Create(ctx, &model.Aircraft{AirlineID: 999, Model: "B737", TotalSeats: 10})
	assert.True(t, apperr.Is(err, apperr.CodeConflict))
}

func TestReserveNeverOversells(t *testing.T) {
	f := newFixture(t)
	fl := f.flight(t, 10, time.Now().Add(24*time.Hour))

	var ok, exhausted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := f.s.Flights().Reserve(context.Background(), fl.ID)
			switch {
			case err == nil:
				ok.Add(1)
			case apperr.Is(err, apperr.CodeSeatsExhausted):
				exhausted.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), ok.Load())
	assert.Equal(t, int32(90), exhausted.Load())
	assert.Equal(t, 0, remaining(t, f.s, fl.ID))
}

func TestReleaseIsCappedAtCapacity(t *testing.T) {
	f := newFixture(t)
	fl := f.flight(t, 2, time.Now().Add(time.Hour))
	ctx := context.Background()

	require.NoError(t, f.s.Flights().Release(ctx, fl.ID))
	assert.Equal(t, 2, remaining(t, f.s, fl.ID))

	require.NoError(t, f.s.Flights().Reserve(ctx, fl.ID))
	require.NoError(t, f.s.Flights().Release(ctx, fl.ID))
	require.NoError(t, f.s.Flights().Release(ctx, fl.ID))
	assert.Equal(t, 2, remaining(t, f.s, fl.ID))

	assert.True(t, apperr.Is(f.s.Flights().Reserve(ctx, 999), apperr.CodeNotFound))
	assert.True(t, apperr.Is(f.s.Flights().Release(ctx, 999), apperr.CodeNotFound))
}

func TestIssueRejectsReusedRequestKey(t *testing.T) {
	f := newFixture(t)
	fl := f.flight(t, 5, time.Now().Add(time.Hour))
	ctx := context.Background()

	key := "k-1"
	first := &model.Ticket{PassengerID: f.passenger.ID, FlightID: fl.ID, Class: model.First, PriceCents: 40000, RequestKey: &key}
	require.NoError(t, f.s.Tickets().Issue(ctx, first))

	err := f.s.Tickets().Issue(ctx, &model.Ticket{PassengerID: f.passenger.ID, FlightID: fl.ID, Class: model.First, PriceCents: 40000, RequestKey: &key})
	assert.ErrorIs(t, err, model.ErrDuplicateRequestKey)

	got, err := f.s.Tickets().GetByRequestKey(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestSearchFiltersAndSorts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	cheapLong := f.flight(t, 3, day.Add(6*time.Hour))
	pricey := &model.Flight{
		AirlineID: f.airline.ID, AircraftID: f.aircraft.ID,
		DepartureAirportID: f.from.ID, ArrivalAirportID: f.to.ID,
		DepartureAt: day.Add(8 * time.Hour), ArrivalAt: day.Add(8*time.Hour + 30*time.Minute),
		Capacity: 3, RemainingSeats: 3, EconomyCents: 15000, BusinessCents: 20000, FirstCents: 40000,
	}
	require.NoError(t, f.s.Flights().Create(ctx, pricey))
	full := f.flight(t, 1, day.Add(7*time.Hour))
	require.NoError(t, f.s.Flights().Reserve(ctx, full.ID))
	f.flight(t, 3, day.AddDate(0, 0, 1))

	q := model.FlightQuery{DepartureAirportID: f.from.ID, ArrivalAirportID: f.to.ID, Date: day.Add(23 * time.Hour)}
	got, err := f.s.Flights().Search(ctx, q)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []uint64{cheapLong.ID, pricey.ID}, []uint64{got[0].ID, got[1].ID})

	q.Sort = model.SortByDuration
	got, err = f.s.Flights().Search(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []uint64{pricey.ID, cheapLong.ID}, []uint64{got[0].ID, got[1].ID})
}

func TestDeletionsKeepSeatConservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fl := f.flight(t, 5, time.Now().Add(time.Hour))

	t1 := f.issue(t, fl.ID)
	f.issue(t, fl.ID)
	f.issue(t, fl.ID)
	assert.Equal(t, 2, remaining(t, f.s, fl.ID))

	require.NoError(t, f.s.Tickets().Delete(ctx, t1.ID))
	assert.Equal(t, 3, remaining(t, f.s, fl.ID))
	assert.True(t, apperr.Is(f.s.Tickets().Delete(ctx, t1.ID), apperr.CodeNotFound))

	require.NoError(t, f.s.Passengers().Delete(ctx, f.passenger.ID))
	assert.Equal(t, 5, remaining(t, f.s, fl.ID))
	left, err := f.s.Tickets().ListByFlight(ctx, fl.ID)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestAircraftAndAirportDeleteBlockedByFlights(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fl := f.flight(t, 5, time.Now().Add(time.Hour))

	assert.True(t, apperr.Is(f.s.Aircraft().Delete(ctx, f.aircraft.ID), apperr.CodeConflict))
	assert.True(t, apperr.Is(f.s.Airports().Delete(ctx, f.to.ID), apperr.CodeConflict))

	require.NoError(t, f.s.Flights().Delete(ctx, fl.ID))
	require.NoError(t, f.s.Aircraft().Delete(ctx, f.aircraft.ID))
	require.NoError(t, f.s.Airports().Delete(ctx, f.to.ID))
}

func TestAirlineDeleteCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fl := f.flight(t, 5, time.Now().Add(time.Hour))
	tk := f.issue(t, fl.ID)

	require.NoError(t, f.s.Airlines().Delete(ctx, f.airline.ID))

	_, err := f.s.Flights().GetByID(ctx, fl.ID)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
	_, err = f.s.Tickets().GetByID(ctx, tk.ID)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
	_, err = f.s.Aircraft().GetByID(ctx, f.aircraft.ID)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
	_, err = f.s.Passengers().GetByID(ctx, f.passenger.ID)
	assert.NoError(t, err)
}

func TestExtraDeleteKeepsPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fl := f.flight(t, 5, time.Now().Add(time.Hour))
	bag := &model.Extra{Name: "Bag", CostCents: 2500}
	require.NoError(t, f.s.Extras().Create(ctx, bag))

	require.NoError(t, f.s.Flights().Reserve(ctx, fl.ID))
	tk := &model.Ticket{PassengerID: f.passenger.ID, FlightID: fl.ID, Class: model.Economy, PriceCents: 12500, Extras: []model.Extra{*bag}}
	require.NoError(t, f.s.Tickets().Issue(ctx, tk))

	require.NoError(t, f.s.Extras().Delete(ctx, bag.ID))
	got, err := f.s.Tickets().GetByID(ctx, tk.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Extras)
	assert.Equal(t, int64(12500), got.PriceCents)
}

func TestStatsTopRoutes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fl := f.flight(t, 5, time.Now().Add(time.Hour))
	f.issue(t, fl.ID)
	f.issue(t, fl.ID)

	st, err := f.s.Tickets().Stats(ctx, f.airline.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Flights)
	assert.Equal(t, 2, st.Tickets)
	assert.Equal(t, int64(20000), st.RevenueCents)
	require.Len(t, st.TopRoutes, 1)
	assert.Equal(t, 2, st.TopRoutes[0].Tickets)
}
