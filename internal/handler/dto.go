package handler

import (
	"time"

	"github.com/iliyamo/flight-seat-reservation/internal/model"
)

// ----- requests -----

type registerAirlineReq struct {
	Name     string `json:"name" validate:"required,max=100"`
	IATACode string `json:"iata_code" validate:"required,len=2"`
	Country  string `json:"country" validate:"required,max=60"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type registerPassengerReq struct {
	Name     string `json:"name" validate:"required,max=60"`
	Surname  string `json:"surname" validate:"required,max=60"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=AIRLINE PASSENGER"`
}

type createAircraftReq struct {
	Model      string `json:"model" validate:"required,max=60"`
	TotalSeats int    `json:"total_seats" validate:"required,gt=0,max=1000"`
}

type createAirportReq struct {
	Name     string `json:"name" validate:"required,max=100"`
	City     string `json:"city" validate:"required,max=60"`
	Country  string `json:"country" validate:"required,max=60"`
	IATACode string `json:"iata_code" validate:"required,len=3,alpha"`
}

type createExtraReq struct {
	Name      string `json:"name" validate:"required,max=60"`
	CostCents int64  `json:"cost_cents" validate:"required,gt=0"`
}

type createFlightReq struct {
	AircraftID         uint64    `json:"aircraft_id" validate:"required"`
	DepartureAirportID uint64    `json:"departure_airport_id" validate:"required"`
	ArrivalAirportID   uint64    `json:"arrival_airport_id" validate:"required,nefield=DepartureAirportID"`
	DepartureAt        time.Time `json:"departure_at" validate:"required"`
	ArrivalAt          time.Time `json:"arrival_at" validate:"required,gtfield=DepartureAt"`
	Capacity           int       `json:"capacity" validate:"min=0"`
	EconomyCents       int64     `json:"economy_cents" validate:"required,gt=0"`
	BusinessCents      int64     `json:"business_cents" validate:"required,gt=0"`
	FirstCents         int64     `json:"first_cents" validate:"required,gt=0"`
}

type purchaseReq struct {
	Class    string   `json:"class" validate:"required,fareclass"`
	ExtraIDs []uint64 `json:"extra_ids" validate:"max=20"`
	Seat     *string  `json:"seat" validate:"omitempty,max=8"`
}

// ----- responses -----

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type accountPart struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type authResp struct {
	Account accountPart `json:"account"`
	Access  tokenPart   `json:"access"`
}

type airlineResp struct {
	ID       uint64    `json:"id"`
	Name     string    `json:"name"`
	IATACode string    `json:"iata_code"`
	Country  string    `json:"country"`
	Created  time.Time `json:"created_at"`
}

type aircraftResp struct {
	ID         uint64    `json:"id"`
	AirlineID  uint64    `json:"airline_id"`
	Model      string    `json:"model"`
	TotalSeats int       `json:"total_seats"`
	Created    time.Time `json:"created_at"`
}

type airportResp struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	City     string `json:"city"`
	Country  string `json:"country"`
	IATACode string `json:"iata_code"`
}

type extraResp struct {
	ID        uint64 `json:"id"`
	Name      string `json:"name"`
	CostCents int64  `json:"cost_cents"`
}

type flightResp struct {
	ID                 uint64    `json:"id"`
	AirlineID          uint64    `json:"airline_id"`
	AircraftID         uint64    `json:"aircraft_id"`
	DepartureAirportID uint64    `json:"departure_airport_id"`
	ArrivalAirportID   uint64    `json:"arrival_airport_id"`
	DepartureAt        time.Time `json:"departure_at"`
	ArrivalAt          time.Time `json:"arrival_at"`
	DurationMinutes    int       `json:"duration_minutes"`
	Capacity           int       `json:"capacity"`
	RemainingSeats     int       `json:"remaining_seats"`
	Prices             priceList `json:"prices"`
}

type priceList struct {
	Economy  int64 `json:"economy"`
	Business int64 `json:"business"`
	First    int64 `json:"first"`
}

type ticketResp struct {
	ID          uint64      `json:"id"`
	PassengerID uint64      `json:"passenger_id"`
	FlightID    uint64      `json:"flight_id"`
	Class       string      `json:"class"`
	PriceCents  int64       `json:"price_cents"`
	Seat        *string     `json:"seat,omitempty"`
	Extras      []extraResp `json:"extras"`
	PurchasedAt time.Time   `json:"purchased_at"`
}

type routeStatResp struct {
	DepartureAirportID uint64 `json:"departure_airport_id"`
	ArrivalAirportID   uint64 `json:"arrival_airport_id"`
	Tickets            int    `json:"tickets"`
}

type statsResp struct {
	Flights      int             `json:"flights"`
	Tickets      int             `json:"tickets"`
	RevenueCents int64           `json:"revenue_cents"`
	TopRoutes    []routeStatResp `json:"top_routes"`
}

type listResp[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}

// ----- converters -----

func newList[M any, T any](items []M, conv func(M) T) listResp[T] {
	out := make([]T, 0, len(items))
	for _, it := range items {
		out = append(out, conv(it))
	}
	return listResp[T]{Data: out, Total: len(out)}
}

func toAirline(a *model.Airline) airlineResp {
	return airlineResp{ID: a.ID, Name: a.Name, IATACode: a.IATACode, Country: a.Country, Created: a.CreatedAt}
}

func toAircraft(a *model.Aircraft) aircraftResp {
	return aircraftResp{ID: a.ID, AirlineID: a.AirlineID, Model: a.Model, TotalSeats: a.TotalSeats, Created: a.CreatedAt}
}

func toAirport(a *model.Airport) airportResp {
	return airportResp{ID: a.ID, Name: a.Name, City: a.City, Country: a.Country, IATACode: a.IATACode}
}

func toExtra(e *model.Extra) extraResp {
	return extraResp{ID: e.ID, Name: e.Name, CostCents: e.CostCents}
}

func toFlight(f *model.Flight) flightResp {
	return flightResp{
		ID:                 f.ID,
		AirlineID:          f.AirlineID,
		AircraftID:         f.AircraftID,
		DepartureAirportID: f.DepartureAirportID,
		ArrivalAirportID:   f.ArrivalAirportID,
		DepartureAt:        f.DepartureAt,
		ArrivalAt:          f.ArrivalAt,
		DurationMinutes:    int(f.Duration().Minutes()),
		Capacity:           f.Capacity,
		RemainingSeats:     f.RemainingSeats,
		Prices:             priceList{Economy: f.EconomyCents, Business: f.BusinessCents, First: f.FirstCents},
	}
}

func toTicket(t *model.Ticket) ticketResp {
	extras := make([]extraResp, 0, len(t.Extras))
	for i := range t.Extras {
		extras = append(extras, toExtra(&t.Extras[i]))
	}
	return ticketResp{
		ID:          t.ID,
		PassengerID: t.PassengerID,
		FlightID:    t.FlightID,
		Class:       t.Class.String(),
		PriceCents:  t.PriceCents,
		Seat:        t.Seat,
		Extras:      extras,
		PurchasedAt: t.PurchasedAt,
	}
}

func toStats(s *model.AirlineStats) statsResp {
	routes := make([]routeStatResp, 0, len(s.TopRoutes))
	for _, r := range s.TopRoutes {
		routes = append(routes, routeStatResp{
			DepartureAirportID: r.DepartureAirportID,
			ArrivalAirportID:   r.ArrivalAirportID,
			Tickets:            r.Tickets,
		})
	}
	return statsResp{Flights: s.Flights, Tickets: s.Tickets, RevenueCents: s.RevenueCents, TopRoutes: routes}
}
