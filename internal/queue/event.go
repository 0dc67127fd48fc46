// Package queue defines message payloads exchanged over the message broker
// and the publishers and consumer that move them.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/flight-seat-reservation/internal/model"
)

// TicketIssuedQueue is the RabbitMQ queue and default Kafka topic for
// ticket events.
const TicketIssuedQueue = "ticket.issued"

// TicketIssuedEvent is published after a ticket is committed to the
// ledger.  It carries enough to log, notify or feed analytics without
// querying the primary database.  EventID is unique per event so
// consumers can drop redeliveries.
type TicketIssuedEvent struct {
	EventID     string    `json:"event_id"`
	TicketID    uint64    `json:"ticket_id"`
	PassengerID uint64    `json:"passenger_id"`
	FlightID    uint64    `json:"flight_id"`
	AirlineID   uint64    `json:"airline_id"`
	Class       string    `json:"class"`
	PriceCents  int64     `json:"price_cents"`
	ExtraIDs    []uint64  `json:"extra_ids"`
	Seat        string    `json:"seat,omitempty"`
	IssuedAt    time.Time `json:"issued_at"`
}

// NewTicketIssued builds the event for a committed ticket.
func NewTicketIssued(t *model.Ticket, f *model.Flight) TicketIssuedEvent {
	ev := TicketIssuedEvent{
		EventID:     uuid.NewString(),
		TicketID:    t.ID,
		PassengerID: t.PassengerID,
		FlightID:    t.FlightID,
		AirlineID:   f.AirlineID,
		Class:       t.Class.String(),
		PriceCents:  t.PriceCents,
		ExtraIDs:    t.ExtraIDs(),
		IssuedAt:    t.PurchasedAt.UTC(),
	}
	if t.Seat != nil {
		ev.Seat = *t.Seat
	}
	return ev
}
