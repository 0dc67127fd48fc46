package queue

import (
	"context"
	"encoding/json"
	"fmt"
)

// NoopPublisher drops events.  It is used when EVENTS_DRIVER=none.
type NoopPublisher struct{}

func (NoopPublisher) PublishTicketIssued(context.Context, TicketIssuedEvent) error { return nil }

func (NoopPublisher) Close() error { return nil }

func encode(ev TicketIssuedEvent) ([]byte, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal ticket event: %w", err)
	}
	return body, nil
}
