package infrastructure

import (
	"context"

	"chisato/domain/events"
	"chisato/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// NATSTransactionalPublisher holds events until the surrounding transaction
// commits, then hands them to the real publisher
type NATSTransactionalPublisher struct {
	realPublisher interfaces.EventPublisher
	pending       []events.Event
}

// NewNATSTransactionalPublisher creates a new transactional publisher
func NewNATSTransactionalPublisher(realPublisher interfaces.EventPublisher) *NATSTransactionalPublisher {
	return &NATSTransactionalPublisher{
		realPublisher: realPublisher,
		pending:       make([]events.Event, 0),
	}
}

// Publish queues the event
func (p *NATSTransactionalPublisher) Publish(event events.Event) error {
	p.pending = append(p.pending, event)
	return nil
}

// Pending returns how many events are queued
func (p *NATSTransactionalPublisher) Pending() int {
	return len(p.pending)
}

// Flush publishes all pending events. Failures are logged and do not stop the rest.
func (p *NATSTransactionalPublisher) Flush(ctx context.Context) error {
	log.WithField("pending_count", len(p.pending)).Debug("Flushing pending room events")

	for _, event := range p.pending {
		if err := p.realPublisher.Publish(event); err != nil {
			log.WithFields(log.Fields{
				"event_type": event.Type(),
			}).WithError(err).Error("Failed to publish event during flush")
		}
	}

	p.pending = p.pending[:0]
	return nil
}

// Discard drops all pending events
func (p *NATSTransactionalPublisher) Discard() {
	if len(p.pending) > 0 {
		log.WithField("discarded_count", len(p.pending)).Debug("Discarding pending room events")
	}
	p.pending = p.pending[:0]
}
