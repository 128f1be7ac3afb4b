package infrastructure

import (
	"fmt"

	"chisato/domain/events"
)

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts a domain event to its corresponding NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	switch event.Type() {
	case events.EventTypeRoomCreated:
		return "rooms.created"
	case events.EventTypeRoomDeleted:
		return "rooms.deleted"
	case events.EventTypeLeaderTransferred:
		return "rooms.leader_transferred"
	case events.EventTypeRoomMutated:
		return "rooms.mutated"
	case events.EventTypeConfigChanged:
		return "rooms.config_changed"
	default:
		return fmt.Sprintf("unknown.%s", event.Type())
	}
}

// MapSubjectToEventType converts a NATS subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	switch subject {
	case "rooms.created":
		return events.EventTypeRoomCreated
	case "rooms.deleted":
		return events.EventTypeRoomDeleted
	case "rooms.leader_transferred":
		return events.EventTypeLeaderTransferred
	case "rooms.mutated":
		return events.EventTypeRoomMutated
	case "rooms.config_changed":
		return events.EventTypeConfigChanged
	default:
		return events.EventType(subject)
	}
}

// GetAllSubjects returns all subjects that this service publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{
		"rooms.created",
		"rooms.deleted",
		"rooms.leader_transferred",
		"rooms.mutated",
		"rooms.config_changed",
	}
}
