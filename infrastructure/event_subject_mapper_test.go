package infrastructure

import (
	"testing"

	"chisato/domain/events"

	"github.com/stretchr/testify/assert"
)

func TestEventSubjectMapper_RoundTrip(t *testing.T) {
	t.Parallel()

	mapper := NewEventSubjectMapper()

	tests := []struct {
		event   events.Event
		subject string
	}{
		{events.RoomCreatedEvent{}, "rooms.created"},
		{events.RoomDeletedEvent{}, "rooms.deleted"},
		{events.LeaderTransferredEvent{}, "rooms.leader_transferred"},
		{events.RoomMutatedEvent{}, "rooms.mutated"},
		{events.RoomConfigChangedEvent{}, "rooms.config_changed"},
	}

	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.subject, mapper.MapEventToSubject(tt.event))
			assert.Equal(t, tt.event.Type(), mapper.MapSubjectToEventType(tt.subject))
			assert.Contains(t, mapper.GetAllSubjects(), tt.subject)
		})
	}

	assert.Len(t, mapper.GetAllSubjects(), len(tests))
}

func TestEventSubjectMapper_UnknownSubject(t *testing.T) {
	t.Parallel()

	assert.Equal(t, events.EventType("other.thing"), NewEventSubjectMapper().MapSubjectToEventType("other.thing"))
}
