package infrastructure

import (
	"context"
	"errors"
	"testing"

	"chisato/domain/events"
	"chisato/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestNATSTransactionalPublisher_QueuesUntilFlush(t *testing.T) {
	t.Parallel()

	inner := &testhelpers.MockEventPublisher{}
	publisher := NewNATSTransactionalPublisher(inner)

	created := events.RoomCreatedEvent{GuildID: 1, VoiceChannelID: 2, LeaderUserID: 3}
	deleted := events.RoomDeletedEvent{GuildID: 1, VoiceChannelID: 4, Reason: events.DeleteReasonAbandoned}

	assert.NoError(t, publisher.Publish(created))
	assert.NoError(t, publisher.Publish(deleted))
	assert.Equal(t, 2, publisher.Pending())
	inner.AssertNotCalled(t, "Publish", mock.Anything)

	var order []events.EventType
	inner.On("Publish", mock.Anything).Run(func(args mock.Arguments) {
		order = append(order, args.Get(0).(events.Event).Type())
	}).Return(nil)

	assert.NoError(t, publisher.Flush(context.Background()))
	assert.Equal(t, []events.EventType{events.EventTypeRoomCreated, events.EventTypeRoomDeleted}, order)
	assert.Zero(t, publisher.Pending())
}

func TestNATSTransactionalPublisher_FlushContinuesAfterFailure(t *testing.T) {
	t.Parallel()

	inner := &testhelpers.MockEventPublisher{}
	publisher := NewNATSTransactionalPublisher(inner)

	first := events.RoomMutatedEvent{GuildID: 1, VoiceChannelID: 2, Action: "close"}
	second := events.RoomMutatedEvent{GuildID: 1, VoiceChannelID: 2, Action: "vision"}
	inner.On("Publish", first).Return(errors.New("nats down")).Once()
	inner.On("Publish", second).Return(nil).Once()

	_ = publisher.Publish(first)
	_ = publisher.Publish(second)

	assert.NoError(t, publisher.Flush(context.Background()))
	inner.AssertExpectations(t)
	assert.Zero(t, publisher.Pending())
}

func TestNATSTransactionalPublisher_Discard(t *testing.T) {
	t.Parallel()

	inner := &testhelpers.MockEventPublisher{}
	publisher := NewNATSTransactionalPublisher(inner)

	_ = publisher.Publish(events.RoomConfigChangedEvent{GuildID: 1, Enabled: true})
	publisher.Discard()

	assert.Zero(t, publisher.Pending())
	assert.NoError(t, publisher.Flush(context.Background()))
	inner.AssertNotCalled(t, "Publish", mock.Anything)
}
