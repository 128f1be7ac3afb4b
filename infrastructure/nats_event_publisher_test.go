package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"chisato/domain/events"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startJetStream runs an in-process NATS server with JetStream enabled
func startJetStream(t *testing.T) string {
	t.Helper()

	ns, err := natsserver.NewServer(&natsserver.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
		NoLog:     true,
		NoSigs:    true,
	})
	require.NoError(t, err)

	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		t.Fatal("nats server did not start")
	}
	t.Cleanup(ns.Shutdown)

	return ns.ClientURL()
}

func connectedPublisher(t *testing.T) (*NATSEventPublisher, *NATSClient) {
	t.Helper()

	client := NewNATSClient(startJetStream(t))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, client.Connect(ctx))
	t.Cleanup(func() { _ = client.Close() })

	publisher := NewNATSEventPublisher(client, NewEventSubjectMapper())
	require.NoError(t, publisher.EnsureDomainEventStream())
	return publisher, client
}

func TestNATSEventPublisher_PublishesEnvelope(t *testing.T) {
	t.Parallel()

	publisher, client := connectedPublisher(t)
	assert.True(t, client.IsConnected())

	sub, err := client.nc.SubscribeSync("rooms.>")
	require.NoError(t, err)

	event := events.LeaderTransferredEvent{
		GuildID:          10,
		VoiceChannelID:   20,
		PreviousLeaderID: 30,
		NewLeaderID:      40,
	}
	require.NoError(t, publisher.Publish(event))

	msg, err := sub.NextMsg(5 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "rooms.leader_transferred", msg.Subject)

	var envelope EventEnvelope
	require.NoError(t, json.Unmarshal(msg.Data, &envelope))
	assert.Equal(t, string(events.EventTypeLeaderTransferred), envelope.EventType)
	assert.Equal(t, "chisato", envelope.SourceService)
	assert.NotEmpty(t, envelope.EventID)

	var payload events.LeaderTransferredEvent
	require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
	assert.Equal(t, event, payload)

	info, err := client.js.StreamInfo(DomainEventStream)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), info.State.Msgs)
}

func TestNATSEventPublisher_EnsureStreamIsIdempotent(t *testing.T) {
	t.Parallel()

	publisher, _ := connectedPublisher(t)
	assert.NoError(t, publisher.EnsureDomainEventStream())
}

func TestNATSEventPublisher_LocalHandlersWithoutClient(t *testing.T) {
	t.Parallel()

	publisher := NewNATSEventPublisher(nil, NewEventSubjectMapper())
	assert.NoError(t, publisher.EnsureDomainEventStream())

	var seen []events.Event
	publisher.RegisterLocalHandler(events.EventTypeRoomDeleted, func(_ context.Context, e events.Event) error {
		seen = append(seen, e)
		return nil
	})
	publisher.RegisterLocalHandler(events.EventTypeRoomDeleted, func(context.Context, events.Event) error {
		return errors.New("handler failure is logged only")
	})

	deleted := events.RoomDeletedEvent{GuildID: 1, VoiceChannelID: 2, Reason: events.DeleteReasonEmpty}
	assert.NoError(t, publisher.Publish(deleted))
	assert.NoError(t, publisher.Publish(events.RoomCreatedEvent{GuildID: 1}))

	assert.Equal(t, []events.Event{deleted}, seen)
}

func TestNewEventEnvelope(t *testing.T) {
	t.Parallel()

	first, err := NewEventEnvelope(events.RoomConfigChangedEvent{GuildID: 5, Enabled: true})
	require.NoError(t, err)
	second, err := NewEventEnvelope(events.RoomConfigChangedEvent{GuildID: 5, Enabled: true})
	require.NoError(t, err)

	assert.NotEqual(t, first.EventID, second.EventID)
	assert.JSONEq(t, `{"guild_id":5,"enabled":true,"love_hub":false}`, string(first.Payload))
	assert.WithinDuration(t, time.Now(), first.Timestamp, time.Minute)
}

func TestNATSClient_PublishDropsDuplicateMsgID(t *testing.T) {
	t.Parallel()

	_, client := connectedPublisher(t)
	ctx := context.Background()

	require.NoError(t, client.Publish(ctx, "rooms.mutated", "dup-1", []byte(`{}`)))
	require.NoError(t, client.Publish(ctx, "rooms.mutated", "dup-1", []byte(`{}`)))
	require.NoError(t, client.Publish(ctx, "rooms.mutated", "dup-2", []byte(`{}`)))

	info, err := client.js.StreamInfo(DomainEventStream)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), info.State.Msgs)
}

func TestSameSubjects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		have []string
		want []string
		same bool
	}{
		{"equal", []string{"rooms.created", "rooms.deleted"}, []string{"rooms.created", "rooms.deleted"}, true},
		{"reordered", []string{"rooms.deleted", "rooms.created"}, []string{"rooms.created", "rooms.deleted"}, true},
		{"missing", []string{"rooms.created"}, []string{"rooms.created", "rooms.deleted"}, false},
		{"different", []string{"rooms.created", "rooms.mutated"}, []string{"rooms.created", "rooms.deleted"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.same, sameSubjects(tt.have, tt.want))
		})
	}
}
