package services

import (
	"context"
	"errors"
	"testing"

	"chisato/domain/entities"
	"chisato/domain/events"
	"chisato/domain/interfaces"
	"chisato/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newReconcileService(mocks *TestMocks) interfaces.ReconcileService {
	return NewReconcileService(mocks.LiveRoomRepo, mocks.Gateway, mocks.EventPublisher, testhelpers.EchoLocalizer{}, testhelpers.FixedRandom(0))
}

func TestReconcile_ExpireCooldowns(t *testing.T) {
	t.Parallel()

	keys := []entities.RoomKey{{GuildID: TestGuildID, VoiceChannelID: TestRoomID}}

	mocks := NewTestMocks()
	mocks.LiveRoomRepo.On("ExpireCooldowns", mock.Anything, testNow).Return(keys, nil)

	got, err := newReconcileService(mocks).ExpireCooldowns(context.Background(), testNow)

	require.NoError(t, err)
	assert.Equal(t, keys, got)
	mocks.AssertAllExpectations(t)
}

func TestReconcile_ExpireCooldownsStoreFailure(t *testing.T) {
	t.Parallel()

	mocks := NewTestMocks()
	mocks.LiveRoomRepo.On("ExpireCooldowns", mock.Anything, testNow).Return(nil, errors.New("connection reset"))

	_, err := newReconcileService(mocks).ExpireCooldowns(context.Background(), testNow)

	require.Error(t, err)
	assert.Equal(t, entities.ClassFatal, entities.ClassOf(err))
	assert.Equal(t, entities.CodeStoreFailure, entities.CodeOf(err))
}

func TestReconcile_SweepRoom(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		setup       func(m *TestMocks)
		wantOutcome interfaces.SweepOutcome
		wantReason  events.DeleteReason
	}{
		{
			name: "channel deleted while offline",
			setup: func(m *TestMocks) {
				m.Gateway.On("ResolveChannel", mock.Anything, TestRoomID).Return(absent(TestRoomID), nil)
			},
			wantOutcome: interfaces.SweepRemovedMissing,
			wantReason:  events.DeleteReasonOrphaned,
		},
		{
			name: "channel left empty",
			setup: func(m *TestMocks) {
				m.Gateway.On("ResolveChannel", mock.Anything, TestRoomID).Return(snapshot(TestRoomID, nil), nil)
				m.Gateway.On("DeleteChannel", mock.Anything, TestRoomID).Return(nil)
			},
			wantOutcome: interfaces.SweepRemovedEmpty,
			wantReason:  events.DeleteReasonEmpty,
		},
		{
			name: "lookup retried after a transient failure",
			setup: func(m *TestMocks) {
				m.Gateway.On("ResolveChannel", mock.Anything, TestRoomID).
					Return(nil, testhelpers.GatewayErr(interfaces.ErrorKindTransient)).Once()
				m.Gateway.On("ResolveChannel", mock.Anything, TestRoomID).Return(absent(TestRoomID), nil).Once()
			},
			wantOutcome: interfaces.SweepRemovedMissing,
			wantReason:  events.DeleteReasonOrphaned,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mocks := NewTestMocks()
			tt.setup(mocks)
			mocks.LiveRoomRepo.On("DeleteLiveRoom", mock.Anything, TestGuildID, TestRoomID).Return(true, nil)
			mocks.EventPublisher.On("Publish", events.RoomDeletedEvent{
				GuildID:        TestGuildID,
				VoiceChannelID: TestRoomID,
				Reason:         tt.wantReason,
			}).Return(nil)

			outcome, err := newReconcileService(mocks).SweepRoom(context.Background(), testRoom(TestUser1ID))

			require.NoError(t, err)
			assert.Equal(t, tt.wantOutcome, outcome)
			mocks.AssertAllExpectations(t)
		})
	}
}

func TestReconcile_SweepHandsRoomOfDepartedLeaderToMember(t *testing.T) {
	t.Parallel()

	mocks := NewTestMocks()
	mocks.Gateway.On("ResolveChannel", mock.Anything, TestRoomID).
		Return(snapshot(TestRoomID, []int64{TestUser2ID}, leaderOverwrite(TestUser1ID)), nil)
	mocks.Gateway.On("MemberDisplayName", mock.Anything, TestGuildID, TestUser1ID).
		Return("", testhelpers.GatewayErr(interfaces.ErrorKindNotFound))
	mocks.LiveRoomRepo.On("UpdateLeader", mock.Anything, TestGuildID, TestRoomID, TestUser2ID).Return(nil)
	mocks.Gateway.On("SetPermissionOverwrite", mock.Anything, TestRoomID, leaderOverwrite(TestUser2ID)).Return(nil)
	mocks.Gateway.On("ClearPermissionOverwrite", mock.Anything, TestRoomID, TestUser1ID).Return(nil)
	mocks.Gateway.On("GuildLocale", mock.Anything, TestGuildID).Return("en-US")
	mocks.Gateway.On("SendChannelMessage", mock.Anything, TestRoomID, "rooms.announce.new_leader leader=<@200>").Return(nil)
	mocks.EventPublisher.On("Publish", events.LeaderTransferredEvent{
		GuildID:          TestGuildID,
		VoiceChannelID:   TestRoomID,
		PreviousLeaderID: TestUser1ID,
		NewLeaderID:      TestUser2ID,
	}).Return(nil)

	outcome, err := newReconcileService(mocks).SweepRoom(context.Background(), testRoom(TestUser1ID))

	require.NoError(t, err)
	assert.Equal(t, interfaces.SweepMigrated, outcome)
	mocks.Gateway.AssertNotCalled(t, "DeleteChannel", mock.Anything, mock.Anything)
	mocks.LiveRoomRepo.AssertNotCalled(t, "DeleteLiveRoom", mock.Anything, mock.Anything, mock.Anything)
	mocks.AssertAllExpectations(t)
}

func TestReconcile_SweepKeepsHealthyRoom(t *testing.T) {
	t.Parallel()

	mocks := NewTestMocks()
	mocks.Gateway.On("ResolveChannel", mock.Anything, TestRoomID).Return(snapshot(TestRoomID, []int64{TestUser1ID}), nil)
	mocks.Gateway.On("MemberDisplayName", mock.Anything, TestGuildID, TestUser1ID).Return("U1", nil)

	outcome, err := newReconcileService(mocks).SweepRoom(context.Background(), testRoom(TestUser1ID))

	require.NoError(t, err)
	assert.Equal(t, interfaces.SweepKept, outcome)
	mocks.LiveRoomRepo.AssertNotCalled(t, "DeleteLiveRoom", mock.Anything, mock.Anything, mock.Anything)
	mocks.AssertAllExpectations(t)
}

func TestReconcile_SweepRowAlreadyGoneIsQuiet(t *testing.T) {
	t.Parallel()

	mocks := NewTestMocks()
	mocks.Gateway.On("ResolveChannel", mock.Anything, TestRoomID).Return(absent(TestRoomID), nil)
	mocks.LiveRoomRepo.On("DeleteLiveRoom", mock.Anything, TestGuildID, TestRoomID).Return(false, nil)

	outcome, err := newReconcileService(mocks).SweepRoom(context.Background(), testRoom(TestUser1ID))

	require.NoError(t, err)
	assert.Equal(t, interfaces.SweepRemovedMissing, outcome)
	mocks.EventPublisher.AssertNotCalled(t, "Publish", mock.Anything)
	mocks.AssertAllExpectations(t)
}

func TestReconcile_SweepSkipsOnPlatformFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		setup     func(m *TestMocks)
		wantFatal bool
	}{
		{
			name: "resolve transient",
			setup: func(m *TestMocks) {
				m.Gateway.On("ResolveChannel", mock.Anything, TestRoomID).
					Return(nil, testhelpers.GatewayErr(interfaces.ErrorKindTransient))
			},
		},
		{
			name: "resolve forbidden",
			setup: func(m *TestMocks) {
				m.Gateway.On("ResolveChannel", mock.Anything, TestRoomID).
					Return(nil, testhelpers.GatewayErr(interfaces.ErrorKindForbidden))
			},
		},
		{
			name: "leader lookup rate limited",
			setup: func(m *TestMocks) {
				m.Gateway.On("ResolveChannel", mock.Anything, TestRoomID).Return(snapshot(TestRoomID, []int64{TestUser2ID}), nil)
				m.Gateway.On("MemberDisplayName", mock.Anything, TestGuildID, TestUser1ID).
					Return("", testhelpers.GatewayErr(interfaces.ErrorKindRateLimited))
			},
		},
		{
			name: "token revoked",
			setup: func(m *TestMocks) {
				m.Gateway.On("ResolveChannel", mock.Anything, TestRoomID).
					Return(nil, testhelpers.GatewayErr(interfaces.ErrorKindUnauthorized))
			},
			wantFatal: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mocks := NewTestMocks()
			tt.setup(mocks)

			outcome, err := newReconcileService(mocks).SweepRoom(context.Background(), testRoom(TestUser1ID))

			if tt.wantFatal {
				require.Error(t, err)
				assert.Equal(t, entities.ClassFatal, entities.ClassOf(err))
			} else {
				require.NoError(t, err)
				assert.Equal(t, interfaces.SweepSkipped, outcome)
			}
			mocks.LiveRoomRepo.AssertNotCalled(t, "DeleteLiveRoom", mock.Anything, mock.Anything, mock.Anything)
			mocks.Gateway.AssertNotCalled(t, "DeleteChannel", mock.Anything, mock.Anything)
			mocks.AssertAllExpectations(t)
		})
	}
}
