package application

import (
	"context"
	"errors"
	"testing"

	"chisato/domain/entities"
	"chisato/domain/interfaces"
	"chisato/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func ledRoom(leader int64) *entities.LiveRoom {
	return &entities.LiveRoom{GuildID: testGuildID, VoiceChannelID: testRoomID, LeaderUserID: leader}
}

func newPanelHandler(uow *fakeUnitOfWork, gateway *testhelpers.MockPlatformGateway) *PanelHandler {
	return NewPanelHandler(&fakeUnitOfWorkFactory{uow: uow}, gateway, testRoomSettings(), NewRoomLocks())
}

func TestPanelHandler_ExecuteCommits(t *testing.T) {
	t.Parallel()

	uow := newFakeUnitOfWork()
	gateway := &testhelpers.MockPlatformGateway{}
	gateway.On("MemberVoiceChannel", mock.Anything, testGuildID, testUserID).Return(ptr(testRoomID), nil)
	uow.liveRoomRepo.On("LockLiveRoom", mock.Anything, testGuildID, testRoomID).Return(ledRoom(testUserID), nil)
	gateway.On("ResolveChannel", mock.Anything, testRoomID).Return(&interfaces.ChannelSnapshot{
		ID:        testRoomID,
		GuildID:   testGuildID,
		Present:   true,
		MemberIDs: []int64{testUserID},
	}, nil)
	gateway.On("SetPermissionOverwrite", mock.Anything, testRoomID, mock.MatchedBy(func(ow entities.PermissionOverwrite) bool {
		return ow.TargetID == testGuildID && ow.State(entities.PermissionConnect) == entities.Denied
	})).Return(nil)
	uow.publisher.On("Publish", mock.Anything).Return(nil).Maybe()

	handler := newPanelHandler(uow, gateway)
	result, err := handler.Execute(context.Background(), interfaces.PanelRequest{
		GuildID: testGuildID,
		ActorID: testUserID,
		Action:  entities.ActionClose,
		Locale:  "en-US",
	})

	require.NoError(t, err)
	assert.Equal(t, "rooms.panel.closed", result.MessageKey)
	_, commits := uow.counts()
	assert.Equal(t, 1, commits)
	assert.Zero(t, handler.locks.Held())
	gateway.AssertExpectations(t)
}

func TestPanelHandler_ExecuteErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		lockResult  *entities.LiveRoom
		lockErr     error
		wantCode    entities.ErrorCode
		wantCommits int
	}{
		{
			name:        "user error is committed and returned",
			lockResult:  ledRoom(testOtherID),
			wantCode:    entities.CodeNotLeader,
			wantCommits: 1,
		},
		{
			name:        "store failure rolls back",
			lockErr:     errors.New("deadlock detected"),
			wantCode:    entities.CodeStoreFailure,
			wantCommits: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			uow := newFakeUnitOfWork()
			gateway := &testhelpers.MockPlatformGateway{}
			gateway.On("MemberVoiceChannel", mock.Anything, testGuildID, testUserID).Return(ptr(testRoomID), nil)
			uow.liveRoomRepo.On("LockLiveRoom", mock.Anything, testGuildID, testRoomID).Return(tt.lockResult, tt.lockErr)

			_, err := newPanelHandler(uow, gateway).Execute(context.Background(), interfaces.PanelRequest{
				GuildID: testGuildID,
				ActorID: testUserID,
				Action:  entities.ActionVision,
			})

			require.Error(t, err)
			assert.Equal(t, tt.wantCode, entities.CodeOf(err))
			_, commits := uow.counts()
			assert.Equal(t, tt.wantCommits, commits)
		})
	}
}

func TestPanelHandler_PrecheckNeverCommits(t *testing.T) {
	t.Parallel()

	uow := newFakeUnitOfWork()
	gateway := &testhelpers.MockPlatformGateway{}
	gateway.On("MemberVoiceChannel", mock.Anything, testGuildID, testUserID).Return(ptr(testRoomID), nil)
	uow.liveRoomRepo.On("FindLiveRoomByChannel", mock.Anything, testGuildID, testRoomID).Return(ledRoom(testUserID), nil)

	room, err := newPanelHandler(uow, gateway).Precheck(context.Background(), testGuildID, testUserID, entities.ActionEdit)

	require.NoError(t, err)
	assert.Equal(t, testRoomID, room.VoiceChannelID)
	begins, commits := uow.counts()
	assert.Equal(t, 1, begins)
	assert.Zero(t, commits)
}

func TestPanelHandler_NotInVoiceSkipsLock(t *testing.T) {
	t.Parallel()

	uow := newFakeUnitOfWork()
	gateway := &testhelpers.MockPlatformGateway{}
	gateway.On("MemberVoiceChannel", mock.Anything, testGuildID, testUserID).Return(nil, nil)

	_, err := newPanelHandler(uow, gateway).Execute(context.Background(), interfaces.PanelRequest{
		GuildID: testGuildID,
		ActorID: testUserID,
		Action:  entities.ActionInfo,
	})

	assert.ErrorIs(t, err, entities.ErrNotInRoom)
}
