package application

import (
	"context"
	"testing"

	"chisato/domain/entities"
	"chisato/domain/events"
	"chisato/domain/interfaces"
	"chisato/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAdminHandler_SetupCommits(t *testing.T) {
	t.Parallel()

	uow := newFakeUnitOfWork()
	gateway := &testhelpers.MockPlatformGateway{}
	uow.configRepo.On("GetConfig", mock.Anything, testGuildID).Return(nil, nil)
	gateway.On("CreateCategory", mock.Anything, testGuildID, "Rooms").Return(int64(700), nil)
	gateway.On("CreateVoiceChannel", mock.Anything, mock.Anything).Return(testHubID, nil)
	gateway.On("CreateTextChannel", mock.Anything, testGuildID, int64(700), "room-panel").Return(int64(703), nil)
	gateway.On("SendPanelMessage", mock.Anything, int64(703), "en-US").Return(int64(704), nil)
	uow.configRepo.On("PutConfig", mock.Anything, testRoomConfig()).Return(nil)
	uow.publisher.On("Publish", events.RoomConfigChangedEvent{GuildID: testGuildID, Enabled: true}).Return(nil)

	handler := NewAdminHandler(&fakeUnitOfWorkFactory{uow: uow}, gateway)
	cfg, err := handler.Setup(context.Background(), interfaces.SetupRequest{
		GuildID:      testGuildID,
		Locale:       "en-US",
		CategoryName: "Rooms",
		HubName:      "Create room",
		PanelName:    "room-panel",
	})

	require.NoError(t, err)
	assert.Equal(t, testRoomConfig(), cfg)
	_, commits := uow.counts()
	assert.Equal(t, 1, commits)
	uow.assertExpectations(t)
	gateway.AssertExpectations(t)
}

func TestAdminHandler_FailureIsNotCommitted(t *testing.T) {
	t.Parallel()

	uow := newFakeUnitOfWork()
	uow.configRepo.On("GetConfig", mock.Anything, testGuildID).Return(nil, nil)

	handler := NewAdminHandler(&fakeUnitOfWorkFactory{uow: uow}, &testhelpers.MockPlatformGateway{})
	err := handler.Disable(context.Background(), testGuildID)

	assert.ErrorIs(t, err, entities.ErrNotConfigured)
	_, commits := uow.counts()
	assert.Zero(t, commits)
}

func TestAdminHandler_Reads(t *testing.T) {
	t.Parallel()

	uow := newFakeUnitOfWork()
	rooms := []*entities.LiveRoom{ledRoom(testUserID)}
	uow.configRepo.On("GetConfig", mock.Anything, testGuildID).Return(testRoomConfig(), nil)
	uow.configRepo.On("ListConfigs", mock.Anything).Return([]*entities.GuildRoomConfig{testRoomConfig()}, nil)
	uow.liveRoomRepo.On("ListLiveRooms", mock.Anything, testGuildID).Return(rooms, nil)

	handler := NewAdminHandler(&fakeUnitOfWorkFactory{uow: uow}, &testhelpers.MockPlatformGateway{})

	cfg, err := handler.Config(context.Background(), testGuildID)
	require.NoError(t, err)
	assert.Equal(t, testHubID, cfg.HubVoiceID)

	configs, err := handler.Configs(context.Background())
	require.NoError(t, err)
	assert.Len(t, configs, 1)

	got, err := handler.LiveRooms(context.Background(), testGuildID)
	require.NoError(t, err)
	assert.Equal(t, rooms, got)

	_, commits := uow.counts()
	assert.Zero(t, commits)
}
