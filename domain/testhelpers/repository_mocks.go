package testhelpers

import (
	"context"
	"time"

	"chisato/domain/entities"
	"chisato/domain/events"

	"github.com/stretchr/testify/mock"
)

// MockRoomConfigRepository is a mock implementation of RoomConfigRepository
type MockRoomConfigRepository struct {
	mock.Mock
}

func (m *MockRoomConfigRepository) GetConfig(ctx context.Context, guildID int64) (*entities.GuildRoomConfig, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.GuildRoomConfig), args.Error(1)
}

func (m *MockRoomConfigRepository) PutConfig(ctx context.Context, cfg *entities.GuildRoomConfig) error {
	args := m.Called(ctx, cfg)
	return args.Error(0)
}

func (m *MockRoomConfigRepository) DeleteConfig(ctx context.Context, guildID int64) error {
	args := m.Called(ctx, guildID)
	return args.Error(0)
}

func (m *MockRoomConfigRepository) ListConfigs(ctx context.Context) ([]*entities.GuildRoomConfig, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.GuildRoomConfig), args.Error(1)
}

// MockRoomPrefsRepository is a mock implementation of RoomPrefsRepository
type MockRoomPrefsRepository struct {
	mock.Mock
}

func (m *MockRoomPrefsRepository) GetPrefs(ctx context.Context, guildID, userID int64) (*entities.UserRoomPrefs, error) {
	args := m.Called(ctx, guildID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.UserRoomPrefs), args.Error(1)
}

func (m *MockRoomPrefsRepository) UpsertPrefs(ctx context.Context, guildID, userID int64, patch entities.PrefsPatch) (*entities.UserRoomPrefs, error) {
	args := m.Called(ctx, guildID, userID, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.UserRoomPrefs), args.Error(1)
}

// MockLiveRoomRepository is a mock implementation of LiveRoomRepository
type MockLiveRoomRepository struct {
	mock.Mock
}

func (m *MockLiveRoomRepository) CreateLiveRoom(ctx context.Context, room *entities.LiveRoom) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

func (m *MockLiveRoomRepository) DeleteLiveRoom(ctx context.Context, guildID, voiceChannelID int64) (bool, error) {
	args := m.Called(ctx, guildID, voiceChannelID)
	return args.Bool(0), args.Error(1)
}

func (m *MockLiveRoomRepository) FindLiveRoomByLeader(ctx context.Context, guildID, userID int64) (*entities.LiveRoom, error) {
	args := m.Called(ctx, guildID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.LiveRoom), args.Error(1)
}

func (m *MockLiveRoomRepository) FindLiveRoomByChannel(ctx context.Context, guildID, voiceChannelID int64) (*entities.LiveRoom, error) {
	args := m.Called(ctx, guildID, voiceChannelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.LiveRoom), args.Error(1)
}

func (m *MockLiveRoomRepository) LockLiveRoom(ctx context.Context, guildID, voiceChannelID int64) (*entities.LiveRoom, error) {
	args := m.Called(ctx, guildID, voiceChannelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.LiveRoom), args.Error(1)
}

func (m *MockLiveRoomRepository) ListLiveRooms(ctx context.Context, guildID int64) ([]*entities.LiveRoom, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.LiveRoom), args.Error(1)
}

func (m *MockLiveRoomRepository) ListGuildsWithLiveRooms(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockLiveRoomRepository) UpdateLeader(ctx context.Context, guildID, voiceChannelID, newLeaderID int64) error {
	args := m.Called(ctx, guildID, voiceChannelID, newLeaderID)
	return args.Error(0)
}

func (m *MockLiveRoomRepository) ArmCooldown(ctx context.Context, guildID, voiceChannelID int64, now, deadline time.Time) (bool, error) {
	args := m.Called(ctx, guildID, voiceChannelID, now, deadline)
	return args.Bool(0), args.Error(1)
}

func (m *MockLiveRoomRepository) ExpireCooldowns(ctx context.Context, now time.Time) ([]entities.RoomKey, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.RoomKey), args.Error(1)
}

func (m *MockLiveRoomRepository) ClearCooldown(ctx context.Context, guildID, voiceChannelID int64) error {
	args := m.Called(ctx, guildID, voiceChannelID)
	return args.Error(0)
}

// MockPartnerRepository is a mock implementation of PartnerRepository
type MockPartnerRepository struct {
	mock.Mock
}

func (m *MockPartnerRepository) GetPartner(ctx context.Context, guildID, userID int64) (*int64, error) {
	args := m.Called(ctx, guildID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*int64), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}
