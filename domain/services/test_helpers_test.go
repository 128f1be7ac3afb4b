package services

import (
	"testing"
	"time"

	"chisato/domain/entities"
	"chisato/domain/events"
	"chisato/domain/interfaces"
	"chisato/domain/testhelpers"

	"github.com/stretchr/testify/mock"
)

// Test constants for consistent test data
const (
	TestGuildID    = int64(555555555)
	TestCategoryID = int64(700)
	TestHubID      = int64(701)
	TestLoveHubID  = int64(702)
	TestPanelChID  = int64(703)
	TestPanelMsgID = int64(704)
	TestRoomID     = int64(800)
	TestNewRoomID  = int64(801)
	TestUser1ID    = int64(100)
	TestUser2ID    = int64(200)
	TestUser3ID    = int64(300)
)

var testNow = time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)

// TestMocks aggregates all port mocks for testing
type TestMocks struct {
	ConfigRepo     *testhelpers.MockRoomConfigRepository
	PrefsRepo      *testhelpers.MockRoomPrefsRepository
	LiveRoomRepo   *testhelpers.MockLiveRoomRepository
	PartnerRepo    *testhelpers.MockPartnerRepository
	Gateway        *testhelpers.MockPlatformGateway
	EventPublisher *testhelpers.MockEventPublisher
}

// NewTestMocks creates a new set of mocks
func NewTestMocks() *TestMocks {
	return &TestMocks{
		ConfigRepo:     &testhelpers.MockRoomConfigRepository{},
		PrefsRepo:      &testhelpers.MockRoomPrefsRepository{},
		LiveRoomRepo:   &testhelpers.MockLiveRoomRepository{},
		PartnerRepo:    &testhelpers.MockPartnerRepository{},
		Gateway:        &testhelpers.MockPlatformGateway{},
		EventPublisher: &testhelpers.MockEventPublisher{},
	}
}

// AssertAllExpectations verifies all mock expectations were met
func (m *TestMocks) AssertAllExpectations(t *testing.T) {
	m.ConfigRepo.AssertExpectations(t)
	m.PrefsRepo.AssertExpectations(t)
	m.LiveRoomRepo.AssertExpectations(t)
	m.PartnerRepo.AssertExpectations(t)
	m.Gateway.AssertExpectations(t)
	m.EventPublisher.AssertExpectations(t)
}

// ExpectEventPublish sets up event publisher mock expectations
func (m *TestMocks) ExpectEventPublish(eventType events.EventType) {
	m.EventPublisher.On("Publish", mock.MatchedBy(func(e events.Event) bool {
		return e.Type() == eventType
	})).Return(nil).Once()
}

func testSettings(random int) RoomSettings {
	return RoomSettings{
		DefaultUserLimit: 2,
		Cooldown:         7 * time.Minute,
		Random:           testhelpers.FixedRandom(random),
		Now:              func() time.Time { return testNow },
	}
}

func testConfig(withLoveHub bool) *entities.GuildRoomConfig {
	cfg := &entities.GuildRoomConfig{
		GuildID:        TestGuildID,
		CategoryID:     TestCategoryID,
		HubVoiceID:     TestHubID,
		PanelChannelID: TestPanelChID,
		PanelMessageID: TestPanelMsgID,
	}
	if withLoveHub {
		hub := TestLoveHubID
		cfg.LoveHubVoiceID = &hub
	}
	return cfg
}

func testRoom(leader int64) *entities.LiveRoom {
	return &entities.LiveRoom{
		GuildID:        TestGuildID,
		VoiceChannelID: TestRoomID,
		LeaderUserID:   leader,
	}
}

func snapshot(channelID int64, members []int64, overwrites ...entities.PermissionOverwrite) *interfaces.ChannelSnapshot {
	return &interfaces.ChannelSnapshot{
		ID:         channelID,
		GuildID:    TestGuildID,
		Present:    true,
		Name:       "🎧 room",
		UserLimit:  2,
		MemberIDs:  members,
		Overwrites: overwrites,
	}
}

func absent(channelID int64) *interfaces.ChannelSnapshot {
	return &interfaces.ChannelSnapshot{ID: channelID, Present: false}
}

func leaderOverwrite(userID int64) entities.PermissionOverwrite {
	return entities.MemberOverwrite(userID).With(entities.LeaderPermissions, entities.Allowed)
}

func ptr[T any](v T) *T { return &v }
