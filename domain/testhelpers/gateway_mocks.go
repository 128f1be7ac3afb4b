package testhelpers

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"chisato/domain/entities"
	"chisato/domain/interfaces"

	"github.com/stretchr/testify/mock"
)

// MockPlatformGateway is a mock implementation of PlatformGateway
type MockPlatformGateway struct {
	mock.Mock
}

func (m *MockPlatformGateway) CreateVoiceChannel(ctx context.Context, spec interfaces.VoiceChannelSpec) (int64, error) {
	args := m.Called(ctx, spec)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPlatformGateway) CreateCategory(ctx context.Context, guildID int64, name string) (int64, error) {
	args := m.Called(ctx, guildID, name)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPlatformGateway) CreateTextChannel(ctx context.Context, guildID, categoryID int64, name string) (int64, error) {
	args := m.Called(ctx, guildID, categoryID, name)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPlatformGateway) DeleteChannel(ctx context.Context, channelID int64) error {
	args := m.Called(ctx, channelID)
	return args.Error(0)
}

func (m *MockPlatformGateway) EditChannel(ctx context.Context, channelID int64, patch interfaces.ChannelPatch) error {
	args := m.Called(ctx, channelID, patch)
	return args.Error(0)
}

func (m *MockPlatformGateway) MoveMember(ctx context.Context, guildID, userID int64, channelID *int64) error {
	args := m.Called(ctx, guildID, userID, channelID)
	return args.Error(0)
}

func (m *MockPlatformGateway) SetPermissionOverwrite(ctx context.Context, channelID int64, overwrite entities.PermissionOverwrite) error {
	args := m.Called(ctx, channelID, overwrite)
	return args.Error(0)
}

func (m *MockPlatformGateway) ClearPermissionOverwrite(ctx context.Context, channelID, targetID int64) error {
	args := m.Called(ctx, channelID, targetID)
	return args.Error(0)
}

func (m *MockPlatformGateway) ResolveChannel(ctx context.Context, channelID int64) (*interfaces.ChannelSnapshot, error) {
	args := m.Called(ctx, channelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.ChannelSnapshot), args.Error(1)
}

func (m *MockPlatformGateway) SendPanelMessage(ctx context.Context, channelID int64, locale string) (int64, error) {
	args := m.Called(ctx, channelID, locale)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPlatformGateway) MessageExists(ctx context.Context, channelID, messageID int64) (bool, error) {
	args := m.Called(ctx, channelID, messageID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPlatformGateway) DeleteMessage(ctx context.Context, channelID, messageID int64) error {
	args := m.Called(ctx, channelID, messageID)
	return args.Error(0)
}

func (m *MockPlatformGateway) SendChannelMessage(ctx context.Context, channelID int64, content string) error {
	args := m.Called(ctx, channelID, content)
	return args.Error(0)
}

func (m *MockPlatformGateway) CreateActivityInvite(ctx context.Context, channelID, applicationID int64) (string, error) {
	args := m.Called(ctx, channelID, applicationID)
	return args.String(0), args.Error(1)
}

func (m *MockPlatformGateway) MemberDisplayName(ctx context.Context, guildID, userID int64) (string, error) {
	args := m.Called(ctx, guildID, userID)
	return args.String(0), args.Error(1)
}

func (m *MockPlatformGateway) MemberVoiceChannel(ctx context.Context, guildID, userID int64) (*int64, error) {
	args := m.Called(ctx, guildID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*int64), args.Error(1)
}

func (m *MockPlatformGateway) GuildLocale(ctx context.Context, guildID int64) string {
	args := m.Called(ctx, guildID)
	return args.String(0)
}

// GatewayErr builds a classified gateway error
func GatewayErr(kind interfaces.ErrorKind) error {
	return &interfaces.GatewayError{Kind: kind, Op: "test", Err: fmt.Errorf("simulated %s", kind)}
}

// EchoLocalizer renders "key" followed by sorted vars, which keeps assertions readable
type EchoLocalizer struct{}

func (EchoLocalizer) Render(key, locale string, vars map[string]string) string {
	if len(vars) == 0 {
		return key
	}
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+vars[name])
	}
	return key + " " + strings.Join(parts, " ")
}

// FixedRandom always returns the same index, clamped to n
type FixedRandom int

func (r FixedRandom) Intn(n int) int {
	if int(r) >= n {
		return n - 1
	}
	return int(r)
}
