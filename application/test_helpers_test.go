package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"chisato/domain/entities"
	"chisato/domain/interfaces"
	"chisato/domain/services"
	"chisato/domain/testhelpers"
)

const (
	testGuildID  = int64(555555555)
	testHubID    = int64(701)
	testRoomID   = int64(800)
	testMintedID = int64(801)
	testUserID   = int64(100)
	testOtherID  = int64(200)
)

var testNow = time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)

// fakeUnitOfWork hands out shared repository mocks and counts transaction calls
type fakeUnitOfWork struct {
	configRepo   *testhelpers.MockRoomConfigRepository
	prefsRepo    *testhelpers.MockRoomPrefsRepository
	liveRoomRepo *testhelpers.MockLiveRoomRepository
	partnerRepo  *testhelpers.MockPartnerRepository
	publisher    *testhelpers.MockEventPublisher

	mu        sync.Mutex
	beginErr  error
	commitErr error
	begins    int
	commits   int
	beginErrs []error
}

func newFakeUnitOfWork() *fakeUnitOfWork {
	return &fakeUnitOfWork{
		configRepo:   &testhelpers.MockRoomConfigRepository{},
		prefsRepo:    &testhelpers.MockRoomPrefsRepository{},
		liveRoomRepo: &testhelpers.MockLiveRoomRepository{},
		partnerRepo:  &testhelpers.MockPartnerRepository{},
		publisher:    &testhelpers.MockEventPublisher{},
	}
}

func (u *fakeUnitOfWork) Begin(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.beginErrs = append(u.beginErrs, ctx.Err())
	if u.beginErr != nil {
		return u.beginErr
	}
	u.begins++
	return nil
}

func (u *fakeUnitOfWork) Commit() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.commitErr != nil {
		return u.commitErr
	}
	u.commits++
	return nil
}

// Rollback after Commit is a no-op, like the real unit of work
func (u *fakeUnitOfWork) Rollback() error {
	return nil
}

func (u *fakeUnitOfWork) RoomConfigRepository() interfaces.RoomConfigRepository {
	return u.configRepo
}

func (u *fakeUnitOfWork) RoomPrefsRepository() interfaces.RoomPrefsRepository {
	return u.prefsRepo
}

func (u *fakeUnitOfWork) LiveRoomRepository() interfaces.LiveRoomRepository {
	return u.liveRoomRepo
}

func (u *fakeUnitOfWork) PartnerRepository() interfaces.PartnerRepository {
	return u.partnerRepo
}

func (u *fakeUnitOfWork) EventBus() interfaces.EventPublisher {
	return u.publisher
}

func (u *fakeUnitOfWork) counts() (begins, commits int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.begins, u.commits
}

// beginContextErrs reports ctx.Err() as seen by each Begin call
func (u *fakeUnitOfWork) beginContextErrs() []error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]error(nil), u.beginErrs...)
}

func (u *fakeUnitOfWork) assertExpectations(t *testing.T) {
	u.configRepo.AssertExpectations(t)
	u.prefsRepo.AssertExpectations(t)
	u.liveRoomRepo.AssertExpectations(t)
	u.partnerRepo.AssertExpectations(t)
	u.publisher.AssertExpectations(t)
}

type fakeUnitOfWorkFactory struct {
	uow *fakeUnitOfWork
}

func (f *fakeUnitOfWorkFactory) CreateForGuild(guildID int64) UnitOfWork {
	return f.uow
}

func testRoomSettings() services.RoomSettings {
	return services.RoomSettings{
		DefaultUserLimit: 2,
		Cooldown:         7 * time.Minute,
		Random:           testhelpers.FixedRandom(0),
		Now:              func() time.Time { return testNow },
	}
}

func testRoomConfig() *entities.GuildRoomConfig {
	return &entities.GuildRoomConfig{
		GuildID:        testGuildID,
		CategoryID:     700,
		HubVoiceID:     testHubID,
		PanelChannelID: 703,
		PanelMessageID: 704,
	}
}

func ptr[T any](v T) *T {
	return &v
}
