package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taskhive/taskhive-backend/internal/platform/logger"
	"github.com/taskhive/taskhive-backend/internal/types"
)

var (
	testLogOnce sync.Once
	testLog     *logger.Logger
	testLogErr  error
)

func testLogger(tb testing.TB) *logger.Logger {
	tb.Helper()
	testLogOnce.Do(func() {
		testLog, testLogErr = logger.New("test")
	})
	if testLogErr != nil {
		tb.Fatalf("init logger: %v", testLogErr)
	}
	return testLog
}

type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*types.Profile
	err      error
	reads    int
}

func newFakeProfiles(profiles ...*types.Profile) *fakeProfiles {
	m := map[uuid.UUID]*types.Profile{}
	for _, p := range profiles {
		m[p.UserID] = p
	}
	return &fakeProfiles{profiles: m}
}

func (f *fakeProfiles) GetByUserID(_ context.Context, _ *gorm.DB, userID uuid.UUID) (*types.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.err != nil {
		return nil, f.err
	}
	return f.profiles[userID], nil
}

func (f *fakeProfiles) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

func makeProfile(userID uuid.UUID, roles []types.Role, active types.Role, basicDone, done bool) *types.Profile {
	return &types.Profile{
		ID:                    uuid.New(),
		UserID:                userID,
		Roles:                 types.MarshalRoles(roles),
		ActiveRole:            active,
		BasicProfileCompleted: basicDone,
		ProfileCompleted:      done,
	}
}
