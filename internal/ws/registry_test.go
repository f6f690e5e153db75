package ws

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"sockchat/internal/domain"
	"sockchat/internal/service"
)

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) FindOrCreate(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) ListOnline(ctx context.Context) ([]*domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

func (m *MockUserRepo) SetOnline(ctx context.Context, id int64, connectionID string) error {
	args := m.Called(ctx, id, connectionID)
	return args.Error(0)
}

func (m *MockUserRepo) SetOfflineByConnection(ctx context.Context, connectionID string) (*domain.User, error) {
	args := m.Called(ctx, connectionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func newTestRegistry(repo *MockUserRepo) *Registry {
	return NewRegistry(service.NewUserService(repo))
}

func TestBindCachesUser(t *testing.T) {
	repo := new(MockUserRepo)
	reg := newTestRegistry(repo)

	alice := &domain.User{ID: 1, Username: "alice"}
	repo.On("FindOrCreate", mock.Anything, "alice").Return(alice, nil)
	repo.On("SetOnline", mock.Anything, int64(1), "c1").Return(nil)

	u, err := reg.Bind(context.Background(), "c1", "alice")
	assert.NoError(t, err)
	assert.True(t, u.IsOnline)
	assert.Equal(t, "c1", u.ConnectionID)

	// Resolve is answered from memory; no further repo calls.
	got, ok := reg.Resolve("c1")
	assert.True(t, ok)
	assert.Equal(t, "alice", got.Username)
	repo.AssertExpectations(t)
}

func TestBindRejectsEmptyUsername(t *testing.T) {
	repo := new(MockUserRepo)
	reg := newTestRegistry(repo)

	_, err := reg.Bind(context.Background(), "c1", "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	repo.AssertNotCalled(t, "FindOrCreate", mock.Anything, mock.Anything)
}

func TestResolveUnknownConnection(t *testing.T) {
	reg := newTestRegistry(new(MockUserRepo))

	_, ok := reg.Resolve("nope")
	assert.False(t, ok)
}

func TestUnbindSupersededConnectionKeepsUserOnline(t *testing.T) {
	repo := new(MockUserRepo)
	reg := newTestRegistry(repo)

	alice := &domain.User{ID: 1, Username: "alice"}
	repo.On("FindOrCreate", mock.Anything, "alice").Return(alice, nil)
	repo.On("SetOnline", mock.Anything, int64(1), "c1").Return(nil).Once()
	repo.On("SetOnline", mock.Anything, int64(1), "c2").Return(nil).Once()
	// The store finds nobody on c1 once c2 took over the session.
	repo.On("SetOfflineByConnection", mock.Anything, "c1").Return(nil, nil).Once()

	_, err := reg.Bind(context.Background(), "c1", "alice")
	assert.NoError(t, err)
	_, err = reg.Bind(context.Background(), "c2", "alice")
	assert.NoError(t, err)

	// Unbinding the stale connection must not report alice as gone.
	u, err := reg.Unbind(context.Background(), "c1")
	assert.NoError(t, err)
	assert.Nil(t, u)

	got, ok := reg.Resolve("c2")
	assert.True(t, ok)
	assert.Equal(t, "alice", got.Username)
	repo.AssertExpectations(t)
}

func TestUnbindIsIdempotent(t *testing.T) {
	repo := new(MockUserRepo)
	reg := newTestRegistry(repo)

	alice := &domain.User{ID: 1, Username: "alice"}
	repo.On("FindOrCreate", mock.Anything, "alice").Return(alice, nil)
	repo.On("SetOnline", mock.Anything, int64(1), "c1").Return(nil)
	repo.On("SetOfflineByConnection", mock.Anything, "c1").Return(alice, nil).Once()

	_, err := reg.Bind(context.Background(), "c1", "alice")
	assert.NoError(t, err)

	u, err := reg.Unbind(context.Background(), "c1")
	assert.NoError(t, err)
	assert.NotNil(t, u)

	_, ok := reg.Resolve("c1")
	assert.False(t, ok)

	// Second unbind returns not-bound without touching the store.
	u, err = reg.Unbind(context.Background(), "c1")
	assert.NoError(t, err)
	assert.Nil(t, u)
	repo.AssertExpectations(t)
}
