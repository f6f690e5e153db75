package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"sockchat/internal/domain"
	"sockchat/internal/service"
)

type MockMessageRepo struct {
	mock.Mock
}

func (m *MockMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepo) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockMessageRepo) ListByRoom(ctx context.Context, room string, limit, offset int) ([]*domain.Message, error) {
	args := m.Called(ctx, room, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

func (m *MockMessageRepo) ListPublic(ctx context.Context, limit, offset int) ([]*domain.Message, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

func (m *MockMessageRepo) AddReaction(ctx context.Context, messageID, userID int64, symbol string) (*domain.Message, error) {
	args := m.Called(ctx, messageID, userID, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockMessageRepo) MarkRead(ctx context.Context, messageID, userID int64) (*domain.Message, error) {
	args := m.Called(ctx, messageID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

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

func newService(msgs *MockMessageRepo, users *MockUserRepo) *service.MessageService {
	return service.NewMessageService(msgs, users, "general", 50)
}

func TestCreateMessage(t *testing.T) {
	sender := &domain.User{ID: 1, Username: "alice"}

	t.Run("DefaultsRoomAndType", func(t *testing.T) {
		msgs := new(MockMessageRepo)
		users := new(MockUserRepo)
		svc := newService(msgs, users)

		msgs.On("Create", mock.Anything, mock.MatchedBy(func(m *domain.Message) bool {
			return m.Room != nil && *m.Room == "general" &&
				m.Type == domain.MessageTypeText &&
				m.SenderName == "alice" &&
				m.RecipientID == nil
		})).Return(nil)

		msg, err := svc.CreateMessage(context.Background(), service.MessageCreateInput{
			Content: "hi",
		}, sender)
		assert.NoError(t, err)
		assert.NotNil(t, msg)
		msgs.AssertExpectations(t)
	})

	t.Run("EmptyContentRejected", func(t *testing.T) {
		msgs := new(MockMessageRepo)
		svc := newService(msgs, new(MockUserRepo))

		_, err := svc.CreateMessage(context.Background(), service.MessageCreateInput{}, sender)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		msgs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("UnknownTypeRejected", func(t *testing.T) {
		svc := newService(new(MockMessageRepo), new(MockUserRepo))

		_, err := svc.CreateMessage(context.Background(), service.MessageCreateInput{
			Content: "hi",
			Type:    "sticker",
		}, sender)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("DirectMessageValidatesRecipient", func(t *testing.T) {
		msgs := new(MockMessageRepo)
		users := new(MockUserRepo)
		svc := newService(msgs, users)
		recipientID := int64(2)

		users.On("GetByID", mock.Anything, recipientID).Return(nil, domain.ErrNotFound)

		_, err := svc.CreateMessage(context.Background(), service.MessageCreateInput{
			Content:     "hey",
			RecipientID: &recipientID,
		}, sender)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		msgs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("DirectMessageHasNoRoom", func(t *testing.T) {
		msgs := new(MockMessageRepo)
		users := new(MockUserRepo)
		svc := newService(msgs, users)
		recipientID := int64(2)

		users.On("GetByID", mock.Anything, recipientID).Return(&domain.User{ID: 2, Username: "bob"}, nil)
		msgs.On("Create", mock.Anything, mock.MatchedBy(func(m *domain.Message) bool {
			return m.Room == nil && m.RecipientID != nil && *m.RecipientID == 2
		})).Return(nil)

		_, err := svc.CreateMessage(context.Background(), service.MessageCreateInput{
			Content:     "hey",
			RecipientID: &recipientID,
		}, sender)
		assert.NoError(t, err)
		msgs.AssertExpectations(t)
	})
}

func TestRoomHistoryChronologicalOrder(t *testing.T) {
	msgs := new(MockMessageRepo)
	svc := newService(msgs, new(MockUserRepo))

	room := "general"
	now := time.Now()
	newest := &domain.Message{ID: 3, Content: "third", Room: &room, CreatedAt: now}
	middle := &domain.Message{ID: 2, Content: "second", Room: &room, CreatedAt: now.Add(-time.Minute)}
	oldest := &domain.Message{ID: 1, Content: "first", Room: &room, CreatedAt: now.Add(-2 * time.Minute)}

	// Repo returns newest-first; callers get chronological order.
	msgs.On("ListByRoom", mock.Anything, room, 50, 0).
		Return([]*domain.Message{newest, middle, oldest}, nil)

	got, err := svc.RoomHistory(context.Background(), room, 0, 0)
	assert.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, []string{got[0].Content, got[1].Content, got[2].Content})
}

func TestPublicFeedClampsLimit(t *testing.T) {
	msgs := new(MockMessageRepo)
	svc := newService(msgs, new(MockUserRepo))

	msgs.On("ListPublic", mock.Anything, 50, 0).Return([]*domain.Message{}, nil)

	_, err := svc.PublicFeed(context.Background(), 500, 0)
	assert.NoError(t, err)
	msgs.AssertExpectations(t)
}

func TestAddReactionRequiresSymbol(t *testing.T) {
	svc := newService(new(MockMessageRepo), new(MockUserRepo))

	_, err := svc.AddReaction(context.Background(), 1, 1, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestOfflineMembers(t *testing.T) {
	users := new(MockUserRepo)
	svc := newService(new(MockMessageRepo), users)

	users.On("GetByID", mock.Anything, int64(1)).Return(&domain.User{ID: 1, Username: "alice", IsOnline: true}, nil)
	users.On("GetByID", mock.Anything, int64(2)).Return(&domain.User{ID: 2, Username: "bob", IsOnline: false}, nil)

	offline, err := svc.OfflineMembers(context.Background(), []int64{1, 2})
	assert.NoError(t, err)
	assert.Len(t, offline, 1)
	assert.Equal(t, "bob", offline[0].Username)
}
