package notify

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/interview"
	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeNotifications struct {
	mu    sync.Mutex
	saved []*model.Notification
	err   error
}

func (f *fakeNotifications) Create(_ context.Context, n *model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	n.ID = int64(len(f.saved) + 1)
	f.saved = append(f.saved, n)
	return nil
}

type fakeUsers map[int64]*model.User

func (f fakeUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	return f[id], nil
}

type fakePusher struct {
	messages map[int64][][]byte
}

func (p *fakePusher) SendToUser(userID int64, message []byte) int {
	if p.messages == nil {
		p.messages = make(map[int64][][]byte)
	}
	p.messages[userID] = append(p.messages[userID], message)
	return 1
}

type mockSender struct {
	mock.Mock
}

func (m *mockSender) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	args := m.Called(ctx, params)
	msg, _ := args.Get(0).(*models.Message)
	return msg, args.Error(1)
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, to, subject, body string) error {
	return m.Called(ctx, to, subject, body).Error(0)
}

func chatID(id int64) *int64 { return &id }

func TestDispatcher_Dispatch(t *testing.T) {
	users := fakeUsers{
		1: {ID: 1, Email: "teacher@example.com", TelegramChatID: chatID(100)},
		2: {ID: 2, Email: "candidate@example.com"},
	}

	effects := []interview.Effect{
		{Kind: interview.EffectNotify, UserID: 1, Type: model.NotificationReservationCreated, Message: "new", Link: "/reservations/5"},
		{Kind: interview.EffectNotify, UserID: 2, Type: model.NotificationReservationCreated, Message: "wait", Link: "/reservations/5"},
		{Kind: interview.EffectEmail, UserID: 1, Type: model.NotificationReservationCreated, Subject: "subj", Message: "body", Link: "/reservations/5"},
	}

	t.Run("delivers to every channel", func(t *testing.T) {
		store := &fakeNotifications{}
		pusher := &fakePusher{}
		sender := &mockSender{}
		mailer := &mockMailer{}

		sender.On("SendMessage", mock.Anything, mock.MatchedBy(func(p *bot.SendMessageParams) bool {
			return p.ChatID == int64(100) && p.Text == "new\n\n🔗 https://app.example.com/reservations/5"
		})).Return(&models.Message{}, nil).Once()
		mailer.On("Send", mock.Anything, "teacher@example.com", "subj", "body\n\nhttps://app.example.com/reservations/5").Return(nil).Once()

		d := NewDispatcher(store, users, pusher, sender, mailer, "https://app.example.com", zap.NewNop())
		d.Dispatch(context.Background(), effects)
		d.Wait()

		require.Len(t, store.saved, 2)
		assert.Equal(t, int64(1), store.saved[0].UserID)
		assert.Equal(t, "wait", store.saved[1].Message)

		require.Len(t, pusher.messages[2], 1)
		var pushed model.Notification
		require.NoError(t, json.Unmarshal(pusher.messages[2][0], &pushed))
		assert.Equal(t, model.NotificationReservationCreated, pushed.Type)

		sender.AssertExpectations(t)
		mailer.AssertExpectations(t)
	})

	t.Run("failures are swallowed", func(t *testing.T) {
		store := &fakeNotifications{err: assert.AnError}
		pusher := &fakePusher{}
		sender := &mockSender{}
		mailer := &mockMailer{}

		sender.On("SendMessage", mock.Anything, mock.Anything).Return(nil, assert.AnError)
		mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)

		d := NewDispatcher(store, users, pusher, sender, mailer, "", zap.NewNop())
		assert.NotPanics(t, func() {
			d.Dispatch(context.Background(), effects)
			d.Wait()
		})

		// Push всё равно уходит, даже если запись не сохранилась
		assert.Len(t, pusher.messages[1], 1)
		mailer.AssertNumberOfCalls(t, "Send", 1)
	})

	t.Run("slow channel does not block the caller", func(t *testing.T) {
		block := make(chan time.Time)
		mailer := &mockMailer{}
		mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).WaitUntil(block).Return(nil)

		d := NewDispatcher(&fakeNotifications{}, users, &fakePusher{}, nil, mailer, "", zap.NewNop())

		returned := make(chan struct{})
		go func() {
			d.Dispatch(context.Background(), effects[2:])
			close(returned)
		}()

		select {
		case <-returned:
		case <-time.After(time.Second):
			t.Fatal("Dispatch waited for email delivery")
		}

		close(block)
		d.Wait()
		mailer.AssertNumberOfCalls(t, "Send", 1)
	})

	t.Run("cancelled request context still delivers", func(t *testing.T) {
		store := &fakeNotifications{}
		mailer := &mockMailer{}
		mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		d := NewDispatcher(store, users, &fakePusher{}, nil, mailer, "", zap.NewNop())
		d.Dispatch(ctx, effects)
		d.Wait()

		assert.Len(t, store.saved, 2)
		mailer.AssertNumberOfCalls(t, "Send", 1)
	})
}

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("noreply@example.com", "user@example.com", "Собеседование", "строка 1\nстрока 2", mustTime(t)))

	assert.Contains(t, msg, "From: noreply@example.com\r\n")
	assert.Contains(t, msg, "To: user@example.com\r\n")
	assert.Contains(t, msg, "Subject: =?utf-8?q?")
	assert.Contains(t, msg, "Content-Type: text/plain; charset=\"utf-8\"\r\n")
	assert.Contains(t, msg, "\r\n\r\nстрока 1\r\nстрока 2\r\n")
}
