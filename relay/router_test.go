package relay

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"
	"wa-relay/domain"
	"wa-relay/mocks"
	"wa-relay/moderation"
	"wa-relay/observability"

	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	owner  = "33600000001@s.whatsapp.net"
	friend = "33600000002@s.whatsapp.net"
)

type fixture struct {
	repository *mocks.MockIMessageRepository
	completer  *mocks.MockCompleter
	replier    *mocks.MockReplier
	monitoring *observability.MonitoringManager
	router     *Router
}

func newFixture(t *testing.T) fixture {
	ctrl := gomock.NewController(t)
	f := fixture{
		repository: mocks.NewMockIMessageRepository(ctrl),
		completer:  mocks.NewMockCompleter(ctrl),
		replier:    mocks.NewMockReplier(ctrl),
		monitoring: observability.NewMonitoringManager(),
	}
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	f.router = NewRouter(log, f.repository, f.completer, f.replier, f.monitoring, domain.DefaultTriggerPrefix)
	return f
}

func textEvent(body string) domain.ChatEvent {
	return domain.ChatEvent{
		ID:         "3EB0C431C26A1916E07F",
		Chat:       friend,
		Sender:     friend,
		Recipient:  owner,
		SenderName: "Bob",
		Body:       body,
		Type:       domain.TextType,
		Timestamp:  time.Unix(1_700_000_000, 0).UTC(),
	}
}

func TestRouter_NonTextEvent_IsIgnored(t *testing.T) {
	f := newFixture(t)
	evt := textEvent("gpt: hello")
	evt.Type = "media"

	// Then no store write and no completion happen
	f.repository.EXPECT().StoreMessage(gomock.Any(), gomock.Any()).Times(0)
	f.completer.EXPECT().Complete(gomock.Any(), gomock.Any()).Times(0)

	f.router.Handle(context.Background(), evt)

	require.Equal(t, uint64(1), f.monitoring.GetLatest().Ignored)
}

func TestRouter_PlainText_IsStoredWithoutCompletion(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	evt := textEvent("hello")

	var stored domain.StoredMessage
	f.repository.EXPECT().StoreMessage(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, m domain.StoredMessage) error {
			stored = m
			return nil
		}).Times(1)
	f.completer.EXPECT().Complete(gomock.Any(), gomock.Any()).Times(0)

	f.router.Handle(context.Background(), evt)

	req.Equal("hello", stored.Content)
	req.Equal(friend, stored.Sender)
	req.Equal("Bob", lo.FromPtr(stored.SenderName))
	req.Equal(evt.Timestamp, stored.Timestamp)
	req.Equal(uint64(1), f.monitoring.GetLatest().Stored)
}

func TestRouter_TriggerPrefix_RepliesWithFirstChoice(t *testing.T) {
	f := newFixture(t)
	evt := textEvent("gpt:   hello  ")

	gomock.InOrder(
		f.repository.EXPECT().StoreMessage(gomock.Any(), gomock.Any()).Return(nil),
		f.completer.EXPECT().Complete(gomock.Any(), "hello").Return("Hi! How can I help?", nil),
		f.replier.EXPECT().Reply(gomock.Any(), evt, "Hi! How can I help?").Return(nil),
	)

	f.router.Handle(context.Background(), evt)

	stats := f.monitoring.GetLatest()
	require.Equal(t, uint64(1), stats.Completions)
	require.Equal(t, uint64(1), stats.Replies)
}

func TestRouter_StoreFailure_DoesNotPreventCompletion(t *testing.T) {
	f := newFixture(t)
	evt := textEvent("gpt: hello")

	f.repository.EXPECT().StoreMessage(gomock.Any(), gomock.Any()).Return(fmt.Errorf("disk full"))
	f.completer.EXPECT().Complete(gomock.Any(), "hello").Return("answer", nil)
	f.replier.EXPECT().Reply(gomock.Any(), evt, "answer").Return(nil)

	f.router.Handle(context.Background(), evt)

	require.Equal(t, uint64(1), f.monitoring.GetLatest().StoreFailures)
}

func TestRouter_CompletionFailure_IsSwallowed(t *testing.T) {
	f := newFixture(t)

	// Given an API failing on the first event
	f.repository.EXPECT().StoreMessage(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	gomock.InOrder(
		f.completer.EXPECT().Complete(gomock.Any(), "first").Return("", fmt.Errorf("connection reset")),
		f.completer.EXPECT().Complete(gomock.Any(), "second").Return("ok", nil),
	)
	// Then no reply is sent for the failure, and the next event is answered
	f.replier.EXPECT().Reply(gomock.Any(), gomock.Any(), "ok").Return(nil).Times(1)

	f.router.Handle(context.Background(), textEvent("gpt: first"))
	f.router.Handle(context.Background(), textEvent("gpt: second"))

	stats := f.monitoring.GetLatest()
	require.Equal(t, uint64(1), stats.CompletionFailures)
	require.Equal(t, uint64(1), stats.Replies)
}

func TestRouter_OwnerMessageToContact_IsIgnored(t *testing.T) {
	f := newFixture(t)
	evt := textEvent("gpt: hello")
	evt.FromMe = true
	evt.Sender, evt.Recipient = owner, friend

	f.repository.EXPECT().StoreMessage(gomock.Any(), gomock.Any()).Times(0)
	f.completer.EXPECT().Complete(gomock.Any(), gomock.Any()).Times(0)

	f.router.Handle(context.Background(), evt)
}

func TestRouter_SelfChat_IsRouted(t *testing.T) {
	f := newFixture(t)
	evt := textEvent("gpt: note to self")
	evt.FromMe = true
	evt.Chat, evt.Sender, evt.Recipient = owner, owner, owner

	f.repository.EXPECT().StoreMessage(gomock.Any(), gomock.Any()).Return(nil)
	f.completer.EXPECT().Complete(gomock.Any(), "note to self").Return("noted", nil)
	f.replier.EXPECT().Reply(gomock.Any(), evt, "noted").Return(nil)

	f.router.Handle(context.Background(), evt)
}

func TestRouter_SinksReceiveStoredMessagesOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	f := newFixture(t)
	sink := mocks.NewMockMessageSink(ctrl)
	f.router.WithSinks(time.Second, sink)

	// Given a first message stored and a second one failing
	gomock.InOrder(
		f.repository.EXPECT().StoreMessage(gomock.Any(), gomock.Any()).Return(nil),
		f.repository.EXPECT().StoreMessage(gomock.Any(), gomock.Any()).Return(fmt.Errorf("locked")),
	)
	// Then only the first one reaches the sink, and its failure is harmless
	sink.EXPECT().Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, m domain.StoredMessage) error {
			_, hasDeadline := ctx.Deadline()
			require.True(t, hasDeadline)
			require.Equal(t, "kept", m.Content)
			return fmt.Errorf("index closed")
		}).Times(1)

	f.router.Handle(context.Background(), textEvent("kept"))
	f.router.Handle(context.Background(), textEvent("lost"))

	require.Equal(t, uint64(1), f.monitoring.GetLatest().SinkFailures)
}

func TestRouter_ModeratorMasksCompletion(t *testing.T) {
	f := newFixture(t)
	moderator, err := moderation.NewModerator([]string{"badger"}, '*', slog.Default())
	require.NoError(t, err)
	f.router.WithModerator(moderator)
	evt := textEvent("gpt: animal?")

	f.repository.EXPECT().StoreMessage(gomock.Any(), gomock.Any()).Return(nil)
	f.completer.EXPECT().Complete(gomock.Any(), "animal?").Return("a badger", nil)
	f.replier.EXPECT().Reply(gomock.Any(), evt, "a ******").Return(nil)

	f.router.Handle(context.Background(), evt)
}

func TestRouter_ReplyFailure_IsCounted(t *testing.T) {
	f := newFixture(t)
	evt := textEvent("gpt: hello")

	f.repository.EXPECT().StoreMessage(gomock.Any(), gomock.Any()).Return(nil)
	f.completer.EXPECT().Complete(gomock.Any(), "hello").Return("hi", nil)
	f.replier.EXPECT().Reply(gomock.Any(), evt, "hi").Return(fmt.Errorf("not connected"))

	f.router.Handle(context.Background(), evt)

	require.Equal(t, uint64(1), f.monitoring.GetLatest().ReplyFailures)
}
