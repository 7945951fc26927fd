package whatsapp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"testing"
	"wa-relay/domain"
	"wa-relay/mocks"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestSession(ctx context.Context, submitter Submitter) *Session {
	s := &Session{log: slog.Default(), sent: newSentLedger(8)}
	s.Attach(submitter)
	s.runCtx = ctx
	return s
}

func TestSession_ForwardSubmitsEvent(t *testing.T) {
	ctrl := gomock.NewController(t)
	submitter := mocks.NewMockSubmitter(ctrl)
	evt := domain.ChatEvent{ID: "1", Type: domain.TextType, Body: "hello"}

	submitter.EXPECT().Submit(gomock.Any(), evt).Return(nil).Times(1)

	newTestSession(context.Background(), submitter).forward(evt)
}

func TestSession_ForwardSkipsOwnReplies(t *testing.T) {
	ctrl := gomock.NewController(t)
	submitter := mocks.NewMockSubmitter(ctrl)
	s := newTestSession(context.Background(), submitter)

	// Given a reply the relay already sent
	s.sent.Remember("sent-by-relay")

	// When whatsmeow echoes it back, Then nothing is submitted
	submitter.EXPECT().Submit(gomock.Any(), gomock.Any()).Times(0)
	s.forward(domain.ChatEvent{ID: "sent-by-relay", Type: domain.TextType, Body: "gpt: answer"})
}

func TestSession_ForwardSurvivesSubmitError(t *testing.T) {
	ctrl := gomock.NewController(t)
	submitter := mocks.NewMockSubmitter(ctrl)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	submitter.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(context.Canceled).Times(2)

	s := newTestSession(ctx, submitter)
	s.forward(domain.ChatEvent{ID: "1"})
	s.forward(domain.ChatEvent{ID: "2"})
}

func TestSession_ForwardWithoutSubmitter(t *testing.T) {
	s := &Session{log: slog.Default(), sent: newSentLedger(8)}

	require.NotPanics(t, func() { s.forward(domain.ChatEvent{ID: "1"}) })
}

func TestSentLedger_EvictsOldest(t *testing.T) {
	req := require.New(t)
	ledger := newSentLedger(3)

	for i := range 4 {
		ledger.Remember(fmt.Sprintf("id-%d", i))
	}

	req.False(ledger.Contains("id-0"))
	req.True(ledger.Contains("id-1"))
	req.True(ledger.Contains("id-3"))
}

func TestLoggerAdapter(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	waLogger := newLogger(log, "client").Sub("Socket")
	waLogger.Warnf("frame %d dropped", 42)

	req.Contains(buf.String(), "level=WARN")
	req.Contains(buf.String(), `msg="frame 42 dropped"`)
	req.Contains(buf.String(), "module=client")
	req.Contains(buf.String(), "sub=Socket")
}
