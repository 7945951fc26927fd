package whatsapp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"wa-relay/contract"
	"wa-relay/domain"
	"wa-relay/errors"
	"wa-relay/observability"

	"github.com/gookit/color"
	_ "github.com/mattn/go-sqlite3"
	"github.com/mdp/qrterminal/v3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
)

//go:generate go run go.uber.org/mock/mockgen -source=session.go -destination=../../mocks/mock_submitter.go -package=mocks

// Submitter hands an inbound event over to the dispatcher.
type Submitter interface {
	Submit(ctx context.Context, evt domain.ChatEvent) error
}

var (
	_ contract.Worker  = (*Session)(nil)
	_ contract.Replier = (*Session)(nil)
)

// Session owns the WhatsApp multi-device connection.
// Pairing, reconnection and delivery are left to whatsmeow; the session only
// converts messages into events and sends replies.
type Session struct {
	log       *slog.Logger
	container *sqlstore.Container
	client    *whatsmeow.Client
	health    *observability.HealthReporter
	sent      *sentLedger
	qrOut     io.Writer

	mu        sync.RWMutex
	submitter Submitter
	runCtx    context.Context
}

// NewSession opens the device store at path and prepares a client for the
// first device found there. An empty store means the account still has to be
// paired, which Run does by printing a QR code to qrOut.
func NewSession(ctx context.Context, log *slog.Logger, path string, health *observability.HealthReporter, qrOut io.Writer) (*Session, error) {
	container, err := sqlstore.New(ctx, "sqlite3", "file:"+path+"?_foreign_keys=on", newLogger(log, "store"))
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		_ = container.Close()
		return nil, fmt.Errorf("failed to load device: %w", err)
	}

	s := &Session{
		log:       log,
		container: container,
		client:    whatsmeow.NewClient(device, newLogger(log, "client")),
		health:    health,
		sent:      newSentLedger(defaultLedgerCapacity),
		qrOut:     qrOut,
	}
	s.client.AddEventHandler(s.handle)
	return s, nil
}

// Attach sets the destination of inbound events. It must be called before Run.
func (s *Session) Attach(submitter Submitter) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitter = submitter
	return s
}

func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	s.runCtx = ctx
	s.mu.Unlock()

	if !s.client.IsConnected() {
		if s.client.Store.ID == nil {
			if err := s.pair(ctx); err != nil {
				return err
			}
		} else if err := s.client.Connect(); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
	}

	<-ctx.Done()
	s.log.Info("Disconnecting chat session")
	s.client.Disconnect()
	s.health.SetConnected(false)
	return ctx.Err()
}

// pair connects a fresh device and renders every QR code WhatsApp issues
// until the phone scans one.
func (s *Session) pair(ctx context.Context) error {
	qrChan, err := s.client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("failed to get QR channel: %w", err)
	}
	if err := s.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	for item := range qrChan {
		switch item.Event {
		case whatsmeow.QRChannelEventCode:
			_, _ = fmt.Fprintln(s.qrOut, color.Cyan.Sprint("Scan this QR code from WhatsApp > Linked devices"))
			qrterminal.GenerateHalfBlock(item.Code, qrterminal.L, s.qrOut)
		case whatsmeow.QRChannelSuccess.Event:
			s.log.Info("Device paired")
			return nil
		case whatsmeow.QRChannelEventError:
			s.client.Disconnect()
			return fmt.Errorf("%w: %w", errors.ErrSessionNotPaired, item.Error)
		default:
			s.client.Disconnect()
			return fmt.Errorf("%w: %s", errors.ErrSessionNotPaired, item.Event)
		}
	}
	// The channel closes without an event when ctx ends first.
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return errors.ErrSessionNotPaired
}

// Reply sends text into the conversation of the event, quoting it.
func (s *Session) Reply(ctx context.Context, to domain.ChatEvent, text string) error {
	chat, err := types.ParseJID(to.Chat)
	if err != nil || chat.IsEmpty() {
		return fmt.Errorf("%w: %q", errors.ErrInvalidRecipient, to.Chat)
	}

	id := s.client.GenerateMessageID()
	s.sent.Remember(id)
	if _, err := s.client.SendMessage(ctx, chat, buildReply(to, text), whatsmeow.SendRequestExtra{ID: id}); err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}
	return nil
}

// Close releases the device store. The client must be disconnected.
func (s *Session) Close() error {
	return s.container.Close()
}

func (s *Session) handle(rawEvt interface{}) {
	switch evt := rawEvt.(type) {
	case *events.Message:
		s.onMessage(evt)
	case *events.Connected:
		s.log.Info("Chat session connected")
		s.health.SetConnected(true)
	case *events.Disconnected:
		s.log.Warn("Chat session disconnected")
		s.health.SetConnected(false)
	case *events.LoggedOut:
		s.log.Error("Chat session logged out, pair the device again", "reason", evt.Reason.String())
		s.health.SetConnected(false)
	case *events.PairSuccess:
		s.log.Info("Pairing succeeded", "jid", evt.ID.String(), "platform", evt.Platform)
	}
}

func (s *Session) onMessage(evt *events.Message) {
	s.forward(toChatEvent(evt, s.self()))
}

// forward submits an event unless the relay sent it itself.
func (s *Session) forward(evt domain.ChatEvent) {
	if s.sent.Contains(evt.ID) {
		s.log.Debug("Skipping message sent by the relay", "id", evt.ID)
		return
	}

	s.mu.RLock()
	submitter, ctx := s.submitter, s.runCtx
	s.mu.RUnlock()
	if submitter == nil || ctx == nil {
		s.log.Warn("No submitter attached, dropping message", "id", evt.ID)
		return
	}

	if err := submitter.Submit(ctx, evt); err != nil {
		s.log.Warn("Message dropped", "id", evt.ID, "error", err)
	}
}

func (s *Session) self() identity {
	id := identity{LID: s.client.Store.LID}
	if s.client.Store.ID != nil {
		id.JID = *s.client.Store.ID
	}
	return id
}
