package relay

import (
	"context"
	"log/slog"
	"time"
	"wa-relay/contract"
	"wa-relay/domain"
	"wa-relay/llm"
	"wa-relay/moderation"
	"wa-relay/observability"
	"wa-relay/repositories"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Ensure *Router implements the contract.EventHandler interface at compile time.
var _ contract.EventHandler = (*Router)(nil)

const defaultSinkTimeout = 2 * time.Second

// Router classifies each inbound event, records accepted text messages and
// answers the ones carrying the trigger prefix with a completion.
//
// Every failure is logged and swallowed: a broken store never prevents the
// completion, and a failed completion never stops the next event.
// Router keeps no per-event state and is safe for concurrent use.
type Router struct {
	log         *slog.Logger
	repository  repositories.IMessageRepository
	completer   llm.Completer
	replier     contract.Replier
	monitoring  *observability.MonitoringManager
	prefix      string
	sinks       []contract.MessageSink
	sinkTimeout time.Duration
	moderator   *moderation.Moderator
	allowGroups bool
}

func NewRouter(
	log *slog.Logger,
	repository repositories.IMessageRepository,
	completer llm.Completer,
	replier contract.Replier,
	monitoring *observability.MonitoringManager,
	prefix string,
) *Router {
	return &Router{
		log:         log,
		repository:  repository,
		completer:   completer,
		replier:     replier,
		monitoring:  monitoring,
		prefix:      lo.Ternary(prefix == "", domain.DefaultTriggerPrefix, prefix),
		sinkTimeout: defaultSinkTimeout,
	}
}

// WithSinks registers best-effort consumers of stored messages.
func (r *Router) WithSinks(sinkTimeout time.Duration, sinks ...contract.MessageSink) *Router {
	r.sinks = append(r.sinks, sinks...)
	if sinkTimeout > 0 {
		r.sinkTimeout = sinkTimeout
	}
	return r
}

// WithModerator masks blocklisted words in completions before they are sent.
func (r *Router) WithModerator(moderator *moderation.Moderator) *Router {
	r.moderator = moderator
	return r
}

// AllowGroups makes group conversations eligible, one-to-one chats only otherwise.
func (r *Router) AllowGroups(allow bool) *Router {
	r.allowGroups = allow
	return r
}

func (r *Router) Handle(ctx context.Context, evt domain.ChatEvent) {
	r.monitoring.IncrReceived()
	if !evt.Accepted(r.allowGroups) {
		r.monitoring.IncrIgnored()
		r.log.Debug("Event ignored", "id", evt.ID, "type", evt.Type, "from_me", evt.FromMe, "group", evt.IsGroup)
		return
	}
	r.log.Info("Message received", "id", evt.ID, "from", evt.Sender, "to", evt.Recipient, "at", evt.Timestamp)

	r.record(ctx, evt)

	prompt, ok := domain.ParsePrompt(evt.Body, r.prefix)
	if !ok {
		return
	}
	r.answer(ctx, evt, prompt)
}

// record persists the message, then hands it to the sinks.
// Sinks only see messages that reached the store.
func (r *Router) record(ctx context.Context, evt domain.ChatEvent) {
	message := domain.StoredMessage{
		ID:         uuid.NewString(),
		Sender:     evt.Sender,
		SenderName: lo.EmptyableToPtr(evt.SenderName),
		Content:    evt.Body,
		Timestamp:  evt.Timestamp,
	}
	if err := r.repository.StoreMessage(ctx, message); err != nil {
		r.monitoring.IncrStoreFailures()
		r.log.Error("Failed to store message", "id", evt.ID, "error", err)
		return
	}
	r.monitoring.IncrStored()

	for _, sink := range r.sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, r.sinkTimeout)
		if err := sink.Consume(sinkCtx, message); err != nil {
			r.monitoring.IncrSinkFailures()
			r.log.Warn("Sink failed to consume message", "id", evt.ID, "error", err)
		}
		cancel()
	}
}

func (r *Router) answer(ctx context.Context, evt domain.ChatEvent, prompt string) {
	start := time.Now()
	text, err := r.completer.Complete(ctx, prompt)
	if err != nil {
		r.monitoring.IncrCompletionFailures()
		r.log.Error("Completion failed", append([]any{"id", evt.ID}, llm.DescribeError(err)...)...)
		return
	}
	r.monitoring.IncrCompletions()
	r.log.Info("Completion received", "id", evt.ID, "latency_ms", time.Since(start).Milliseconds())
	r.log.Debug("Completion text", "id", evt.ID, "text", text)

	if censored, words := r.moderator.Censor(text); len(words) > 0 {
		r.log.Warn("Completion moderated", "id", evt.ID, "hits", len(words))
		text = censored
	}

	if err = r.replier.Reply(ctx, evt, text); err != nil {
		r.monitoring.IncrReplyFailures()
		r.log.Error("Failed to send reply", "id", evt.ID, "chat", evt.Chat, "error", err)
		return
	}
	r.monitoring.IncrReplies()
}
