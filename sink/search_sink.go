package sink

import (
	"context"
	"log/slog"
	"wa-relay/contract"
	"wa-relay/domain"

	"github.com/abadojack/whatlanggo"
	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
)

// Ensure *SearchSink implements the contract.MessageSink interface at compile time.
var _ contract.MessageSink = (*SearchSink)(nil)

const (
	FieldContent = "content"
	FieldSender  = "sender"
	FieldName    = "sender_name"
	FieldLang    = "lang"
	FieldAt      = "at"
)

// SearchSink indexes every stored message into Bluge for full-text search.
// The detected language is indexed as a keyword so searches can filter on it.
type SearchSink struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewSearchSink(writer *bluge.Writer, log *slog.Logger) *SearchSink {
	return &SearchSink{writer: writer, log: log}
}

func (s *SearchSink) Consume(ctx context.Context, message domain.StoredMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id := message.ID
	if id == "" {
		id = uuid.NewString()
	}
	lang := whatlanggo.Detect(message.Content).Lang.Iso6391()

	doc := bluge.NewDocument(id).
		AddField(bluge.NewTextField(FieldContent, message.Content).StoreValue()).
		AddField(bluge.NewKeywordField(FieldSender, message.Sender).StoreValue()).
		AddField(bluge.NewKeywordField(FieldLang, lang).StoreValue()).
		AddField(bluge.NewDateTimeField(FieldAt, message.Timestamp).StoreValue())
	if message.SenderName != nil {
		doc.AddField(bluge.NewKeywordField(FieldName, *message.SenderName).StoreValue())
	}

	if err := s.writer.Update(doc.ID(), doc); err != nil {
		return err
	}
	s.log.Debug("Message indexed", "id", id, "lang", lang)
	return nil
}
