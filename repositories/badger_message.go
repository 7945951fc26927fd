package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"wa-relay/domain"
	"wa-relay/internal"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

const messagePrefix = "msg:"

// BadgerMessageRepository is the key/value alternative to the SQLite table.
type BadgerMessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewBadgerMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) *BadgerMessageRepository {
	return &BadgerMessageRepository{db: db, log: log, limitMessages: limitMessages}
}

type diskMessage struct {
	ID         string  `cbor:"1,keyasint"`
	Sender     string  `cbor:"2,keyasint"`
	SenderName *string `cbor:"3,keyasint,omitempty"`
	Content    string  `cbor:"4,keyasint"`
	At         int64   `cbor:"5,keyasint"`
}

// StoreMessage persists a message in BadgerDB.
// The key is formatted as "msg:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Keep two messages of the same second apart; nothing is ever deduplicated.
func (m *BadgerMessageRepository) StoreMessage(_ context.Context, message domain.StoredMessage) error {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	// Keys before the epoch would carry a minus sign and escape the scan order.
	if message.Timestamp.IsZero() || message.Timestamp.UnixNano() < 0 {
		message.Timestamp = time.Now().UTC()
	}
	key := fmt.Sprintf("%s%019d:%s", messagePrefix, message.Timestamp.UnixNano(), message.ID)
	bytes, err := cbor.Marshal(fromStoredMessage(message))
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

// GetMessages walks the keys backwards so the newest message comes first.
// The cursor is the key suffix of the last message of the previous page.
func (m *BadgerMessageRepository) GetMessages(_ context.Context, cursor *string) ([]domain.StoredMessage, *string, error) {
	var messages []domain.StoredMessage
	var lastKey string
	prefix := []byte(messagePrefix)

	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Reverse iteration lands on the greatest key lower or equal to the seek key.
		// ';' sorts right after ':' so the default seek key is above every message.
		seekKey := append([]byte(messagePrefix), "9999999999999999999;"...)
		if cursor != nil {
			seekKey = append([]byte(messagePrefix), *cursor...)
		}
		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) && string(it.Item().Key()[len(prefix):]) == *cursor {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(messages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", *m.limitMessages))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefix):])
			err := item.Value(func(value []byte) error {
				var dm diskMessage
				if err := cbor.Unmarshal(value, &dm); err != nil {
					return err
				}
				messages = append(messages, toStoredMessage(dm))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if len(messages) == 0 {
		return nil, nil, nil
	}
	return messages, &lastKey, nil
}

// Close is a no-op: the caller owns the badger handle.
func (m *BadgerMessageRepository) Close() error {
	return nil
}

func fromStoredMessage(message domain.StoredMessage) diskMessage {
	return diskMessage{
		ID:         message.ID,
		Sender:     message.Sender,
		SenderName: message.SenderName,
		Content:    message.Content,
		At:         message.Timestamp.UnixNano(),
	}
}

func toStoredMessage(dm diskMessage) domain.StoredMessage {
	return domain.StoredMessage{
		ID:         dm.ID,
		Sender:     dm.Sender,
		SenderName: dm.SenderName,
		Content:    dm.Content,
		Timestamp:  time.Unix(0, dm.At).UTC(),
	}
}

// InspectMessage decodes a message entry for the debug inspector.
func InspectMessage(key string, val []byte) internal.InspectRow {
	row := internal.DefaultMapper(key, val)
	var dm diskMessage
	if err := cbor.Unmarshal(val, &dm); err != nil {
		row.Detail = "Error: unmarshal failed"
		return row
	}
	row.Sender = dm.Sender
	if dm.SenderName != nil {
		row.Sender = fmt.Sprintf("%s (%s)", *dm.SenderName, dm.Sender)
	}
	row.Detail = dm.Content
	return row
}
