//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
	"wa-relay/domain"
	"wa-relay/errors"

	_ "github.com/mattn/go-sqlite3"
	"github.com/samber/lo"
)

type IMessageRepository interface {
	StoreMessage(ctx context.Context, message domain.StoredMessage) error
	GetMessages(ctx context.Context, cursor *string) ([]domain.StoredMessage, *string, error)
	Close() error
}

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	sender TEXT,
	sendername TEXT,
	content TEXT,
	timestamp TEXT
)`

// MessageRepository appends messages to the SQLite "messages" table.
// Timestamps are written as unix seconds, as the transport reports them.
type MessageRepository struct {
	db            *sql.DB
	log           *slog.Logger
	limitMessages *int
}

// NewMessageRepository opens (or creates) the SQLite file at path.
// A single connection serialises writers coming from concurrent workers,
// and the busy timeout absorbs a viewer holding a read lock.
func NewMessageRepository(ctx context.Context, path string, log *slog.Logger, limitMessages *int) (*MessageRepository, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err = db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &MessageRepository{db: db, log: log, limitMessages: limitMessages}, nil
}

// OpenMessageRepositoryReadOnly opens an existing SQLite file without
// creating it, touching the schema or changing the journal mode.
// Writes through the returned repository fail.
func OpenMessageRepositoryReadOnly(ctx context.Context, path string, log *slog.Logger, limitMessages *int) (*MessageRepository, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &MessageRepository{db: db, log: log, limitMessages: limitMessages}, nil
}

func (m *MessageRepository) StoreMessage(ctx context.Context, message domain.StoredMessage) error {
	_, err := m.db.ExecContext(ctx,
		`INSERT INTO messages (sender, sendername, content, timestamp) VALUES (?, ?, ?, ?)`,
		message.Sender,
		sql.NullString{String: lo.FromPtr(message.SenderName), Valid: message.SenderName != nil},
		message.Content,
		strconv.FormatInt(message.Timestamp.Unix(), 10),
	)
	return err
}

// GetMessages returns messages newest first.
// The cursor is the row id of the last message of the previous page.
func (m *MessageRepository) GetMessages(ctx context.Context, cursor *string) ([]domain.StoredMessage, *string, error) {
	before := int64(-1)
	if cursor != nil {
		id, err := strconv.ParseInt(*cursor, 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %q", errors.ErrInvalidCursor, *cursor)
		}
		before = id
	}
	limit := -1
	if m.limitMessages != nil {
		limit = *m.limitMessages
	}

	rows, err := m.db.QueryContext(ctx,
		`SELECT id, sender, sendername, content, timestamp FROM messages
		 WHERE (? < 0 OR id < ?) ORDER BY id DESC LIMIT ?`,
		before, before, limit,
	)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var messages []domain.StoredMessage
	var lastKey string
	for rows.Next() {
		var (
			id         int64
			sender     sql.NullString
			senderName sql.NullString
			content    sql.NullString
			timestamp  sql.NullString
		)
		if err = rows.Scan(&id, &sender, &senderName, &content, &timestamp); err != nil {
			return nil, nil, err
		}
		lastKey = strconv.FormatInt(id, 10)
		messages = append(messages, domain.StoredMessage{
			ID:         lastKey,
			Sender:     sender.String,
			SenderName: lo.Ternary(senderName.Valid, lo.ToPtr(senderName.String), nil),
			Content:    content.String,
			Timestamp:  parseTimestamp(timestamp.String),
		})
	}
	if err = rows.Err(); err != nil {
		return nil, nil, err
	}
	if len(messages) == 0 {
		return nil, nil, nil
	}
	if m.limitMessages != nil && len(messages) == *m.limitMessages {
		m.log.Debug(fmt.Sprintf("Maximum of %d message reached", *m.limitMessages))
	}
	return messages, &lastKey, nil
}

func (m *MessageRepository) Close() error {
	return m.db.Close()
}

func parseTimestamp(raw string) time.Time {
	seconds, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(seconds, 0).UTC()
}
