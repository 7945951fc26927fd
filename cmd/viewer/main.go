package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
	"wa-relay/domain"
	"wa-relay/domain/search"
	"wa-relay/errors"
	"wa-relay/internal"
	"wa-relay/repositories"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	query := flag.String("q", "", `Search the index, e.g. "invoice --lang en --limit 5"`)
	cursor := flag.String("cursor", "", "Cursor returned by the previous page")
	limit := flag.Int("n", 20, "Messages per page")
	flag.Parse()

	_ = godotenv.Load()
	config, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	color.Enable = config.Colours
	log := logs.GetLoggerFromString("WARN")
	ctx := context.Background()

	if *query != "" {
		return runSearch(ctx, config, search.NewSearchQuery(*query), os.Stdout)
	}

	repository, closeStore, err := openStore(ctx, config, log, limit)
	if err != nil {
		return err
	}
	defer closeStore()

	messages, next, err := repository.GetMessages(ctx, lo.EmptyableToPtr(*cursor))
	if err != nil {
		return err
	}
	renderMessages(os.Stdout, messages)
	if next != nil {
		fmt.Println(color.Gray.Sprintf("next page: -cursor %s", *next))
	}
	return nil
}

// openStore opens the record store without taking ownership of it:
// Badger is opened read-only so the running relay keeps its lock.
func openStore(ctx context.Context, config Config, log *slog.Logger, limit *int) (repositories.IMessageRepository, func(), error) {
	switch config.StoreDriver {
	case internal.StoreSQLite:
		repository, err := repositories.OpenMessageRepositoryReadOnly(ctx, config.SQLiteFilepath, log, limit)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		return repository, func() { _ = repository.Close() }, nil
	case internal.StoreBadger:
		opts := badger.DefaultOptions(config.BadgerFilepath).
			WithReadOnly(true).
			WithBypassLockGuard(true).
			WithLoggingLevel(badger.WARNING)
		db, err := badger.Open(opts)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		return repositories.NewBadgerMessageRepository(db, log, limit), func() { _ = db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", errors.ErrUnknownStore, config.StoreDriver)
	}
}

func runSearch(ctx context.Context, config Config, query search.Query, w io.Writer) error {
	if config.BlugeFilepath == "" {
		return fmt.Errorf("%w: BLUGE_FILEPATH is required to search", errors.ErrInvalidConfig)
	}
	reader, err := bluge.OpenReader(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return fmt.Errorf("failed to open bluge reader: %w", err)
	}
	defer func() { _ = reader.Close() }()

	hits, err := repositories.SearchMessages(ctx, reader, query)
	if err != nil {
		return err
	}
	renderHits(w, hits)
	return nil
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(lo.Map(header, func(h string, _ int) string { return color.Bold.Sprint(h) }))
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func renderMessages(w io.Writer, messages []domain.StoredMessage) {
	table := newTable(w, []string{"Time", "Sender", "Name", "Content"})
	for _, m := range messages {
		table.Append([]string{
			m.Timestamp.Local().Format(time.DateTime),
			m.Sender,
			lo.FromPtr(m.SenderName),
			m.Content,
		})
	}
	table.Render()
}

func renderHits(w io.Writer, hits []repositories.SearchHit) {
	table := newTable(w, []string{"Score", "Time", "Sender", "Lang", "Content"})
	for _, h := range hits {
		table.Append([]string{
			fmt.Sprintf("%.3f", h.Score),
			h.Timestamp.Local().Format(time.DateTime),
			lo.Ternary(h.SenderName == "", h.Sender, h.SenderName),
			h.Lang,
			h.Content,
		})
	}
	table.Render()
}
