package internal

import (
	"embed"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

//go:embed inspect.html
var templatesFS embed.FS

const defaultInspectLimit = 200

type InspectRow struct {
	Key       string
	Timestamp string
	Sender    string
	Detail    string
}

type RowMapper func(key string, val []byte) InspectRow
type StatsProvider func() map[string]any

type PageData struct {
	Prefix string
	Items  []InspectRow
	Stats  map[string]any
}

// Inspector renders the newest keys of a Badger prefix as an HTML table.
// It only opens read transactions.
type Inspector struct {
	db            *badger.DB
	mapper        RowMapper
	statsProvider StatsProvider
	tmpl          *template.Template
	defaultPrefix string
}

func NewInspector(db *badger.DB, defaultPrefix string, mapper RowMapper, statsProvider StatsProvider) *Inspector {
	if mapper == nil {
		mapper = DefaultMapper
	}
	return &Inspector{
		db:            db,
		mapper:        mapper,
		statsProvider: statsProvider,
		tmpl:          template.Must(template.ParseFS(templatesFS, "inspect.html")),
		defaultPrefix: defaultPrefix,
	}
}

// Handler serves the page on endpoint. Query parameters: prefix, limit.
func (i *Inspector) Handler(endpoint string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(endpoint, func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = i.defaultPrefix
		}
		limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
		if err != nil || limit <= 0 {
			limit = defaultInspectLimit
		}

		data := PageData{Prefix: prefix, Stats: make(map[string]any)}
		if i.statsProvider != nil {
			data.Stats = i.statsProvider()
		}

		err = i.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Reverse = true
			it := txn.NewIterator(opts)
			defer it.Close()
			// 0xFF sorts after every printable key sharing the prefix
			seek := append([]byte(prefix), 0xFF)
			for it.Seek(seek); it.ValidForPrefix([]byte(prefix)) && len(data.Items) < limit; it.Next() {
				item := it.Item()
				key := string(item.KeyCopy(nil))
				if err := item.Value(func(val []byte) error {
					data.Items = append(data.Items, i.mapper(key, val))
					return nil
				}); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = i.tmpl.Execute(w, data)
	})
	return mux
}

// DefaultMapper reads "<namespace>:<unix nano>:<id>" keys and reports the value size.
func DefaultMapper(key string, val []byte) InspectRow {
	row := InspectRow{
		Key:       key,
		Timestamp: "--:--:--",
		Sender:    "-",
		Detail:    "Size: " + strconv.Itoa(len(val)) + " bytes",
	}
	parts := strings.Split(key, ":")
	if len(parts) >= 3 {
		if tsNano, err := strconv.ParseInt(parts[1], 10, 64); err == nil {
			row.Timestamp = time.Unix(0, tsNano).UTC().Format(time.DateTime)
		}
	}
	return row
}
