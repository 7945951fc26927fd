package repositories

import (
	"context"
	"time"
	"wa-relay/domain/search"
	"wa-relay/sink"

	"github.com/blugelabs/bluge"
)

type SearchHit struct {
	ID         string
	Sender     string
	SenderName string
	Content    string
	Lang       string
	Timestamp  time.Time
	Score      float64
}

// SearchMessages runs a query against an index reader.
// Terms match message content; sender and language are exact filters.
func SearchMessages(ctx context.Context, reader *bluge.Reader, query search.Query) ([]SearchHit, error) {
	q := bluge.NewBooleanQuery()
	if query.Terms != "" {
		q.AddMust(bluge.NewMatchQuery(query.Terms).SetField(sink.FieldContent))
	} else {
		q.AddMust(bluge.NewMatchAllQuery())
	}
	if query.Sender != "" {
		q.AddMust(bluge.NewTermQuery(query.Sender).SetField(sink.FieldSender))
	}
	if query.Lang != "" {
		q.AddMust(bluge.NewTermQuery(query.Lang).SetField(sink.FieldLang))
	}

	limit := query.Limit
	if limit <= 0 {
		limit = search.DefaultLimit
	}
	dmi, err := reader.Search(ctx, bluge.NewTopNSearch(limit, q))
	if err != nil {
		return nil, err
	}

	var hits []SearchHit
	match, err := dmi.Next()
	for err == nil && match != nil {
		hit := SearchHit{Score: match.Score}
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.ID = string(value)
			case sink.FieldContent:
				hit.Content = string(value)
			case sink.FieldSender:
				hit.Sender = string(value)
			case sink.FieldName:
				hit.SenderName = string(value)
			case sink.FieldLang:
				hit.Lang = string(value)
			case sink.FieldAt:
				if at, decodeErr := bluge.DecodeDateTime(value); decodeErr == nil {
					hit.Timestamp = at.UTC()
				}
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
		match, err = dmi.Next()
	}
	if err != nil {
		return nil, err
	}
	return hits, nil
}
