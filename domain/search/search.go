package search

import (
	"strconv"
	"strings"
)

const DefaultLimit = 10

// Query represents the structured parameters of a message search.
// It decouples the raw command-line input from the index requirements.
type Query struct {
	RawInput string // The original input
	Terms    string // The text matched against message content
	Sender   string // Exact sender JID, empty for any
	Lang     string // ISO 639-1 code, empty for any
	Limit    int    // Number of results
}

// NewSearchQuery parses a raw string to extract command-line style arguments.
// Example: "invoice due --sender 33600000001@s.whatsapp.net --lang en --limit 5"
func NewSearchQuery(input string) Query {
	query := Query{
		RawInput: input,
		Limit:    DefaultLimit,
	}

	parts := strings.Fields(input)
	var textTerms []string

	for i := 0; i < len(parts); i++ {
		part := parts[i]

		if strings.HasPrefix(part, "--") && i+1 < len(parts) {
			val := parts[i+1]
			switch strings.TrimPrefix(part, "--") {
			case "sender":
				query.Sender = val
			case "lang":
				query.Lang = strings.ToLower(val)
			case "limit":
				if limit, err := strconv.Atoi(val); err == nil && limit > 0 {
					query.Limit = limit
				}
			}
			i++ // Skip the value part in next iteration
			continue
		}

		textTerms = append(textTerms, part)
	}

	query.Terms = strings.Join(textTerms, " ")
	return query
}
