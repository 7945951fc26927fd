package moderation

import (
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const replacementChar = '*'

func TestModerator_Censor(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	mod, err := NewModerator([]string{"badger", "snake"}, replacementChar, log)
	req.NoError(err)

	tests := []struct {
		name     string
		input    string
		expected string
		words    []string
	}{
		{
			name:     "clean text is untouched",
			input:    "Go is a nice language",
			expected: "Go is a nice language",
		},
		{
			name:     "single word keeps surrounding spaces",
			input:    "The badger is here",
			expected: "The ****** is here",
			words:    []string{"badger"},
		},
		{
			name:     "leet speak with punctuation inside the word",
			input:    "Look at B.4.d.g.3r !",
			expected: "Look at ********** !",
			words:    []string{"badger"},
		},
		{
			name:     "several words",
			input:    "S-N-A-K-E and badger",
			expected: "********* and ******",
			words:    []string{"snake", "badger"},
		},
		{
			name:     "accents are preserved",
			input:    "Un été avec un badger",
			expected: "Un été avec un ******",
			words:    []string{"badger"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			censored, words := mod.Censor(tt.input)
			require.Equal(t, tt.expected, censored)
			require.ElementsMatch(t, tt.words, words)
		})
	}
}

func TestModerator_EmptyDictionary(t *testing.T) {
	req := require.New(t)
	mod, err := NewModerator(nil, replacementChar, slog.Default())
	req.NoError(err)

	censored, words := mod.Censor("badger")
	req.Equal("badger", censored)
	req.Empty(words)
}

func TestModerator_NilIsPassThrough(t *testing.T) {
	var mod *Moderator
	censored, words := mod.Censor("badger")
	require.Equal(t, "badger", censored)
	require.Nil(t, words)
}
