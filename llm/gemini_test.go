package llm

import (
	"testing"
	"wa-relay/errors"

	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestFirstText(t *testing.T) {
	tests := []struct {
		name    string
		resp    *genai.GenerateContentResponse
		want    string
		wantErr error
	}{
		{
			name: "text of the first candidate",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: genai.NewContentFromText("Hi there", genai.RoleModel)},
			}},
			want: "Hi there",
		},
		{
			name:    "no candidates",
			resp:    &genai.GenerateContentResponse{},
			wantErr: errors.ErrEmptyCompletion,
		},
		{
			name: "candidate without text parts",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: &genai.Content{Role: genai.RoleModel}},
			}},
			wantErr: errors.ErrEmptyCompletion,
		},
		{
			name:    "nil response",
			wantErr: errors.ErrEmptyCompletion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)

			got, err := firstText(tt.resp)

			if tt.wantErr != nil {
				req.ErrorIs(err, tt.wantErr)
				return
			}
			req.NoError(err)
			req.Equal(tt.want, got)
		})
	}
}
