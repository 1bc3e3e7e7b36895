package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeAnswer(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Answer
	}{
		{
			name: "plain json",
			raw:  `{"answer":"<p>Yes</p>","is_answer":true,"is_context_used":false}`,
			want: Answer{Answer: "<p>Yes</p>", IsAnswer: true},
		},
		{
			name: "fenced json",
			raw:  "```json\n{\"answer\":\"<p>Yes</p>\",\"is_answer\":true,\"is_context_used\":true}\n```",
			want: Answer{Answer: "<p>Yes</p>", IsAnswer: true, IsContextUsed: true},
		},
		{
			name: "plain text",
			raw:  "Hello, how can I help?",
			want: Answer{Answer: "Hello, how can I help?"},
		},
		{
			name: "empty answer field",
			raw:  `{"answer":"  ","is_answer":true,"is_context_used":true}`,
			want: Answer{IsAnswer: true, IsContextUsed: true},
		},
		{
			name: "truncated json",
			raw:  `{"answer":"<p>Yes`,
			want: Answer{Answer: `{"answer":"<p>Yes`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeAnswer(tt.raw))
		})
	}
}
