package language

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetermineResponseLanguage(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Hello", English},
		{"مرحبا", Arabic},
		{"Hello مرحبا", Arabic},
		{"What does المادة mean in this contract?", Arabic},
		{"123", Arabic},
		{"", Arabic},
		{"?!", Arabic},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, DetermineResponseLanguage(tt.input))
		})
	}
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Hello", English},
		{"مرحبا", Arabic},
		{"Hello there مرحبا", English},
		{"ab مر", Arabic},
		{"", Arabic},
		{"2024", Arabic},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectLanguage(tt.input))
		})
	}
}

func TestOtherAndName(t *testing.T) {
	assert.Equal(t, English, Other(Arabic))
	assert.Equal(t, Arabic, Other(English))
	assert.Equal(t, "Arabic", Name(Arabic))
	assert.Equal(t, "English", Name(English))
	assert.Equal(t, "fr", Name("fr"))
}

func TestShouldShowDisclaimer(t *testing.T) {
	tests := []struct {
		name string
		in   DisclaimerInput
		want bool
	}{
		{
			name: "same language everywhere",
			in:   DisclaimerInput{IsContextUsed: true, IsAnswer: true, ContextLanguages: []string{"ar"}, QuestionLanguage: "ar", ResponseLanguage: "ar"},
			want: false,
		},
		{
			name: "multi language context",
			in:   DisclaimerInput{IsContextUsed: true, IsAnswer: true, ContextLanguages: []string{"ar", "en", "ar"}, QuestionLanguage: "ar", ResponseLanguage: "ar"},
			want: true,
		},
		{
			name: "context in other language",
			in:   DisclaimerInput{IsContextUsed: true, IsAnswer: true, ContextLanguages: []string{"ar"}, QuestionLanguage: "en", ResponseLanguage: "en"},
			want: true,
		},
		{
			name: "response in other language",
			in:   DisclaimerInput{IsContextUsed: true, IsAnswer: true, ContextLanguages: []string{"en"}, QuestionLanguage: "en", ResponseLanguage: "ar"},
			want: true,
		},
		{
			name: "no context languages",
			in:   DisclaimerInput{IsContextUsed: true, IsAnswer: true, QuestionLanguage: "en", ResponseLanguage: "en"},
			want: false,
		},
		{
			name: "not an answer",
			in:   DisclaimerInput{IsContextUsed: true, IsAnswer: false, ContextLanguages: []string{"ar", "en"}, QuestionLanguage: "en", ResponseLanguage: "ar"},
			want: false,
		},
		{
			name: "context not used",
			in:   DisclaimerInput{IsContextUsed: false, IsAnswer: true, ContextLanguages: []string{"ar", "en"}, QuestionLanguage: "en", ResponseLanguage: "ar"},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldShowDisclaimer(tt.in))
		})
	}
}

func TestDistinct(t *testing.T) {
	assert.Equal(t, []string{"ar", "en"}, Distinct([]string{"ar", "", "en", "ar"}))
	assert.Empty(t, Distinct(nil))
}
