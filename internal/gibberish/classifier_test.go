package gibberish

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := DefaultConfig()
	logger, _ := test.NewNullLogger()
	cfg.Logger = logger
	return cfg
}

func TestClassifyVerdicts(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		verdict Verdict
	}{
		{"long repeated run", "aaaaaaaabbbbbbbb", Gibberish},
		{"punctuation spam", "%%%%%%%@@@@@@#######", Gibberish},
		{"symbol spam", "!@#$%^&*()!@#$%^&*()", Gibberish},
		{"letters between symbols", "abc!@#def$%^ghi&*()", Gibberish},
		{"arabic laughter", "هههههههههههه", Gibberish},
		{"keyboard mashing", "asdfkjasdfkjasdfkjasd", Gibberish},
		{"whitespace only", "   \n\t  ", Gibberish},
		{"zero width only", "​‌‍\uFEFF", Gibberish},
		{"single latin char", "a", Gibberish},
		{"single arabic char", "م", Gibberish},
		{"digits only", "123456789", Gibberish},

		{"arabic article", "المادة 74 من النظام", Real},
		{"arabic question", "ما هي شروط العقد في القانون السعودي؟", Real},
		{"arabic indic digits", "المادة ١", Real},
		{"english article", "Article 74 of the law", Real},
		{"short english article", "Article 74", Real},
		{"section reference", "Section 15 paragraph 3 of the Companies Act", Real},
		{"contract clause", "The contract shall be governed by Saudi law", Real},
		{"mixed query", "ما هي requirements للعقد contract؟", Real},
		{"mixed terms", "عقد contract محكمة court", Real},
		{"contract id", "Contract ID: CNT-2024-001", Real},
		{"case reference", "Case No. 123/2024", Real},
		{"url", "See https://example.com/legal-doc", Real},
		{"domain", "Visit example.com for details", Real},
		{"short arabic keyword", "عقد", Real},
		{"long sentence", "What are the requirements for starting a business in Saudi Arabia?", Real},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Classify(context.Background(), tt.input, testConfig(), nil)
			assert.Equal(t, tt.verdict, result.Verdict, "reasons: %v", result.Reasons)
			assert.NotEmpty(t, result.Reasons)
		})
	}
}

func TestClassifyEmpty(t *testing.T) {
	result := Classify(context.Background(), "", testConfig(), nil)
	assert.Equal(t, Gibberish, result.Verdict)
	assert.Equal(t, 0.0, result.Score)
	assert.True(t, result.IsGibberish())
}

func TestClassifyLegalOverrideScore(t *testing.T) {
	result := Classify(context.Background(), "المادة 74 من النظام", testConfig(), nil)
	assert.Equal(t, Real, result.Verdict)
	assert.GreaterOrEqual(t, result.Score, 0.60)
	assert.Equal(t, "legal", result.Meta["override"])
}

func TestArticleNumberAlwaysReal(t *testing.T) {
	cfg := testConfig()
	cfg.RealThreshold = 0.95
	cfg.SuspiciousThreshold = 0.9

	for _, input := range []string{
		"Article 74",
		"article 9 ?! ?!",
		"Article 5 %%%% $$$$",
		"ARTICLE 300 qqq zzz !!!",
		"see article12 ...",
	} {
		result := Classify(context.Background(), input, cfg, nil)
		assert.Equal(t, Real, result.Verdict, input)
		assert.Equal(t, 1.0, result.Score, input)
	}
}

func TestClassifyMetaPopulated(t *testing.T) {
	result := Classify(context.Background(), "Article 74", testConfig(), nil)
	assert.Contains(t, result.Meta, "n")
	assert.Contains(t, result.Meta, "r_letters")
	assert.Contains(t, result.Meta, "r_punct")
}

func TestClassifyLowScore(t *testing.T) {
	result := Classify(context.Background(), "asdfghjklqwertyuiop", testConfig(), nil)
	assert.Equal(t, Gibberish, result.Verdict)
	assert.Less(t, result.Score, 0.35)
}

type stubEscalator struct {
	judgment *Judgment
	err      error
	calls    int
}

func (s *stubEscalator) Judge(ctx context.Context, text string) (*Judgment, error) {
	s.calls++
	return s.judgment, s.err
}

func TestSuspiciousBaseline(t *testing.T) {
	result := Classify(context.Background(), "a b", testConfig(), nil)
	require.Equal(t, Suspicious, result.Verdict)
	assert.InDelta(t, 0.55, result.Score, 1e-9)
}

func TestEscalation(t *testing.T) {
	tests := []struct {
		name     string
		judgment *Judgment
		err      error
		verdict  Verdict
		override any
	}{
		{"confident gibberish", &Judgment{Label: "gibberish", Confidence: 0.9, Reason: "mash"}, nil, Gibberish, true},
		{"gibberish at threshold", &Judgment{Label: "gibberish", Confidence: 0.70}, nil, Gibberish, true},
		{"weak gibberish", &Judgment{Label: "gibberish", Confidence: 0.5}, nil, Suspicious, false},
		{"confident real", &Judgment{Label: "REAL", Confidence: 0.65}, nil, Real, true},
		{"weak real", &Judgment{Label: "real", Confidence: 0.59}, nil, Suspicious, false},
		{"unknown label", &Judgment{Label: "maybe", Confidence: 1}, nil, Suspicious, false},
		{"llm failure", nil, errors.New("timeout"), Suspicious, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			esc := &stubEscalator{judgment: tt.judgment, err: tt.err}
			result := Classify(context.Background(), "a b", testConfig(), esc)

			assert.Equal(t, 1, esc.calls)
			assert.Equal(t, tt.verdict, result.Verdict)
			if tt.override == nil {
				assert.NotContains(t, result.Meta, "llm_override")
			} else {
				assert.Equal(t, tt.override, result.Meta["llm_override"])
			}
		})
	}
}

func TestEscalationSkipped(t *testing.T) {
	esc := &stubEscalator{judgment: &Judgment{Label: "gibberish", Confidence: 1}}

	cfg := testConfig()
	cfg.LLMEnabled = false
	result := Classify(context.Background(), "a b", cfg, esc)
	assert.Equal(t, Suspicious, result.Verdict)

	Classify(context.Background(), "Article 74", testConfig(), esc)
	Classify(context.Background(), "aaaaaaaabbbbbbbb", testConfig(), esc)
	assert.Zero(t, esc.calls)
}
