// Package gibberish classifies user input as real, suspicious or gibberish.
// Arabic and English are both first-class; legal vocabulary always wins over
// the statistical heuristics.
package gibberish

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Verdict is the classification outcome
type Verdict string

const (
	Real       Verdict = "real"
	Suspicious Verdict = "suspicious"
	Gibberish  Verdict = "gibberish"
)

// Config holds the classification thresholds
type Config struct {
	RealThreshold       float64
	SuspiciousThreshold float64
	LLMEnabled          bool
	// Minimum LLM confidence needed to override a suspicious verdict
	LLMGibberishConfidence float64
	LLMRealConfidence      float64
	Logger                 logrus.FieldLogger
}

// DefaultConfig returns the production thresholds
func DefaultConfig() Config {
	return Config{
		RealThreshold:          0.60,
		SuspiciousThreshold:    0.35,
		LLMEnabled:             true,
		LLMGibberishConfidence: 0.70,
		LLMRealConfidence:      0.60,
	}
}

// Result is the outcome of Classify
type Result struct {
	Verdict Verdict        `json:"verdict"`
	Score   float64        `json:"score"`
	Reasons []string       `json:"reasons"`
	Stats   Stats          `json:"stats"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// IsGibberish reports whether the input must be rejected
func (r Result) IsGibberish() bool {
	return r.Verdict == Gibberish
}

// Judgment is a second opinion from an external classifier
type Judgment struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// Escalator resolves suspicious input. Errors are logged and ignored.
type Escalator interface {
	Judge(ctx context.Context, text string) (*Judgment, error)
}

// Classify runs normalization, hard rules, legal overrides, heuristic
// scoring and, for suspicious input only, escalation. escalator may be nil.
func Classify(ctx context.Context, text string, cfg Config, escalator Escalator) Result {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	normalized := Normalize(text)
	if normalized == "" {
		return Result{
			Verdict: Gibberish,
			Score:   0,
			Reasons: []string{"empty or only whitespace/zero-width characters"},
			Meta:    map[string]any{"n": 0},
		}
	}

	stats := ExtractStats(normalized)
	meta := map[string]any{
		"n":         stats.N,
		"r_letters": stats.RLetters,
		"r_punct":   stats.RPunct,
	}

	var result Result
	if reason, ok := checkHardRules(stats, normalized); ok {
		meta["longest_run"] = stats.LongestRun
		result = Result{Verdict: Gibberish, Score: 0, Reasons: []string{reason}, Stats: stats, Meta: meta}
	} else if reason, ok := checkLegalOverride(stats, normalized); ok {
		meta["override"] = "legal"
		result = Result{Verdict: Real, Score: 1, Reasons: []string{reason}, Stats: stats, Meta: meta}
	} else {
		s, reasons := score(stats, normalized)
		meta["wc"] = stats.WordCount
		meta["unique_ratio"] = stats.UniqueRatio
		result = Result{Verdict: verdictFor(s, cfg), Score: s, Reasons: reasons, Stats: stats, Meta: meta}

		if result.Verdict == Suspicious && cfg.LLMEnabled && escalator != nil {
			escalate(ctx, &result, normalized, cfg, escalator, logger)
		}
	}

	logger.WithFields(logrus.Fields{
		"verdict":   result.Verdict,
		"score":     result.Score,
		"n":         stats.N,
		"r_letters": fmt.Sprintf("%.3f", stats.RLetters),
		"r_punct":   fmt.Sprintf("%.3f", stats.RPunct),
		"reasons":   result.Reasons,
	}).Debug("Input classified")

	return result
}

func verdictFor(s float64, cfg Config) Verdict {
	switch {
	case s >= cfg.RealThreshold:
		return Real
	case s >= cfg.SuspiciousThreshold:
		return Suspicious
	default:
		return Gibberish
	}
}

func escalate(ctx context.Context, result *Result, text string, cfg Config, escalator Escalator, logger logrus.FieldLogger) {
	judgment, err := escalator.Judge(ctx, text)
	if err != nil {
		logger.WithError(err).Warn("LLM gibberish escalation failed, keeping heuristic verdict")
		return
	}
	if judgment == nil {
		return
	}

	verdict := result.Verdict
	switch label := strings.ToLower(strings.TrimSpace(judgment.Label)); {
	case label == string(Gibberish) && judgment.Confidence >= cfg.LLMGibberishConfidence:
		verdict = Gibberish
	case label == string(Real) && judgment.Confidence >= cfg.LLMRealConfidence:
		verdict = Real
	}

	if verdict == result.Verdict {
		result.Meta["llm_override"] = false
		return
	}
	result.Verdict = verdict
	result.Reasons = append(result.Reasons,
		fmt.Sprintf("LLM override: %s (confidence: %.2f)", judgment.Reason, judgment.Confidence))
	result.Meta["llm_override"] = true
	result.Meta["llm_confidence"] = judgment.Confidence
}
