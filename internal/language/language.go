// Package language decides which language the assistant answers in and
// whether the user is warned that the answer relied on sources in another
// language.
package language

const (
	Arabic  = "ar"
	English = "en"
)

func isArabic(r rune) bool {
	return r >= 0x0600 && r <= 0x06FF
}

func isLatin(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func count(text string) (arabic, latin int) {
	for _, r := range text {
		switch {
		case isArabic(r):
			arabic++
		case isLatin(r):
			latin++
		}
	}
	return arabic, latin
}

// DetermineResponseLanguage picks the language the assistant must answer
// in. Any Arabic character wins; Latin letters alone give English; text with
// no letters defaults to Arabic.
func DetermineResponseLanguage(text string) string {
	arabic, latin := count(text)
	switch {
	case arabic > 0:
		return Arabic
	case latin > 0:
		return English
	default:
		return Arabic
	}
}

// DetectLanguage labels already produced text by script majority. Ties and
// text without letters are labelled Arabic.
func DetectLanguage(text string) string {
	arabic, latin := count(text)
	if latin > arabic {
		return English
	}
	return Arabic
}

// Other returns the other supported language
func Other(lang string) string {
	if lang == English {
		return Arabic
	}
	return English
}

// Name returns the English name of lang, as used in prompts
func Name(lang string) string {
	switch lang {
	case English:
		return "English"
	case Arabic:
		return "Arabic"
	default:
		return lang
	}
}

// DisclaimerInput carries what the disclaimer decision depends on
type DisclaimerInput struct {
	IsContextUsed    bool
	IsAnswer         bool
	ContextLanguages []string
	QuestionLanguage string
	ResponseLanguage string
}

// ShouldShowDisclaimer reports whether the answer needs a translation
// disclaimer: the model used retrieved context to give a real answer and
// some language involved differs from the question's.
func ShouldShowDisclaimer(in DisclaimerInput) bool {
	if !in.IsContextUsed || !in.IsAnswer {
		return false
	}

	languages := Distinct(in.ContextLanguages)
	multi := len(languages) > 1
	contextDiffers := len(languages) == 1 && languages[0] != in.QuestionLanguage
	responseDiffers := in.ResponseLanguage != in.QuestionLanguage

	return multi || contextDiffers || responseDiffers
}

// Distinct returns the non-empty values of langs in first-seen order
func Distinct(langs []string) []string {
	seen := make(map[string]struct{}, len(langs))
	out := make([]string, 0, len(langs))
	for _, l := range langs {
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
