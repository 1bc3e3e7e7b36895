package gibberish

import (
	"strings"
	"unicode"
)

// Stats are the character and token statistics the rules work on. Lengths
// count runes.
type Stats struct {
	N       int `json:"n"`
	Letters int `json:"letters"`
	Arabic  int `json:"arabic"`
	Latin   int `json:"latin"`
	Digits  int `json:"digits"`
	Spaces  int `json:"spaces"`
	Punct   int `json:"punct"`

	RLetters float64 `json:"r_letters"`
	RPunct   float64 `json:"r_punct"`
	RArabic  float64 `json:"r_ar"`
	RLatin   float64 `json:"r_lat"`

	WordCount   int     `json:"wc"`
	UniqueRatio float64 `json:"unique_ratio"`
	AvgTokenLen float64 `json:"avg_token_len"`
	LongestRun  int     `json:"longest_run"`
}

// IsArabic reports whether r is in one of the Arabic script blocks
// (Arabic, Supplement, Extended-A, Presentation Forms A and B)
func IsArabic(r rune) bool {
	switch {
	case r >= 0x0600 && r <= 0x06FF,
		r >= 0x0750 && r <= 0x077F,
		r >= 0x08A0 && r <= 0x08FF,
		r >= 0xFB50 && r <= 0xFDFF,
		r >= 0xFE70 && r <= 0xFEFF:
		return true
	}
	return false
}

// IsLatin reports whether r is an ASCII letter
func IsLatin(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 0x0660 && r <= 0x0669)
}

// ExtractStats computes Stats for already normalized text
func ExtractStats(text string) Stats {
	var s Stats

	var prev rune
	run := 1
	for i, r := range []rune(text) {
		s.N++
		switch {
		case isDigit(r):
			s.Digits++
		case IsArabic(r):
			s.Arabic++
		case IsLatin(r):
			s.Latin++
		case unicode.IsSpace(r):
			s.Spaces++
		default:
			s.Punct++
		}

		if i > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		if run > s.LongestRun {
			s.LongestRun = run
		}
		prev = r
	}

	s.Letters = s.Arabic + s.Latin
	if s.N > 0 {
		s.RLetters = float64(s.Letters) / float64(s.N)
		s.RPunct = float64(s.Punct) / float64(s.N)
	}
	if s.Letters > 0 {
		s.RArabic = float64(s.Arabic) / float64(s.Letters)
		s.RLatin = float64(s.Latin) / float64(s.Letters)
	}

	tokens := strings.Fields(text)
	s.WordCount = len(tokens)
	if s.WordCount > 0 {
		unique := make(map[string]struct{}, len(tokens))
		total := 0
		for _, tok := range tokens {
			unique[tok] = struct{}{}
			total += len([]rune(tok))
		}
		s.UniqueRatio = float64(len(unique)) / float64(s.WordCount)
		s.AvgTokenLen = float64(total) / float64(s.WordCount)
	}

	return s
}
