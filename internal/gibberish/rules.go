package gibberish

import "fmt"

// checkHardRules returns a reason when text is gibberish regardless of any
// other signal. Rule order matters; the first match wins.
func checkHardRules(s Stats, text string) (string, bool) {
	switch {
	case s.N >= 10 && s.LongestRun >= 8:
		return fmt.Sprintf("long repeated character run (%d) in text of length %d", s.LongestRun, s.N), true
	case s.N >= 15 && s.RPunct >= 0.75:
		return fmt.Sprintf("excessive punctuation ratio (%.2f) in text of length %d", s.RPunct, s.N), true
	case s.N >= 20 && s.RLetters <= 0.15:
		return fmt.Sprintf("too few letters (%.2f) in text of length %d", s.RLetters, s.N), true
	case s.N >= 20 && s.Spaces == 0 && s.RLetters >= 0.8 && s.UniqueRatio >= 0.9:
		return fmt.Sprintf("no spaces with high letter and unique ratio in text of length %d", s.N), true
	}

	singleWord := s.Spaces == 0 && s.WordCount == 1

	if singleWord && s.RLatin >= 0.9 && s.N >= 5 && s.N <= 20 && !hasEnglishKeyword(text) {
		return fmt.Sprintf("short keyboard-mashed Latin text (%d chars) with no legal keywords", s.N), true
	}
	if singleWord && s.RArabic >= 0.9 && s.N >= 5 && s.N <= 15 && !hasArabicKeyword(text) {
		return fmt.Sprintf("short random Arabic sequence (%d chars) with no legal keywords", s.N), true
	}
	if singleWord && s.RArabic >= 0.2 && s.RLatin >= 0.2 && s.N >= 8 && s.N <= 30 && !hasAnyKeyword(text) {
		return fmt.Sprintf("mixed Arabic-Latin sequence (%d chars) with no legal keywords", s.N), true
	}
	if singleWord && s.RArabic >= 0.8 && s.N >= 10 && !hasArabicKeyword(text) {
		return fmt.Sprintf("single long Arabic word (%d chars) with no legal keywords", s.N), true
	}
	if s.Spaces == 0 && s.RArabic >= 0.7 && s.UniqueRatio >= 0.95 && s.N >= 15 && !hasArabicKeyword(text) {
		return fmt.Sprintf("unstructured Arabic text with unique ratio %.2f", s.UniqueRatio), true
	}

	return "", false
}

// checkLegalOverride returns a reason when text must be treated as real
// legal content
func checkLegalOverride(s Stats, text string) (string, bool) {
	if kw, ok := findArabicKeyword(text); ok {
		return "contains Arabic legal keyword: " + kw, true
	}
	if kw, ok := findEnglishKeyword(text); ok {
		return "contains English legal keyword: " + kw, true
	}
	if pattern, ok := matchLegalPattern(text); ok {
		return "matches legal pattern: " + pattern, true
	}
	if s.WordCount >= 6 && s.RLetters >= 0.35 {
		return fmt.Sprintf("sufficient word count (%d) and letter ratio (%.2f)", s.WordCount, s.RLetters), true
	}
	return "", false
}

// score computes the heuristic score clamped to [0,1]
func score(s Stats, text string) (float64, []string) {
	var total float64
	var reasons []string
	add := func(delta float64, reason string) {
		total += delta
		reasons = append(reasons, reason)
	}

	if s.RLetters >= 0.40 {
		add(0.30, fmt.Sprintf("good letter ratio: %.2f", s.RLetters))
	}
	if s.WordCount >= 4 {
		add(0.15, fmt.Sprintf("sufficient word count: %d", s.WordCount))
	}
	if s.Spaces >= 1 {
		add(0.10, "contains spaces")
	}
	if s.UniqueRatio >= 0.60 {
		add(0.15, fmt.Sprintf("good unique ratio: %.2f", s.UniqueRatio))
	}
	if s.AvgTokenLen >= 2 && s.AvgTokenLen <= 12 {
		add(0.10, fmt.Sprintf("reasonable average token length: %.2f", s.AvgTokenLen))
	}
	if s.RArabic > 0.2 && s.RLatin > 0.2 && (hasAnyKeyword(text) || (s.Spaces > 0 && s.WordCount >= 2)) {
		add(0.10, "mixed Arabic and English content")
	}
	if s.Digits >= 1 && s.WordCount >= 2 {
		add(0.10, "contains digits with multiple words")
	}

	if s.RPunct > 0.50 {
		add(-0.20, fmt.Sprintf("high punctuation ratio: %.2f", s.RPunct))
	}
	if s.WordCount == 1 && s.AvgTokenLen < 3 {
		add(-0.15, fmt.Sprintf("single short token: length %.2f", s.AvgTokenLen))
	}
	if s.WordCount == 1 && s.RArabic >= 0.8 && s.AvgTokenLen >= 10 && !hasArabicKeyword(text) {
		add(-0.25, "single long Arabic word with no legal keywords")
	}
	if s.UniqueRatio < 0.30 && s.WordCount >= 4 {
		add(-0.15, fmt.Sprintf("low unique ratio: %.2f", s.UniqueRatio))
	}
	if s.RArabic >= 0.7 && s.Spaces == 0 && s.WordCount == 1 && s.N >= 10 && !hasArabicKeyword(text) {
		add(-0.20, "Arabic text with no spaces and no legal keywords")
	}
	if s.RArabic >= 0.2 && s.RLatin >= 0.2 && s.Spaces == 0 && s.WordCount == 1 &&
		s.N >= 8 && s.N <= 30 && !hasAnyKeyword(text) {
		add(-0.40, "mixed Arabic-Latin text with no spaces and no legal keywords")
	}

	switch {
	case total < 0:
		total = 0
	case total > 1:
		total = 1
	}
	return total, reasons
}
