package gibberish

import (
	"regexp"
	"strings"
)

// ArabicLegalKeywords are matched as literal substrings
var ArabicLegalKeywords = []string{
	"نظام", "قانون", "لائحة", "قرار", "مرسوم", "أمر", "جهة", "وزارة", "هيئة", "دائرة",
	"محكمة", "قاضي", "دعوى", "قضية", "طعن", "استئناف", "تنفيذ", "حكم", "عقد", "التزام",
	"مسؤولية", "تعويض", "مخالفة", "جزاء", "غرامة", "ترخيص", "تصريح", "تسجيل", "اعتماد", "إلغاء",
	"إخطار", "تبليغ", "توكيل", "محامي", "مدعي", "مدعى عليه", "اختصاص", "ولاية", "جهة قضائية", "تنفيذية",
	"تشريعية", "رقابة", "تحقيق", "ضبط", "مصادرة", "التزام نظامي", "إبرام", "إنهاء", "سريان", "نفاذ",
}

// EnglishLegalKeywords are matched as lowercase substrings
var EnglishLegalKeywords = []string{
	"regulation", "law", "bylaw", "decision", "decree", "order", "authority", "ministry", "agency", "department",
	"court", "judge", "lawsuit", "case", "appeal", "enforcement", "judgment", "contract", "obligation", "liability",
	"compensation", "violation", "penalty", "fine", "license", "permit", "registration", "approval", "cancellation", "notification",
	"service of notice", "power of attorney", "lawyer", "plaintiff", "defendant", "jurisdiction", "judicial authority", "executive", "legislative", "oversight",
	"investigation", "seizure", "confiscation", "regulatory compliance", "execution", "termination", "validity", "entry into force",
}

var legalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)article\s*\d+`),
	regexp.MustCompile(`(?i)section\s*\d+`),
	regexp.MustCompile(`المادة\s*[0-9٠-٩]+`),
	regexp.MustCompile(`مادة\s*[0-9٠-٩]+`),
	regexp.MustCompile(`(?i)https?://`),
	regexp.MustCompile(`(?i)\b\w+\.(com|org|net|gov|edu)\b`),
}

func findArabicKeyword(text string) (string, bool) {
	for _, kw := range ArabicLegalKeywords {
		if strings.Contains(text, kw) {
			return kw, true
		}
	}
	return "", false
}

func findEnglishKeyword(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, kw := range EnglishLegalKeywords {
		if strings.Contains(lower, kw) {
			return kw, true
		}
	}
	return "", false
}

func hasArabicKeyword(text string) bool {
	_, ok := findArabicKeyword(text)
	return ok
}

func hasEnglishKeyword(text string) bool {
	_, ok := findEnglishKeyword(text)
	return ok
}

func hasAnyKeyword(text string) bool {
	return hasArabicKeyword(text) || hasEnglishKeyword(text)
}

func matchLegalPattern(text string) (string, bool) {
	for _, re := range legalPatterns {
		if re.MatchString(text) {
			return re.String(), true
		}
	}
	return "", false
}
