package pipeline

import (
	"math/rand/v2"
	"strings"
	"unicode"

	"github.com/nizami/nizami-backend/internal/language"
)

// Replies are the canned answers of the rejection branches. One variant of
// each language is picked at random per reply.
type Replies struct {
	GibberishArabic  []string
	GibberishEnglish []string
	RelatedArabic    []string
	RelatedEnglish   []string
	NoAnswerArabic   []string
	NoAnswerEnglish  []string

	pick func(n int) int
}

// DefaultReplies returns the production replies
func DefaultReplies() *Replies {
	return &Replies{
		GibberishArabic: []string{
			"عذرًا، لم أتمكن من فهم رسالتك. هل يمكنك إعادة صياغة سؤالك القانوني بوضوح؟",
			"يبدو أن الرسالة غير واضحة. يرجى كتابة سؤالك القانوني بمزيد من التفاصيل.",
			"لم أستطع تفسير طلبك. يرجى توضيح ما تحتاج إليه بشكل أدق.",
		},
		GibberishEnglish: []string{
			"Your request is unclear. Could you please provide more details or clarify your instructions?",
			"I’m sorry, but I couldn’t fully understand your request. Please provide further clarification.",
			"The instructions seem ambiguous. Kindly specify what changes or adjustments are required.",
			"Could you elaborate on your request? I want to ensure the output meets your expectations.",
			"I need more clarity on the instructions to proceed effectively. Could you please elaborate?",
			"It seems that the request was not fully understood. Kindly provide more details or an example.",
			"To deliver accurate results, I need clearer guidance on your requirements.",
			"Your instructions are somewhat unclear. Please help me understand by providing more context.",
			"The request lacks sufficient details. Could you clarify what changes or updates you expect?",
			"I couldn't interpret the instructions properly. Additional information would help improve the outcome.",
		},
		RelatedArabic: []string{
			"يرجى طرح سؤال قانوني محدد ومكتمل بحيث يمكن فهمه دون الرجوع إلى الرسائل السابقة.",
			"لتقديم إجابة دقيقة، يرجى إعادة كتابة سؤالك بشكل مستقل مع ذكر جميع التفاصيل ذات الصلة.",
		},
		RelatedEnglish: []string{
			"Please ask a specific, self-contained legal question so I can answer it accurately.",
			"To give you an accurate answer, please restate your question in full, including all relevant details.",
		},
		NoAnswerArabic: []string{
			"عذرًا، لم أتمكن من إعداد إجابة على سؤالك. يرجى إعادة المحاولة أو صياغة السؤال بطريقة أخرى.",
		},
		NoAnswerEnglish: []string{
			"Sorry, I could not prepare an answer to your question. Please try again or rephrase it.",
		},
		pick: rand.IntN,
	}
}

// Gibberish returns the reply to unreadable input: bilingual, or English
// only when the input contains no Arabic script
func (r *Replies) Gibberish(input string) string {
	english := r.choose(r.GibberishEnglish)
	if !containsArabic(input) {
		return english
	}
	return r.choose(r.GibberishArabic) + "\n\n" + english
}

// Related returns the bilingual "please be more specific" reply
func (r *Replies) Related() string {
	return r.choose(r.RelatedArabic) + "\n\n" + r.choose(r.RelatedEnglish)
}

// NoAnswer returns the reply used when the model produced an empty answer
func (r *Replies) NoAnswer(lang string) string {
	if lang == language.Arabic {
		return r.choose(r.NoAnswerArabic)
	}
	return r.choose(r.NoAnswerEnglish)
}

func (r *Replies) choose(variants []string) string {
	if len(variants) == 0 {
		return ""
	}
	pick := r.pick
	if pick == nil {
		pick = rand.IntN
	}
	return variants[pick(len(variants))]
}

func containsArabic(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return unicode.Is(unicode.Arabic, r) }) >= 0
}
