package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nizami/nizami-backend/internal/language"
	"github.com/nizami/nizami-backend/internal/models"
)

func TestGibberishReplyLanguage(t *testing.T) {
	r := DefaultReplies()
	r.pick = func(n int) int { return n - 1 }

	english := r.Gibberish("qwrtpsdfg")
	assert.Equal(t, r.GibberishEnglish[len(r.GibberishEnglish)-1], english)

	bilingual := r.Gibberish("ههههه lol")
	parts := strings.Split(bilingual, "\n\n")
	assert.Len(t, parts, 2)
	assert.Equal(t, r.GibberishArabic[len(r.GibberishArabic)-1], parts[0])
	assert.Equal(t, english, parts[1])
}

func TestRelatedReplyIsBilingual(t *testing.T) {
	r := DefaultReplies()
	reply := r.Related()
	assert.True(t, containsArabic(reply))
	assert.Contains(t, r.RelatedEnglish, strings.Split(reply, "\n\n")[1])
}

func TestNoAnswerFollowsResponseLanguage(t *testing.T) {
	r := DefaultReplies()
	r.pick = func(int) int { return 0 }

	assert.Equal(t, r.NoAnswerArabic[0], r.NoAnswer(language.Arabic))
	assert.Equal(t, r.NoAnswerEnglish[0], r.NoAnswer(language.English))
}

func TestEmptyVariants(t *testing.T) {
	r := &Replies{}
	assert.Empty(t, r.Gibberish("abc"))
}

func TestContextMessages(t *testing.T) {
	msg := func(id int64, role models.Role) *models.Message {
		return &models.Message{ID: id, Role: role}
	}
	st := &State{
		Unsummarized: []*models.Message{msg(5, models.RoleUser), msg(6, models.RoleAI)},
		Recent: []*models.Message{
			msg(3, models.RoleUser), msg(4, models.RoleAI), msg(5, models.RoleUser), msg(6, models.RoleAI),
		},
	}

	var ids []int64
	for _, m := range contextMessages(st, 3) {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []int64{4, 5, 6}, ids)

	assert.Empty(t, contextMessages(&State{}, 3))
}

func TestRelevanceContextMarksLastAssistant(t *testing.T) {
	st := &State{
		Summary: "The user asked about leases.",
		Recent: []*models.Message{
			{ID: 1, Role: models.RoleUser, Text: "Can my landlord evict me?"},
			{ID: 2, Role: models.RoleAI, Text: "Which city do you live in?"},
		},
	}
	got := relevanceContext(st, 3)
	assert.Equal(t, "Summary of the earlier conversation:\nThe user asked about leases.\n\n"+
		"User: Can my landlord evict me?\n"+lastAssistantMarker+"\nAssistant: Which city do you live in?", got)
}
