package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nizami/nizami-backend/internal/llm"
	"github.com/nizami/nizami-backend/internal/llm/llmtest"
	"github.com/nizami/nizami-backend/internal/models"
	"github.com/nizami/nizami-backend/internal/prompts"
	"github.com/nizami/nizami-backend/internal/repository/memory"
)

type fixture struct {
	store  *memory.Store
	fake   *llmtest.Fake
	s      *Summarizer
	chatID int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger, _ := test.NewNullLogger()
	registry, err := prompts.NewRegistry(logger)
	require.NoError(t, err)

	store := memory.NewStore()
	chat := &models.Conversation{Title: "labor"}
	require.NoError(t, store.Conversations().Create(context.Background(), chat))

	fake := llmtest.NewFake()
	s := NewSummarizer(store.Conversations(), store.Messages(), fake, registry,
		llm.ModelOptions{Name: "gpt-4o-mini", ReasoningEffort: llm.EffortLow}, logger)
	return &fixture{store: store, fake: fake, s: s, chatID: chat.ID}
}

func (f *fixture) add(t *testing.T, role models.Role, text string) *models.Message {
	t.Helper()
	m := &models.Message{ConversationID: f.chatID, UUID: uuid.New(), Role: role, Text: text, Language: "en"}
	require.NoError(t, f.store.Messages().Create(context.Background(), m))
	return m
}

func (f *fixture) watermark(t *testing.T) int64 {
	t.Helper()
	c, err := f.store.Conversations().Get(context.Background(), f.chatID)
	require.NoError(t, err)
	return c.Watermark()
}

func TestEnsureSummaryEmptyConversation(t *testing.T) {
	f := newFixture(t)

	summary, err := f.s.EnsureSummary(context.Background(), f.chatID, 0)
	require.NoError(t, err)
	assert.Empty(t, summary)
	assert.Empty(t, f.fake.Calls())
	assert.Zero(t, f.watermark(t))
}

func TestEnsureSummaryCreatesOnce(t *testing.T) {
	f := newFixture(t)
	f.add(t, models.RoleUser, "Can my employer cut my salary?")
	last := f.add(t, models.RoleAI, "Under Article 74 ...")
	f.fake.On(prompts.SummaryInitial, "  Topic: salary reduction  ")

	summary, err := f.s.EnsureSummary(context.Background(), f.chatID, 0)
	require.NoError(t, err)
	assert.Equal(t, "Topic: salary reduction", summary)
	assert.Equal(t, last.ID, f.watermark(t))

	calls := f.fake.CallsFor(prompts.SummaryInitial)
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Messages[0].Content, "User: Can my employer cut my salary?\n\nAssistant: Under Article 74 ...")
	assert.Equal(t, "Please create the summary now.", calls[0].Messages[1].Content)
	assert.Equal(t, llm.EffortLow, calls[0].ReasoningEffort)

	summary, err = f.s.EnsureSummary(context.Background(), f.chatID, 0)
	require.NoError(t, err)
	assert.Equal(t, "Topic: salary reduction", summary)
	assert.Len(t, f.fake.Calls(), 1)
}

func TestAppendToSummary(t *testing.T) {
	f := newFixture(t)
	f.add(t, models.RoleUser, "first question")
	f.add(t, models.RoleAI, "first answer")
	f.fake.On(prompts.SummaryInitial, "summary v1")
	f.fake.On(prompts.SummaryUpdate, "summary v2")

	_, err := f.s.EnsureSummary(context.Background(), f.chatID, 0)
	require.NoError(t, err)

	q := f.add(t, models.RoleUser, "second question")
	a := f.add(t, models.RoleAI, "second answer")

	summary, err := f.s.AppendToSummary(context.Background(), f.chatID, []int64{q.ID, a.ID})
	require.NoError(t, err)
	assert.Equal(t, "summary v2", summary)
	assert.Equal(t, a.ID, f.watermark(t))

	calls := f.fake.CallsFor(prompts.SummaryUpdate)
	require.Len(t, calls, 1)
	system := calls[0].Messages[0].Content
	assert.Contains(t, system, "summary v1")
	assert.Contains(t, system, "User: second question\n\nAssistant: second answer")
	assert.NotContains(t, system, "first question")

	summary, err = f.s.AppendToSummary(context.Background(), f.chatID, []int64{q.ID, a.ID})
	require.NoError(t, err)
	assert.Equal(t, "summary v2", summary)
	assert.Len(t, f.fake.CallsFor(prompts.SummaryUpdate), 1)
}

func TestAppendWithoutSummaryStartsOne(t *testing.T) {
	f := newFixture(t)
	q := f.add(t, models.RoleUser, "hello")
	a := f.add(t, models.RoleAI, "hi")
	f.fake.On(prompts.SummaryInitial, "fresh")

	summary, err := f.s.AppendToSummary(context.Background(), f.chatID, []int64{a.ID, q.ID})
	require.NoError(t, err)
	assert.Equal(t, "fresh", summary)
	assert.Equal(t, a.ID, f.watermark(t))
	assert.Empty(t, f.fake.CallsFor(prompts.SummaryUpdate))
}

func TestSummaryCoversWholeHistory(t *testing.T) {
	tests := []struct {
		name string
		run  func(t *testing.T, f *fixture) (purpose string, watermark int64)
		want []string
		skip []string
	}{
		{
			name: "lazy summary stops before the current message",
			run: func(t *testing.T, f *fixture) (string, int64) {
				f.add(t, models.RoleUser, "earlier question")
				a := f.add(t, models.RoleAI, "earlier answer")
				current := f.add(t, models.RoleUser, "current question")

				_, err := f.s.EnsureSummary(context.Background(), f.chatID, current.ID)
				require.NoError(t, err)
				return prompts.SummaryInitial, a.ID
			},
			want: []string{"earlier question", "earlier answer"},
			skip: []string{"current question"},
		},
		{
			name: "first append folds earlier unsummarized turns",
			run: func(t *testing.T, f *fixture) (string, int64) {
				f.add(t, models.RoleUser, "earlier question")
				f.add(t, models.RoleAI, "earlier answer")
				q := f.add(t, models.RoleUser, "asdfkjasdfkjasdfkjasd")
				a := f.add(t, models.RoleAI, "Please rephrase your question.")

				_, err := f.s.AppendToSummary(context.Background(), f.chatID, []int64{q.ID, a.ID})
				require.NoError(t, err)
				return prompts.SummaryInitial, a.ID
			},
			want: []string{"earlier question", "earlier answer", "asdfkjasdfkjasdfkjasd", "Please rephrase your question."},
		},
		{
			name: "append after a failed append folds the missed pair",
			run: func(t *testing.T, f *fixture) (string, int64) {
				f.add(t, models.RoleUser, "first question")
				f.add(t, models.RoleAI, "first answer")
				_, err := f.s.EnsureSummary(context.Background(), f.chatID, 0)
				require.NoError(t, err)

				q2 := f.add(t, models.RoleUser, "missed question")
				a2 := f.add(t, models.RoleAI, "missed answer")
				_, err = f.s.AppendToSummary(context.Background(), f.chatID, []int64{q2.ID, a2.ID})
				require.Error(t, err)

				q3 := f.add(t, models.RoleUser, "third question")
				a3 := f.add(t, models.RoleAI, "third answer")
				_, err = f.s.AppendToSummary(context.Background(), f.chatID, []int64{q3.ID, a3.ID})
				require.NoError(t, err)
				return prompts.SummaryUpdate, a3.ID
			},
			want: []string{"missed question", "missed answer", "third question", "third answer"},
			skip: []string{"first question"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.fake.On(prompts.SummaryInitial, "v1")
			f.fake.Fail(prompts.SummaryUpdate, errors.New("timeout"))
			f.fake.On(prompts.SummaryUpdate, "v2")

			purpose, watermark := tt.run(t, f)
			assert.Equal(t, watermark, f.watermark(t))

			calls := f.fake.CallsFor(purpose)
			require.NotEmpty(t, calls)
			transcript := calls[len(calls)-1].Messages[0].Content
			for _, text := range tt.want {
				assert.Contains(t, transcript, text)
			}
			for _, text := range tt.skip {
				assert.NotContains(t, transcript, text)
			}
		})
	}
}

func TestBefore(t *testing.T) {
	messages := []*models.Message{{ID: 1}, {ID: 2}, {ID: 3}}
	assert.Len(t, Before(messages, 3), 2)
	assert.Len(t, Before(messages, 0), 3)
	assert.Empty(t, Before(messages, 1))
}

func TestAppendFailureKeepsWatermark(t *testing.T) {
	f := newFixture(t)
	f.add(t, models.RoleUser, "q")
	f.fake.On(prompts.SummaryInitial, "v1")
	_, err := f.s.EnsureSummary(context.Background(), f.chatID, 0)
	require.NoError(t, err)
	before := f.watermark(t)

	m := f.add(t, models.RoleAI, "a")
	f.fake.Fail(prompts.SummaryUpdate, errors.New("timeout"))

	_, err = f.s.AppendToSummary(context.Background(), f.chatID, []int64{m.ID})
	assert.Error(t, err)
	assert.Equal(t, before, f.watermark(t))
}

func TestConcurrentAppendsAreMonotonicAndFoldOnce(t *testing.T) {
	f := newFixture(t)
	f.fake.Default(func(req llm.CompletionRequest) (string, error) {
		return "running summary", nil
	})

	var ids []int64
	for i := 0; i < 40; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAI
		}
		ids = append(ids, f.add(t, role, fmt.Sprintf("[m%03d]", i)).ID)
	}

	var wg sync.WaitGroup
	for i := 0; i < len(ids); i += 2 {
		pair := []int64{ids[i], ids[i+1]}
		for r := 0; r < 2; r++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.s.AppendToSummary(context.Background(), f.chatID, pair)
				assert.NoError(t, err)
			}()
		}
	}
	wg.Wait()

	assert.Equal(t, ids[len(ids)-1], f.watermark(t))

	var prompt strings.Builder
	for _, c := range f.fake.Calls() {
		prompt.WriteString(c.Messages[0].Content)
	}
	for i := range ids {
		marker := fmt.Sprintf("[m%03d]", i)
		assert.LessOrEqual(t, strings.Count(prompt.String(), marker), 1, marker)
	}
}

func TestAboveWatermark(t *testing.T) {
	assert.Equal(t, []int64{5, 7}, AboveWatermark([]int64{7, 3, 5, 7, 4}, 4))
	assert.Empty(t, AboveWatermark([]int64{1, 2}, 2))
	assert.Empty(t, AboveWatermark(nil, 0))
}

func TestTranscript(t *testing.T) {
	got := Transcript([]*models.Message{
		{Role: models.RoleUser, Text: "q"},
		{Role: models.RoleAI, Text: "a"},
	})
	assert.Equal(t, "User: q\n\nAssistant: a\n\n", got)
}
