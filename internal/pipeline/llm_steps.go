package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/nizami/nizami-backend/internal/audit"
	"github.com/nizami/nizami-backend/internal/language"
	"github.com/nizami/nizami-backend/internal/llm"
	"github.com/nizami/nizami-backend/internal/models"
	"github.com/nizami/nizami-backend/internal/prompts"
)

const lastAssistantMarker = "##LAST ASSISTANT MESSAGE##"

type relevanceVerdict struct {
	Related bool   `json:"related"`
	Reason  string `json:"reason"`
}

type routeVerdict struct {
	Step string `json:"step" enum:"legal_question,translation,other"`
}

func (e *Engine) checkInputRelevance(ctx context.Context, st *State) (outcome, error) {
	if !st.hasHistory() {
		related := false
		return outcome{
			branch: BranchNewTopic,
			apply:  func(st *State) { st.Related = &related },
			output: map[string]any{"related": false, "skipped": true},
		}, nil
	}

	system, err := e.prompts.Render(prompts.CheckInputRelevance, prompts.Vars{
		"context": relevanceContext(st, e.config.ContextMessages),
	})
	if err != nil {
		return outcome{}, err
	}

	var verdict relevanceVerdict
	req := e.config.Models.Relevance.Request("relevance", llm.System(system), llm.User(st.Input))
	if err := e.llm.CompleteStructured(ctx, req, &verdict); err != nil {
		return outcome{}, fmt.Errorf("relevance check: %w", err)
	}

	branch := BranchNewTopic
	if verdict.Related {
		branch = BranchRelated
	}
	related := verdict.Related
	return outcome{
		branch: branch,
		apply:  func(st *State) { st.Related = &related },
		output: map[string]any{"related": verdict.Related, "reason": verdict.Reason},
	}, nil
}

// relevanceContext renders the summary and the recent turns as text, marking
// the assistant's last message
func relevanceContext(st *State, recent int) string {
	history := contextMessages(st, recent)

	lastAssistant := -1
	for i, m := range history {
		if !m.IsUser() {
			lastAssistant = i
		}
	}

	var b strings.Builder
	if st.Summary != "" {
		b.WriteString("Summary of the earlier conversation:\n")
		b.WriteString(st.Summary)
		b.WriteString("\n\n")
	}
	for i, m := range history {
		if i == lastAssistant {
			b.WriteString(lastAssistantMarker)
			b.WriteString("\n")
		}
		if m.IsUser() {
			b.WriteString("User: ")
		} else {
			b.WriteString("Assistant: ")
		}
		b.WriteString(m.Text)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// contextMessages merges the unsummarized tail with the last recent
// messages, without duplicates, in chronological order
func contextMessages(st *State, recent int) []*models.Message {
	tail := st.Recent
	if recent >= 0 && len(tail) > recent {
		tail = tail[len(tail)-recent:]
	}

	seen := make(map[int64]struct{}, len(st.Unsummarized)+len(tail))
	var out []*models.Message
	for _, group := range [][]*models.Message{st.Unsummarized, tail} {
		for _, m := range group {
			if _, ok := seen[m.ID]; ok {
				continue
			}
			seen[m.ID] = struct{}{}
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (e *Engine) router(ctx context.Context, st *State) (outcome, error) {
	system, err := e.prompts.Render(prompts.Router, nil)
	if err != nil {
		return outcome{}, err
	}

	var verdict routeVerdict
	req := e.config.Models.Router.Request("router", llm.System(system), llm.User(st.Input))
	if err := e.llm.CompleteStructured(ctx, req, &verdict); err != nil {
		return outcome{}, fmt.Errorf("router: %w", err)
	}

	decision := Decision(verdict.Step)
	if !decision.Valid() {
		e.logger.WithField("step", verdict.Step).Warn("Router returned an unknown category")
		decision = DecisionLegalQuestion
	}
	routerDecisions.WithLabelValues(string(decision)).Inc()

	return outcome{
		branch: Branch(decision),
		apply:  func(st *State) { st.Decision = decision },
		output: map[string]any{"decision": decision},
	}, nil
}

func (e *Engine) translateUserInput(ctx context.Context, st *State) (outcome, error) {
	target := language.Other(st.Message.Language)
	translated, err := e.translate(ctx, prompts.TranslateQuestion, st.Input, target)
	if err != nil {
		return outcome{}, err
	}
	return outcome{
		apply:  func(st *State) { st.InputTranslation = &translated },
		output: map[string]any{"to_language": target, "translation": translated},
	}, nil
}

func (e *Engine) translate(ctx context.Context, prompt, text, target string) (string, error) {
	system, err := e.prompts.Render(prompt, prompts.Vars{"to_language": language.Name(target)})
	if err != nil {
		return "", err
	}
	req := e.config.Models.Translation.Request("translation", llm.System(system), llm.User(text))
	out, err := e.llm.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("translation: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func (e *Engine) rephraseUserInput(ctx context.Context, st *State) (outcome, error) {
	// A retried turn keeps the query its first attempt stored
	if !st.Created && st.Message.Query() != st.Message.Text {
		query := st.Message.Query()
		return outcome{
			apply:  func(st *State) { st.Query = query },
			output: map[string]any{"query": query, "rephrased": false, "stored": true},
		}, nil
	}

	var (
		system string
		err    error
	)
	switch {
	case st.Summary != "":
		system, err = e.prompts.Render(prompts.RephraseWithSummary, prompts.Vars{"summary": st.Summary})
	default:
		previous := previousQueries(st.Recent)
		if len(previous) == 0 {
			query := st.Input
			return outcome{
				apply:  func(st *State) { st.Query = query },
				output: map[string]any{"query": query, "rephrased": false},
			}, nil
		}
		system, err = e.prompts.Render(prompts.RephraseWithHistory, prompts.Vars{
			"context": strings.Join(previous, "\n"),
		})
	}
	if err != nil {
		return outcome{}, err
	}

	req := e.config.Models.Rephrase.Request("rephrase", llm.System(system), llm.User(st.Input))
	query, err := e.llm.Complete(ctx, req)
	if err != nil {
		return outcome{}, fmt.Errorf("rephrase: %w", err)
	}
	query = strings.TrimSpace(query)
	if query == "" {
		query = st.Input
	}

	if err := e.messages.SetUsedQuery(ctx, st.Message.ID, query); err != nil {
		return outcome{}, fmt.Errorf("failed to store used query: %w", err)
	}
	return outcome{
		apply:  func(st *State) { st.Query = query },
		output: map[string]any{"query": query, "rephrased": true},
	}, nil
}

func previousQueries(history []*models.Message) []string {
	var out []string
	for _, m := range history {
		if m.IsUser() {
			out = append(out, m.Query())
		}
	}
	return out
}

func (e *Engine) answerLegalQuestion(ctx context.Context, st *State) (outcome, error) {
	query := st.Query
	if query == "" {
		query = st.Input
	}

	documents, err := e.candidates.Resolve(ctx, query)
	if err != nil {
		return outcome{}, fmt.Errorf("failed to resolve candidate documents: %w", err)
	}

	chunks, err := e.retriever.Retrieve(ctx, query, documents, e.config.K)
	if err != nil {
		return outcome{}, fmt.Errorf("failed to retrieve context: %w", err)
	}
	if st.InputTranslation != nil && *st.InputTranslation != "" {
		translated, err := e.retriever.Retrieve(ctx, *st.InputTranslation, documents, e.config.K)
		if err != nil {
			return outcome{}, fmt.Errorf("failed to retrieve translated context: %w", err)
		}
		chunks = append(chunks, translated...)
	}

	responseLanguage := language.DetermineResponseLanguage(st.Message.Text)
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	system, err := e.prompts.Render(prompts.LegalAdvice, prompts.Vars{
		"language": language.Name(responseLanguage),
		"context":  strings.Join(texts, "\n\n"),
	})
	if err != nil {
		return outcome{}, err
	}

	messages := []llm.Message{llm.System(system)}
	if st.Summary != "" {
		messages = append(messages, llm.System("Summary of the conversation so far:\n"+st.Summary))
	}
	for _, m := range contextMessages(st, e.config.ContextMessages) {
		if m.IsUser() {
			messages = append(messages, llm.User(m.Text))
		} else {
			messages = append(messages, llm.Assistant(m.Text))
		}
	}
	messages = append(messages, llm.User(query))

	req := e.config.Models.LegalAnswer.Request("legal_answer", messages...)
	raw, err := e.llm.Complete(ctx, req)
	if err != nil {
		return outcome{}, fmt.Errorf("legal answer: %w", err)
	}

	if err := e.exchanges.Write(ctx, st.Message.ID, audit.Exchange{
		Request:         req,
		Response:        raw,
		SourceDocuments: documents,
	}); err != nil {
		e.logger.WithError(err).WithField("message_id", st.Message.ID).Warn("Failed to write answer exchange")
	}

	return outcome{
		apply: func(st *State) {
			st.CandidateDocuments = documents
			st.SourceChunks = chunks
			st.RawResponse = &raw
			st.ResponseLanguage = responseLanguage
		},
		output: map[string]any{
			"candidate_documents": documents,
			"chunk_count":         len(chunks),
			"answer_language":     responseLanguage,
		},
	}, nil
}

// translatePreviousMessage translates the latest message before this turn.
// With no earlier message the user's own input is translated.
func (e *Engine) translatePreviousMessage(ctx context.Context, st *State) (outcome, error) {
	text, lang := st.Input, st.Message.Language
	var source *int64
	if prev := st.previous(); prev != nil {
		text, lang = prev.Text, prev.Language
		id := prev.ID
		source = &id
	}

	target := language.Other(lang)
	translated, err := e.translate(ctx, prompts.TranslatePrevious, text, target)
	if err != nil {
		return outcome{}, err
	}
	if translated == "" {
		return outcome{}, llm.ErrEmptyResponse
	}
	return outcome{
		apply:  func(st *State) { st.Translation = &translated },
		output: map[string]any{"source_message_id": source, "to_language": target},
	}, nil
}
