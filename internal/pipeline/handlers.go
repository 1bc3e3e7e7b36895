package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nizami/nizami-backend/internal/gibberish"
	"github.com/nizami/nizami-backend/internal/language"
	"github.com/nizami/nizami-backend/internal/models"
	"github.com/nizami/nizami-backend/internal/repository"
)

func (e *Engine) firstOrCreateMessage(ctx context.Context, st *State) (outcome, error) {
	existing, err := e.messages.GetByUUID(ctx, st.UUID)
	switch {
	case err == nil:
		if existing.ConversationID != st.ChatID {
			return outcome{}, fmt.Errorf("%w: message %s belongs to another chat", ErrInvalidRequest, st.UUID)
		}
		return messageOutcome(existing, false), nil
	case !errors.Is(err, repository.ErrNotFound):
		return outcome{}, fmt.Errorf("failed to look up message: %w", err)
	}

	input := st.Input
	msg := &models.Message{
		ConversationID: st.ChatID,
		UUID:           st.UUID,
		Role:           models.RoleUser,
		Text:           input,
		Language:       language.DetectLanguage(input),
		UsedQuery:      &input,
	}
	if err := e.messages.Create(ctx, msg); err != nil {
		if !errors.Is(err, repository.ErrDuplicate) {
			return outcome{}, fmt.Errorf("failed to create message: %w", err)
		}
		// A concurrent retry created it first
		existing, err := e.messages.GetByUUID(ctx, st.UUID)
		if err != nil {
			return outcome{}, fmt.Errorf("failed to look up message: %w", err)
		}
		return messageOutcome(existing, false), nil
	}
	return messageOutcome(msg, true), nil
}

func messageOutcome(msg *models.Message, created bool) outcome {
	return outcome{
		apply: func(st *State) {
			st.Message = msg
			st.Created = created
		},
		output: map[string]any{"message_id": msg.ID, "created": created, "language": msg.Language},
	}
}

func (e *Engine) validateInputQuality(ctx context.Context, st *State) (outcome, error) {
	result := gibberish.Classify(ctx, st.Input, e.config.Gibberish, e.escalator)

	branch := BranchValid
	if result.IsGibberish() {
		branch = BranchGibberish
	}
	return outcome{
		branch: branch,
		apply:  func(st *State) { st.Classification = &result },
		output: map[string]any{
			"verdict": result.Verdict,
			"score":   result.Score,
			"reasons": result.Reasons,
		},
	}, nil
}

func (e *Engine) handleGibberishInput(ctx context.Context, st *State) (outcome, error) {
	return e.storeCannedReply(ctx, st, e.replies.Gibberish(st.Input))
}

func (e *Engine) handleRelatedInput(ctx context.Context, st *State) (outcome, error) {
	return e.storeCannedReply(ctx, st, e.replies.Related())
}

// storeCannedReply answers with text unless the message was answered already
func (e *Engine) storeCannedReply(ctx context.Context, st *State, text string) (outcome, error) {
	if child, err := e.messages.FirstChild(ctx, st.Message.ID); err == nil {
		return replyOutcome(child, false), nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return outcome{}, fmt.Errorf("failed to look up answer: %w", err)
	}

	reply, err := e.storeReply(ctx, st, &models.Message{
		Text:     text,
		Language: language.DetectLanguage(text),
	})
	if err != nil {
		return outcome{}, err
	}
	return replyOutcome(reply, true), nil
}

func replyOutcome(reply *models.Message, created bool) outcome {
	return outcome{
		apply:  func(st *State) { st.Reply = reply },
		output: map[string]any{"system_message_id": reply.ID, "created": created},
	}
}

// storeReply persists reply as the answer to the turn's user message and
// folds the pair into the summary. A failed summary update is logged; the
// reply stands.
func (e *Engine) storeReply(ctx context.Context, st *State, reply *models.Message) (*models.Message, error) {
	parent := st.Message.ID
	reply.ConversationID = st.Message.ConversationID
	reply.UUID = uuid.New()
	reply.Role = models.RoleAI
	reply.ParentID = &parent

	if err := e.messages.Create(ctx, reply); err != nil {
		return nil, fmt.Errorf("failed to store reply: %w", err)
	}

	if _, err := e.summaries.AppendToSummary(ctx, reply.ConversationID, []int64{parent, reply.ID}); err != nil {
		e.logger.WithError(err).WithFields(logrus.Fields{
			"chat_id":    reply.ConversationID,
			"message_id": reply.ID,
		}).Warn("Failed to update conversation summary")
	}
	return reply, nil
}

func (e *Engine) hasAnswer(ctx context.Context, st *State) (outcome, error) {
	child, err := e.messages.FirstChild(ctx, st.Message.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return outcome{branch: BranchNo, output: map[string]any{"decision": BranchNo}}, nil
	}
	if err != nil {
		return outcome{}, err
	}
	return outcome{
		branch: BranchYes,
		apply:  func(st *State) { st.Existing = child },
		output: map[string]any{"decision": BranchYes, "system_message_id": child.ID},
	}, nil
}

func (e *Engine) returnFirstChild(ctx context.Context, st *State) (outcome, error) {
	child := st.Existing
	if child == nil {
		var err error
		if child, err = e.messages.FirstChild(ctx, st.Message.ID); err != nil {
			return outcome{}, fmt.Errorf("failed to load answer: %w", err)
		}
	}
	return replyOutcome(child, false), nil
}

func (e *Engine) retrieveHistory(ctx context.Context, st *State) (outcome, error) {
	recent, err := e.messages.Recent(ctx, st.ChatID, st.Message.ID, e.config.RecentMessages)
	if err != nil {
		return outcome{}, fmt.Errorf("failed to load recent messages: %w", err)
	}

	conversation, err := e.conversations.Get(ctx, st.ChatID)
	if err != nil {
		return outcome{}, fmt.Errorf("failed to load conversation: %w", err)
	}

	summary := conversation.Summary
	if !conversation.HasSummary() && len(recent) > 0 {
		if summary, err = e.summaries.EnsureSummary(ctx, st.ChatID, st.Message.ID); err != nil {
			return outcome{}, fmt.Errorf("failed to create summary: %w", err)
		}
		if conversation, err = e.conversations.Get(ctx, st.ChatID); err != nil {
			return outcome{}, fmt.Errorf("failed to load conversation: %w", err)
		}
	}

	var unsummarized []*models.Message
	if len(recent) > 0 {
		unsummarized, err = e.messages.After(ctx, st.ChatID, conversation.Watermark(), st.Message.ID)
		if err != nil {
			return outcome{}, fmt.Errorf("failed to load unsummarized messages: %w", err)
		}
	}

	return outcome{
		apply: func(st *State) {
			st.Summary = summary
			st.Recent = recent
			st.Unsummarized = unsummarized
		},
		output: map[string]any{
			"has_summary":        summary != "",
			"history_count":      len(recent),
			"unsummarized_count": len(unsummarized),
			"watermark":          conversation.Watermark(),
		},
	}, nil
}

func (e *Engine) legalQuestionFlow(ctx context.Context, st *State) (outcome, error) {
	input := st.Input
	return outcome{apply: func(st *State) { st.Query = input }}, nil
}

func (e *Engine) extractUsedLanguages(ctx context.Context, st *State) (outcome, error) {
	langs := make([]string, 0, len(st.SourceChunks))
	for _, c := range st.SourceChunks {
		langs = append(langs, c.Language)
	}
	used := language.Distinct(langs)
	return outcome{
		apply:  func(st *State) { st.UsedLanguages = used },
		output: map[string]any{"used_languages": used},
	}, nil
}

func (e *Engine) decodeResponseJSON(ctx context.Context, st *State) (outcome, error) {
	var raw string
	if st.RawResponse != nil {
		raw = *st.RawResponse
	}
	answer := DecodeAnswer(raw)
	if answer.Answer == "" {
		e.logger.WithField("chat_id", st.ChatID).Warn("Model returned an empty answer")
		answer = Answer{Answer: e.replies.NoAnswer(st.ResponseLanguage)}
	}
	return outcome{
		apply:  func(st *State) { st.Response = &answer },
		output: map[string]any{"response": answer},
	}, nil
}

func (e *Engine) calculateDisclaimer(ctx context.Context, st *State) (outcome, error) {
	if st.Response == nil {
		return outcome{}, errors.New("no decoded response")
	}
	show := language.ShouldShowDisclaimer(language.DisclaimerInput{
		IsContextUsed:    st.Response.IsContextUsed,
		IsAnswer:         st.Response.IsAnswer,
		ContextLanguages: st.UsedLanguages,
		QuestionLanguage: st.Message.Language,
		ResponseLanguage: st.ResponseLanguage,
	})
	return outcome{
		apply: func(st *State) { st.ShowDisclaimer = show },
		output: map[string]any{
			"answer_language":             st.ResponseLanguage,
			"show_translation_disclaimer": show,
		},
	}, nil
}

func (e *Engine) storeSystemMessage(ctx context.Context, st *State) (outcome, error) {
	if st.Response == nil {
		return outcome{}, ErrNoAnswer
	}
	questionLanguage := st.Message.Language
	reply, err := e.storeReply(ctx, st, &models.Message{
		Text:                          st.Response.Answer,
		Language:                      st.ResponseLanguage,
		ShowTranslationDisclaimer:     st.ShowDisclaimer,
		TranslationDisclaimerLanguage: &questionLanguage,
	})
	if err != nil {
		return outcome{}, err
	}
	return replyOutcome(reply, true), nil
}

func (e *Engine) storeTranslationMessage(ctx context.Context, st *State) (outcome, error) {
	if st.Translation == nil {
		return outcome{}, ErrNoAnswer
	}
	text := *st.Translation
	reply, err := e.storeReply(ctx, st, &models.Message{
		Text:     text,
		Language: language.DetectLanguage(text),
	})
	if err != nil {
		return outcome{}, err
	}
	return replyOutcome(reply, true), nil
}
