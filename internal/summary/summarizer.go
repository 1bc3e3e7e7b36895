// Package summary maintains the rolling conversation summary. The summary
// covers every message up to the conversation's watermark; appends happen
// under the conversation row lock and re-check the watermark so that no
// message is folded twice.
package summary

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nizami/nizami-backend/internal/llm"
	"github.com/nizami/nizami-backend/internal/models"
	"github.com/nizami/nizami-backend/internal/prompts"
	"github.com/nizami/nizami-backend/internal/repository"
)

// Summarizer creates and extends conversation summaries
type Summarizer struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	client        llm.Client
	prompts       prompts.Renderer
	model         llm.ModelOptions
	logger        logrus.FieldLogger
}

// NewSummarizer creates a summarizer
func NewSummarizer(
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	client llm.Client,
	renderer prompts.Renderer,
	model llm.ModelOptions,
	logger logrus.FieldLogger,
) *Summarizer {
	return &Summarizer{
		conversations: conversations,
		messages:      messages,
		client:        client,
		prompts:       renderer,
		model:         model,
		logger:        logger,
	}
}

// EnsureSummary returns the conversation summary, creating it from the
// messages with ids below before when none exists yet. before <= 0 means the
// whole history. A conversation without such messages has an empty summary.
func (s *Summarizer) EnsureSummary(ctx context.Context, conversationID, before int64) (string, error) {
	conversation, err := s.conversations.Get(ctx, conversationID)
	if err != nil {
		return "", err
	}
	if conversation.HasSummary() {
		return conversation.Summary, nil
	}

	all, err := s.messages.ListByConversation(ctx, conversationID)
	if err != nil {
		return "", fmt.Errorf("failed to load history: %w", err)
	}
	history := Before(all, before)
	if len(history) == 0 {
		return "", nil
	}

	summary, err := s.initial(ctx, history)
	if err != nil {
		return "", err
	}

	last := history[len(history)-1].ID
	if err := s.conversations.SaveSummary(ctx, conversationID, summary, last); err != nil {
		return "", fmt.Errorf("failed to save summary: %w", err)
	}

	// A concurrent append may have won; return what is stored.
	conversation, err = s.conversations.Get(ctx, conversationID)
	if err != nil {
		return "", err
	}
	s.logger.WithFields(logrus.Fields{
		"chat_id":   conversationID,
		"messages":  len(history),
		"watermark": conversation.Watermark(),
	}).Info("Created conversation summary")
	return conversation.Summary, nil
}

// AppendToSummary folds messageIDs into the summary. Ids at or below the
// watermark are skipped; if none remain the summary is returned unchanged.
// Otherwise every message between the watermark and the highest remaining id
// is folded, including ones an earlier failed append left behind.
func (s *Summarizer) AppendToSummary(ctx context.Context, conversationID int64, messageIDs []int64) (string, error) {
	var result string
	err := s.conversations.LockForSummary(ctx, conversationID, func(ctx context.Context, locked repository.LockedConversation) error {
		conversation := locked.Conversation()
		result = conversation.Summary

		pending := AboveWatermark(messageIDs, conversation.Watermark())
		if len(pending) == 0 {
			s.logger.WithField("chat_id", conversationID).Debug("Nothing new to summarize")
			return nil
		}

		upto := maxID(pending)
		messages, err := locked.MessagesInRange(ctx, conversation.Watermark(), upto)
		if err != nil {
			return fmt.Errorf("failed to load messages: %w", err)
		}
		if len(messages) == 0 {
			return nil
		}

		var summary string
		if conversation.HasSummary() {
			summary, err = s.update(ctx, conversation.Summary, messages)
		} else {
			summary, err = s.initial(ctx, messages)
		}
		if err != nil {
			return err
		}

		if err := locked.SaveSummary(ctx, summary, upto); err != nil {
			return fmt.Errorf("failed to save summary: %w", err)
		}
		result = summary

		s.logger.WithFields(logrus.Fields{
			"chat_id":   conversationID,
			"folded":    len(messages),
			"watermark": upto,
		}).Debug("Updated conversation summary")
		return nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

func (s *Summarizer) initial(ctx context.Context, messages []*models.Message) (string, error) {
	system, err := s.prompts.Render(prompts.SummaryInitial, prompts.Vars{"conversation": Transcript(messages)})
	if err != nil {
		return "", err
	}
	return s.complete(ctx, prompts.SummaryInitial, system, "Please create the summary now.")
}

func (s *Summarizer) update(ctx context.Context, existing string, messages []*models.Message) (string, error) {
	system, err := s.prompts.Render(prompts.SummaryUpdate, prompts.Vars{
		"summary":      existing,
		"conversation": Transcript(messages),
	})
	if err != nil {
		return "", err
	}
	return s.complete(ctx, prompts.SummaryUpdate, system, "Please update the summary now.")
}

func (s *Summarizer) complete(ctx context.Context, purpose, system, instruction string) (string, error) {
	out, err := s.client.Complete(ctx, s.model.Request(purpose, llm.System(system), llm.User(instruction)))
	if err != nil {
		return "", fmt.Errorf("summarization failed: %w", err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", llm.ErrEmptyResponse
	}
	return out, nil
}

// Transcript renders messages as "User: ..." / "Assistant: ..." blocks
func Transcript(messages []*models.Message) string {
	var b strings.Builder
	for _, m := range messages {
		if m.IsUser() {
			b.WriteString("User: ")
		} else {
			b.WriteString("Assistant: ")
		}
		b.WriteString(m.Text)
		b.WriteString("\n\n")
	}
	return b.String()
}

// Before returns the messages with ids below bound; bound <= 0 keeps all
func Before(messages []*models.Message, bound int64) []*models.Message {
	if bound <= 0 {
		return messages
	}
	out := make([]*models.Message, 0, len(messages))
	for _, m := range messages {
		if m.ID < bound {
			out = append(out, m)
		}
	}
	return out
}

// AboveWatermark returns the distinct ids greater than watermark, ascending
func AboveWatermark(ids []int64, watermark int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	var out []int64
	for _, id := range ids {
		if id <= watermark {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func maxID(ids []int64) int64 {
	var m int64
	for _, id := range ids {
		if id > m {
			m = id
		}
	}
	return m
}
