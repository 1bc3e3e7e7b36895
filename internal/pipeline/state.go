package pipeline

import (
	"github.com/google/uuid"

	"github.com/nizami/nizami-backend/internal/gibberish"
	"github.com/nizami/nizami-backend/internal/models"
)

// State accumulates the results of a turn. A nil pointer or empty slice
// means the producing step did not run or produced nothing.
type State struct {
	ChatID int64
	UUID   uuid.UUID
	Input  string

	// Message is the user message of this turn
	Message *models.Message
	Created bool

	Classification *gibberish.Result
	// Existing is the answer found by has_answer
	Existing *models.Message

	Summary      string
	Recent       []*models.Message
	Unsummarized []*models.Message

	Related  *bool
	Decision Decision

	Query            string
	InputTranslation *string

	CandidateDocuments []int64
	SourceChunks       []models.Chunk
	RawResponse        *string
	ResponseLanguage   string

	UsedLanguages  []string
	Response       *Answer
	ShowDisclaimer bool

	Translation *string

	// Reply is the assistant message returned to the caller
	Reply *models.Message
}

// Answer is the JSON contract of the legal answer model
type Answer struct {
	Answer        string `json:"answer"`
	IsAnswer      bool   `json:"is_answer"`
	IsContextUsed bool   `json:"is_context_used"`
}

func (s *State) messageID() *int64 {
	if s.Message == nil {
		return nil
	}
	id := s.Message.ID
	return &id
}

// previous returns the latest message before this turn's user message
func (s *State) previous() *models.Message {
	if len(s.Recent) == 0 {
		return nil
	}
	return s.Recent[len(s.Recent)-1]
}

func (s *State) hasHistory() bool {
	return s.Summary != "" || len(s.Recent) > 0
}
