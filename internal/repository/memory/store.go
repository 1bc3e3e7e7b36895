// Package memory implements the repository interfaces in process memory.
// It backs tests and the CLI dry-run mode.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nizami/nizami-backend/internal/models"
	"github.com/nizami/nizami-backend/internal/repository"
)

// Store holds every table. Repositories share one Store so that ids are
// globally ordered like a sequence.
type Store struct {
	mu            sync.RWMutex
	nextID        int64
	conversations map[int64]*models.Conversation
	messages      map[int64]*models.Message
	documents     map[int64]*docRow
	stepLogs      []*models.StepLog
	prompts       []*models.Prompt

	// per-conversation summary locks
	lockMu sync.Mutex
	locks  map[int64]*sync.Mutex
}

type docRow struct {
	doc       models.ReferenceDocument
	embedding []float32
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		conversations: make(map[int64]*models.Conversation),
		messages:      make(map[int64]*models.Message),
		documents:     make(map[int64]*docRow),
		locks:         make(map[int64]*sync.Mutex),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// Conversations returns the conversation repository
func (s *Store) Conversations() repository.ConversationRepository { return &conversationRepo{s} }

// Messages returns the message repository
func (s *Store) Messages() repository.MessageRepository { return &messageRepo{s} }

// Documents returns the reference document repository
func (s *Store) Documents() repository.ReferenceDocumentRepository { return &documentRepo{s} }

// StepLogs returns the step telemetry repository
func (s *Store) StepLogs() repository.StepLogRepository { return &stepLogRepo{s} }

// Prompts returns the prompt override repository
func (s *Store) Prompts() repository.PromptRepository { return &promptRepo{s} }

// AddDocument inserts a reference document with its description embedding
func (s *Store) AddDocument(doc models.ReferenceDocument, embedding []float32) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc.ID == 0 {
		doc.ID = s.id()
	}
	now := time.Now()
	doc.CreatedAt, doc.UpdatedAt = now, now
	s.documents[doc.ID] = &docRow{doc: doc, embedding: embedding}
	return doc.ID
}

// AddPrompt inserts a prompt override
func (s *Store) AddPrompt(p models.Prompt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.id()
	p.CreatedAt = time.Now()
	s.prompts = append(s.prompts, &p)
}

func copyMessage(m *models.Message) *models.Message {
	c := *m
	return &c
}

func copyConversation(c *models.Conversation) *models.Conversation {
	out := *c
	if c.SummaryLastMessageID != nil {
		id := *c.SummaryLastMessageID
		out.SummaryLastMessageID = &id
	}
	return &out
}

type conversationRepo struct{ s *Store }

func (r *conversationRepo) Create(ctx context.Context, c *models.Conversation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c.ID = r.s.id()
	c.CreatedAt = time.Now()
	r.s.conversations[c.ID] = copyConversation(c)
	return nil
}

func (r *conversationRepo) Get(ctx context.Context, id int64) (*models.Conversation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.conversations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyConversation(c), nil
}

func (r *conversationRepo) SaveSummary(ctx context.Context, id int64, summary string, lastMessageID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.saveSummaryLocked(id, summary, lastMessageID)
}

func (s *Store) saveSummaryLocked(id int64, summary string, lastMessageID int64) error {
	c, ok := s.conversations[id]
	if !ok {
		return repository.ErrNotFound
	}
	if c.SummaryLastMessageID != nil && *c.SummaryLastMessageID > lastMessageID {
		return nil
	}
	c.Summary = summary
	c.SummaryLastMessageID = &lastMessageID
	return nil
}

func (r *conversationRepo) LockForSummary(ctx context.Context, id int64, fn func(ctx context.Context, locked repository.LockedConversation) error) error {
	r.s.lockMu.Lock()
	l, ok := r.s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		r.s.locks[id] = l
	}
	r.s.lockMu.Unlock()

	l.Lock()
	defer l.Unlock()

	c, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	return fn(ctx, &lockedConversation{s: r.s, c: c})
}

type lockedConversation struct {
	s *Store
	c *models.Conversation
}

func (l *lockedConversation) Conversation() *models.Conversation { return l.c }

func (l *lockedConversation) MessagesInRange(ctx context.Context, afterID, uptoID int64) ([]*models.Message, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()
	var out []*models.Message
	for id, m := range l.s.messages {
		if m.ConversationID == l.c.ID && id > afterID && id <= uptoID {
			out = append(out, copyMessage(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (l *lockedConversation) SaveSummary(ctx context.Context, summary string, lastMessageID int64) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	if err := l.s.saveSummaryLocked(l.c.ID, summary, lastMessageID); err != nil {
		return err
	}
	l.c = copyConversation(l.s.conversations[l.c.ID])
	return nil
}

type messageRepo struct{ s *Store }

func (r *messageRepo) Create(ctx context.Context, m *models.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.conversations[m.ConversationID]; !ok {
		return repository.ErrNotFound
	}
	if m.UUID == uuid.Nil {
		m.UUID = uuid.New()
	}
	for _, existing := range r.s.messages {
		if existing.UUID == m.UUID {
			return repository.ErrDuplicate
		}
	}
	m.ID = r.s.id()
	m.CreatedAt = time.Now()
	r.s.messages[m.ID] = copyMessage(m)
	return nil
}

func (r *messageRepo) Get(ctx context.Context, id int64) (*models.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.messages[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyMessage(m), nil
}

func (r *messageRepo) GetByUUID(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, m := range r.s.messages {
		if m.UUID == id {
			return copyMessage(m), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *messageRepo) FirstChild(ctx context.Context, parentID int64) (*models.Message, error) {
	children := r.filter(func(m *models.Message) bool {
		return m.ParentID != nil && *m.ParentID == parentID
	})
	if len(children) == 0 {
		return nil, repository.ErrNotFound
	}
	return children[0], nil
}

func (r *messageRepo) ListByConversation(ctx context.Context, conversationID int64) ([]*models.Message, error) {
	return r.filter(func(m *models.Message) bool { return m.ConversationID == conversationID }), nil
}

func (r *messageRepo) Recent(ctx context.Context, conversationID, excludeID int64, limit int) ([]*models.Message, error) {
	all := r.filter(func(m *models.Message) bool {
		return m.ConversationID == conversationID && m.ID != excludeID
	})
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (r *messageRepo) After(ctx context.Context, conversationID, afterID, excludeID int64) ([]*models.Message, error) {
	return r.filter(func(m *models.Message) bool {
		return m.ConversationID == conversationID && m.ID > afterID && m.ID != excludeID
	}), nil
}

func (r *messageRepo) SetUsedQuery(ctx context.Context, id int64, query string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.messages[id]
	if !ok {
		return repository.ErrNotFound
	}
	m.UsedQuery = &query
	return nil
}

// filter returns matching messages in id order
func (r *messageRepo) filter(keep func(m *models.Message) bool) []*models.Message {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*models.Message
	for _, m := range r.s.messages {
		if keep(m) {
			out = append(out, copyMessage(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type documentRepo struct{ s *Store }

func (r *documentRepo) Get(ctx context.Context, id int64) (*models.ReferenceDocument, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	row, ok := r.s.documents[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	doc := row.doc
	return &doc, nil
}

func (r *documentRepo) List(ctx context.Context, limit, offset int) ([]*models.ReferenceDocument, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*models.ReferenceDocument
	for _, row := range r.s.documents {
		doc := row.doc
		out = append(out, &doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *documentRepo) NearestByDescription(ctx context.Context, embedding []float32, limit int) ([]int64, error) {
	r.s.mu.RLock()
	type ranked struct {
		id   int64
		dist float64
	}
	var rows []ranked
	for id, row := range r.s.documents {
		if row.embedding == nil {
			continue
		}
		rows = append(rows, ranked{id: id, dist: CosineDistance(embedding, row.embedding)})
	}
	r.s.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].dist == rows[j].dist {
			return rows[i].id < rows[j].id
		}
		return rows[i].dist < rows[j].dist
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.id
	}
	return ids, nil
}

func (r *documentRepo) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.documents[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.documents, id)
	return nil
}

type stepLogRepo struct{ s *Store }

func (r *stepLogRepo) Create(ctx context.Context, entry *models.StepLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entry.ID = r.s.id()
	entry.CreatedAt = time.Now()
	c := *entry
	c.Input = append(json.RawMessage(nil), entry.Input...)
	c.Output = append(json.RawMessage(nil), entry.Output...)
	r.s.stepLogs = append(r.s.stepLogs, &c)
	return nil
}

func (r *stepLogRepo) ListByMessage(ctx context.Context, messageID int64) ([]*models.StepLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*models.StepLog
	for _, e := range r.s.stepLogs {
		if e.MessageID != nil && *e.MessageID == messageID {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

type promptRepo struct{ s *Store }

func (r *promptRepo) List(ctx context.Context) ([]*models.Prompt, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*models.Prompt, 0, len(r.s.prompts))
	for _, p := range r.s.prompts {
		c := *p
		out = append(out, &c)
	}
	return out, nil
}
