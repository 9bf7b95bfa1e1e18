package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/duel/internal/domain/model"
	"github.com/okian/duel/pkg/logger"
)

// collection is the persisted state of one ranking context.
type collection struct {
	order      []string // persisted ids in creation order
	board      *index
	challenger []string // provisional ids in catalog order
}

type catalogEntry struct {
	contextID string
	display   model.Display
}

// MemoryStore is an in-memory Store. It is safe for concurrent use.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*collection
	records     map[string]*Record
	catalog     map[string]catalogEntry
	promoted    map[string]string // provisional id -> persisted id

	newID  func() string
	logger logger.Logger
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		collections: make(map[string]*collection),
		records:     make(map[string]*Record),
		catalog:     make(map[string]catalogEntry),
		promoted:    make(map[string]string),
		newID:       func() string { return uuid.New().String() },
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) collectionFor(contextID string) *collection {
	c, ok := s.collections[contextID]
	if !ok {
		c = &collection{board: newIndex()}
		s.collections[contextID] = c
	}
	return c
}

// AddRecord persists an established candidate directly. An empty c.ID is
// replaced with a generated one. It returns the persisted id.
func (s *MemoryStore) AddRecord(_ context.Context, contextID string, c model.Candidate) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := c.ID
	if id == "" {
		id = s.newID()
	}
	if _, dup := s.records[id]; dup {
		return "", fmt.Errorf("%w: %s", ErrDuplicateRecord, id)
	}
	s.put(&Record{ID: id, ContextID: contextID, Display: c.Display, Rating: c.Rating})
	return id, nil
}

// AddChallenger offers an unpersisted candidate to future sessions of
// contextID and returns its provisional id.
func (s *MemoryStore) AddChallenger(_ context.Context, contextID string, d model.Display) (string, error) {
	if strings.TrimSpace(d.Name) == "" {
		return "", fmt.Errorf("%w: challenger without name", ErrInvalidRecord)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	s.catalog[id] = catalogEntry{contextID: contextID, display: d}
	col := s.collectionFor(contextID)
	col.challenger = append(col.challenger, id)
	return id, nil
}

func (s *MemoryStore) put(r *Record) {
	col := s.collectionFor(r.ContextID)
	col.order = append(col.order, r.ID)
	col.board.set(r.ID, r.Rating)
	s.records[r.ID] = r
}

// LoadEstablished returns the persisted candidates of contextID in creation
// order. An unknown context has none.
func (s *MemoryStore) LoadEstablished(_ context.Context, contextID string) ([]model.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, ok := s.collections[contextID]
	if !ok {
		return nil, nil
	}
	out := make([]model.Candidate, 0, len(col.order))
	for _, id := range col.order {
		r := s.records[id]
		out = append(out, model.Candidate{ID: r.ID, Origin: model.Established, Rating: r.Rating, Display: r.Display})
	}
	return out, nil
}

// LoadChallengers returns unpromoted catalog entries of contextID in catalog
// order. Names are compared case-insensitively.
func (s *MemoryStore) LoadChallengers(_ context.Context, contextID string, limit int, excludeNames []string) ([]model.Candidate, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	excluded := make(map[string]struct{}, len(excludeNames))
	for _, n := range excludeNames {
		excluded[normalizeName(n)] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	col, ok := s.collections[contextID]
	if !ok {
		return nil, nil
	}
	var out []model.Candidate
	for _, id := range col.challenger {
		if limit > 0 && len(out) >= limit {
			break
		}
		if _, done := s.promoted[id]; done {
			continue
		}
		e := s.catalog[id]
		if _, skip := excluded[normalizeName(e.display.Name)]; skip {
			continue
		}
		out = append(out, model.Candidate{ID: id, Origin: model.Challenger, Display: e.display})
	}
	return out, nil
}

func normalizeName(n string) string {
	return strings.ToLower(strings.TrimSpace(n))
}

// CreatePersistedRecord promotes a catalog challenger into its collection.
// Repeated calls for the same challenger return the first persisted id.
func (s *MemoryStore) CreatePersistedRecord(ctx context.Context, c model.Candidate, rating float64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if pid, ok := s.promoted[c.ID]; ok {
		return pid, nil
	}
	e, ok := s.catalog[c.ID]
	if !ok {
		return "", fmt.Errorf("%w: challenger %s", ErrNotFound, c.ID)
	}
	display := e.display
	if c.Display != (model.Display{}) {
		display = c.Display
	}
	r := &Record{ID: s.newID(), ContextID: e.contextID, Display: display, Rating: rating, SourceID: c.ID}
	s.put(r)
	s.promoted[c.ID] = r.ID

	s.logger.Debug(ctx, "challenger persisted",
		logger.String("challenger", c.ID),
		logger.String("record", r.ID),
		logger.String("context", e.contextID),
	)
	return r.ID, nil
}

// ApplyRatingBatch sets every rating in updates or none of them. Setting is
// absolute, so applying the same batch twice leaves the same state.
func (s *MemoryStore) ApplyRatingBatch(ctx context.Context, updates []model.RatingUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range updates {
		if _, ok := s.records[u.PersistedID]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownRecord, u.PersistedID)
		}
	}
	for _, u := range updates {
		r := s.records[u.PersistedID]
		r.Rating = u.FinalRating
		s.collections[r.ContextID].board.set(r.ID, r.Rating)
	}
	return nil
}

// TopN returns the top n entries of contextID.
func (s *MemoryStore) TopN(_ context.Context, contextID string, n int) ([]Entry, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, ok := s.collections[contextID]
	if !ok {
		return []Entry{}, nil
	}
	ids := col.board.top(n)
	out := make([]Entry, len(ids))
	for i, id := range ids {
		r := s.records[id]
		out[i] = Entry{Rank: i + 1, ID: id, Name: r.Display.Name, Rating: r.Rating}
	}
	return out, nil
}

// Rank returns the leaderboard row of record id.
func (s *MemoryStore) Rank(_ context.Context, id string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	pos, ok := s.collections[r.ContextID].board.rank(id)
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return Entry{Rank: pos, ID: id, Name: r.Display.Name, Rating: r.Rating}, nil
}

// Record returns a copy of record id.
func (s *MemoryStore) Record(_ context.Context, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return *r, nil
}

// Count returns the number of persisted records in contextID.
func (s *MemoryStore) Count(_ context.Context, contextID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, ok := s.collections[contextID]
	if !ok {
		return 0
	}
	return col.board.count()
}
