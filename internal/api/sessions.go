package api

import (
	"fmt"
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/kisernl/flashcard-app/internal/apperr"
	"github.com/kisernl/flashcard-app/internal/study"
)

// sessionEntry pairs a running study session with its own lock. Session
// state transitions are serialized per session; distinct sessions do not
// contend.
type sessionEntry struct {
	mu      sync.Mutex
	id      string
	deckID  string
	session *study.Session
}

// SessionRegistry holds active study sessions keyed by id. Sessions live in
// memory only; a restart of the server discards them, while the missed flags
// they recorded survive in the store.
type SessionRegistry struct {
	mu      sync.Mutex
	entries map[string]*sessionEntry
	newID   func() (string, error)
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		entries: make(map[string]*sessionEntry),
		newID:   func() (string, error) { return gonanoid.New() },
	}
}

// Add registers a session and returns its generated id.
func (r *SessionRegistry) Add(deckID string, s *study.Session) (string, error) {
	id, err := r.newID()
	if err != nil {
		return "", fmt.Errorf("api: session id: %w", err)
	}
	r.mu.Lock()
	r.entries[id] = &sessionEntry{id: id, deckID: deckID, session: s}
	r.mu.Unlock()
	return id, nil
}

// Get returns the session entry or ErrNotFound.
func (r *SessionRegistry) Get(id string) (*sessionEntry, error) {
	r.mu.Lock()
	e, ok := r.entries[id]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("api: session %s: %w", id, apperr.ErrNotFound)
	}
	return e, nil
}

// Remove discards a session. Removing an unknown id is a no-op.
func (r *SessionRegistry) Remove(id string) {
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
}

// Count returns the number of active sessions.
func (r *SessionRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func parseMode(s string) (study.Mode, error) {
	switch s {
	case "", "all":
		return study.ModeAll, nil
	case "missed":
		return study.ModeMissedOnly, nil
	default:
		return 0, fmt.Errorf("%w: unknown mode %q", apperr.ErrValidation, s)
	}
}

func modeName(m study.Mode) string {
	if m == study.ModeMissedOnly {
		return "missed"
	}
	return "all"
}

// snapshot renders the session state under the entry's lock.
func (e *sessionEntry) snapshot() SessionResponse {
	s := e.session
	resp := SessionResponse{
		ID:       e.id,
		DeckID:   e.deckID,
		Mode:     modeName(s.Mode()),
		Index:    s.Index(),
		Total:    s.Len(),
		Side:     s.Side().String(),
		Progress: s.Progress(),
		Complete: s.Complete(),
	}
	if card := s.Current(); card != nil {
		resp.Card = &SessionCard{ID: card.ID, Front: card.Front, Back: card.Back}
	}
	if s.Complete() {
		sum := s.Summary()
		resp.Summary = &SessionSummary{Reviewed: sum.Reviewed, MissedInDeck: sum.MissedInDeck}
	}
	return resp
}
