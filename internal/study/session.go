// Package study implements the state machine driving a single card-review
// session over an in-memory snapshot of one deck.
package study

import (
	"context"
	"fmt"

	"github.com/kisernl/flashcard-app/internal/models"
)

// Side is the face of the card currently shown.
type Side int

const (
	SideFront Side = iota
	SideBack
)

// String returns the wire name of the side.
func (s Side) String() string {
	if s == SideBack {
		return "back"
	}
	return "front"
}

// Mode selects which cards enter the working sequence.
type Mode int

const (
	// ModeAll reviews every card of the deck in order.
	ModeAll Mode = iota
	// ModeMissedOnly reviews only cards currently flagged missed,
	// preserving their original relative order.
	ModeMissedOnly
)

// Recorder persists a missed-flag change. Implemented by the deck service.
type Recorder interface {
	SetMissed(ctx context.Context, deckID string, cardIDs []string, missed bool) error
}

// Summary describes a completed (or empty) session.
type Summary struct {
	// Reviewed is the number of cards answered in this session.
	Reviewed int
	// MissedInDeck counts missed cards across the FULL deck, not just the
	// working sequence; missed-only sessions can leave other cards flagged.
	MissedInDeck int
}

// Session walks one deck through a review pass.
//
// States: Presenting(index, side) and Complete. A session whose filtered
// sequence is empty starts out Complete with zero cards reviewed.
type Session struct {
	deck     *models.Deck
	mode     Mode
	recorder Recorder

	cards    []int // indexes into deck.Cards, filtered by mode
	index    int
	side     Side
	complete bool
	reviewed int
}

// New starts a session over the deck's cards. The deck pointer is the
// session's working snapshot: answer recording mutates its missed flags
// after the corresponding persistence write succeeds.
func New(deck *models.Deck, mode Mode, recorder Recorder) *Session {
	s := &Session{deck: deck, mode: mode, recorder: recorder}
	s.filter()
	return s
}

// filter rebuilds the working sequence from the deck's current flags.
func (s *Session) filter() {
	s.cards = s.cards[:0]
	for i := range s.deck.Cards {
		if s.mode == ModeMissedOnly && !s.deck.Cards[i].Missed {
			continue
		}
		s.cards = append(s.cards, i)
	}
	s.index = 0
	s.side = SideFront
	s.reviewed = 0
	s.complete = len(s.cards) == 0
}

// Len returns the length of the working sequence.
func (s *Session) Len() int { return len(s.cards) }

// Empty reports whether the filter step produced no cards to review.
func (s *Session) Empty() bool { return len(s.cards) == 0 }

// Complete reports whether the session reached its terminal state.
func (s *Session) Complete() bool { return s.complete }

// Mode returns the session's filter mode.
func (s *Session) Mode() Mode { return s.mode }

// Index returns the zero-based position within the working sequence.
func (s *Session) Index() int { return s.index }

// Side returns the face currently shown.
func (s *Session) Side() Side { return s.side }

// Current returns the card being presented, or nil when the session is
// complete.
func (s *Session) Current() *models.Flashcard {
	if s.complete {
		return nil
	}
	return &s.deck.Cards[s.cards[s.index]]
}

// Flip toggles between front and back of the current card. It does not
// advance the position and has no persistence side effect.
func (s *Session) Flip() {
	if s.complete {
		return
	}
	if s.side == SideFront {
		s.side = SideBack
	} else {
		s.side = SideFront
	}
}

// Answer records whether the learner got the current card right: the card's
// missed flag becomes !correct. The flag is persisted through the Recorder
// BEFORE any state changes; if the write fails the session does not advance
// and the error is surfaced, so in-memory and persisted state never diverge.
func (s *Session) Answer(ctx context.Context, correct bool) error {
	if s.complete {
		return fmt.Errorf("study: session already complete")
	}
	card := s.Current()
	if err := s.recorder.SetMissed(ctx, s.deck.ID, []string{card.ID}, !correct); err != nil {
		return err
	}
	card.Missed = !correct
	s.reviewed++

	if s.index+1 < len(s.cards) {
		s.index++
		s.side = SideFront
	} else {
		s.complete = true
	}
	return nil
}

// Progress returns (index+1)/length for display. Zero for empty sessions.
func (s *Session) Progress() float64 {
	if len(s.cards) == 0 {
		return 0
	}
	return float64(s.index+1) / float64(len(s.cards))
}

// Summary reports the session outcome. MissedInDeck is recomputed from the
// full deck, so it includes cards outside the filtered set.
func (s *Session) Summary() Summary {
	return Summary{
		Reviewed:     s.reviewed,
		MissedInDeck: s.deck.MissedCount(),
	}
}

// Restart re-enters the filter step with the same mode, recomputing the
// working sequence from the deck's current missed flags. A missed-only
// session therefore shrinks as cards are answered correctly.
func (s *Session) Restart() {
	s.filter()
}
