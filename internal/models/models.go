// Package models defines the domain types for the flashcard app.
package models

// GeneralStackID is the reserved id of the default stack. The general stack
// always exists, cannot be deleted, and receives decks orphaned by stack
// deletion.
const GeneralStackID = "general"

// Stack is a named grouping of decks.
type Stack struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedAt   int64  `json:"createdAt"` // epoch milliseconds
}

// Deck is an ordered collection of flashcards belonging to exactly one stack.
// Cards are stored as part of the deck document; their slice order follows
// the Order field.
type Deck struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	StackID   string      `json:"stackId"`
	CreatedAt int64       `json:"createdAt"`
	Cards     []Flashcard `json:"cards"`
}

// Flashcard is a single question/answer pair with a binary review flag.
// Order is the zero-based import row index and is immutable once assigned.
type Flashcard struct {
	ID     string `json:"id"`
	Front  string `json:"front"`
	Back   string `json:"back"`
	Order  int    `json:"order"`
	Missed bool   `json:"missed"`
}

// NewGeneralStack returns the default stack record created lazily on first read.
func NewGeneralStack(createdAt int64) Stack {
	return Stack{
		ID:        GeneralStackID,
		Name:      "General",
		CreatedAt: createdAt,
	}
}

// MissedCount returns the number of cards in the deck currently flagged missed.
func (d *Deck) MissedCount() int {
	n := 0
	for _, c := range d.Cards {
		if c.Missed {
			n++
		}
	}
	return n
}

// Card returns a pointer to the card with the given id, or nil.
func (d *Deck) Card(id string) *Flashcard {
	for i := range d.Cards {
		if d.Cards[i].ID == id {
			return &d.Cards[i]
		}
	}
	return nil
}
