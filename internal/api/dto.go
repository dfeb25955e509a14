package api

import (
	"github.com/kisernl/flashcard-app/internal/deckservice"
	"github.com/kisernl/flashcard-app/internal/models"
)

// CreateStackRequest is the request body for creating a stack.
type CreateStackRequest struct {
	Name        string `json:"name" example:"Biology" validate:"required"`
	Description string `json:"description" example:"Cell structure and genetics"`
}

// UpdateStackRequest carries a partial stack update; nil fields are left
// unchanged.
type UpdateStackRequest struct {
	Name        *string `json:"name,omitempty" example:"Biology II"`
	Description *string `json:"description,omitempty" example:"Second semester"`
}

// CardRow is one card in a deck creation request.
type CardRow = deckservice.CardInput

// CreateDeckRequest is the request body for creating a deck with its cards.
type CreateDeckRequest struct {
	Title   string    `json:"title" example:"Chapter 3" validate:"required"`
	StackID string    `json:"stackId" example:"general"`
	Cards   []CardRow `json:"cards" validate:"required"`
}

// SaveDeckRequest carries deck-level fields for PUT; stored cards are kept.
type SaveDeckRequest struct {
	Title   string `json:"title" example:"Chapter 3 (revised)" validate:"required"`
	StackID string `json:"stackId" example:"general"`
}

// StackListResponse wraps a stack listing.
type StackListResponse struct {
	Stacks []models.Stack `json:"stacks" validate:"required"`
}

// DeckListResponse wraps a deck listing.
type DeckListResponse struct {
	Decks []models.Deck `json:"decks" validate:"required"`
}

// SearchResponse wraps search hits over deck titles and card text.
type SearchResponse struct {
	Decks []deckservice.DeckMatch `json:"decks" validate:"required"`
	Cards []deckservice.CardMatch `json:"cards" validate:"required"`
}

// CreateSessionRequest starts a study session over a deck.
type CreateSessionRequest struct {
	Mode string `json:"mode" example:"all" enums:"all,missed"`
}

// AnswerRequest records the outcome for the current card.
type AnswerRequest struct {
	Correct bool `json:"correct" example:"true"`
}

// SessionCard is the card currently presented in a session.
type SessionCard struct {
	ID    string `json:"id" validate:"required"`
	Front string `json:"front" validate:"required"`
	Back  string `json:"back" validate:"required"`
}

// SessionSummary reports the outcome of a completed session.
type SessionSummary struct {
	Reviewed     int `json:"reviewed" example:"12"`
	MissedInDeck int `json:"missedInDeck" example:"3"`
}

// SessionResponse is the full state of a study session.
type SessionResponse struct {
	ID       string          `json:"id" validate:"required"`
	DeckID   string          `json:"deckId" validate:"required"`
	Mode     string          `json:"mode" enums:"all,missed"`
	Index    int             `json:"index" example:"0"`
	Total    int             `json:"total" example:"12"`
	Side     string          `json:"side" enums:"front,back"`
	Progress float64         `json:"progress" example:"0.25"`
	Complete bool            `json:"complete"`
	Card     *SessionCard    `json:"card,omitempty"`
	Summary  *SessionSummary `json:"summary,omitempty"`
}
