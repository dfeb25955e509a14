package deckservice

import (
	"context"
	"sort"
	"strings"

	"github.com/kisernl/flashcard-app/internal/models"
	"github.com/kisernl/flashcard-app/internal/store"
)

const defaultSearchLimit = 20

// AllStacks is the stack filter value that widens a search to every stack.
const AllStacks = "all"

// DeckMatch is one deck whose title matched a search query.
type DeckMatch struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	StackID string `json:"stackId"`
}

// CardMatch is one flashcard whose front or back matched, with enough deck
// context to open it for study.
type CardMatch struct {
	DeckID    string `json:"deckId"`
	DeckTitle string `json:"deckTitle"`
	StackID   string `json:"stackId"`
	CardID    string `json:"cardId"`
	Front     string `json:"front"`
	Back      string `json:"back"`
}

// SearchResults groups the two kinds of hits a query can produce.
type SearchResults struct {
	Decks []DeckMatch `json:"decks"`
	Cards []CardMatch `json:"cards"`
}

// Search matches the query against deck titles and card text as a
// case-insensitive substring. stackID narrows the scan to one stack; empty or
// AllStacks searches everything. A blank query matches nothing. limit caps
// each result list independently (default 20).
func (s *Service) Search(ctx context.Context, query, stackID string, limit int) (*SearchResults, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	results := &SearchResults{Decks: []DeckMatch{}, Cards: []CardMatch{}}
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return results, nil
	}

	var recs []store.Record
	var err error
	if stackID == "" || stackID == AllStacks {
		recs, err = s.store.GetAll(ctx, store.Decks)
	} else {
		recs, err = s.store.GetByIndex(ctx, store.Decks, "stackId", stackID)
	}
	if err != nil {
		return nil, err
	}

	decks := make([]models.Deck, 0, len(recs))
	for _, rec := range recs {
		deck, err := decodeDeck(rec)
		if err != nil {
			return nil, err
		}
		decks = append(decks, deck)
	}
	sort.SliceStable(decks, func(i, j int) bool { return decks[i].CreatedAt < decks[j].CreatedAt })

	for _, deck := range decks {
		if len(results.Decks) < limit && strings.Contains(strings.ToLower(deck.Title), needle) {
			results.Decks = append(results.Decks, DeckMatch{
				ID:      deck.ID,
				Title:   deck.Title,
				StackID: deck.StackID,
			})
		}
		for _, card := range deck.Cards {
			if len(results.Cards) >= limit {
				break
			}
			if strings.Contains(strings.ToLower(card.Front), needle) ||
				strings.Contains(strings.ToLower(card.Back), needle) {
				results.Cards = append(results.Cards, CardMatch{
					DeckID:    deck.ID,
					DeckTitle: deck.Title,
					StackID:   deck.StackID,
					CardID:    card.ID,
					Front:     card.Front,
					Back:      card.Back,
				})
			}
		}
	}
	return results, nil
}
