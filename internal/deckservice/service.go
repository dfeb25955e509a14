// Package deckservice implements the typed domain repository over the local
// record store, with the referential-integrity rules the store itself does
// not enforce and optional write-through mirroring to the remote document
// database.
package deckservice

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/kisernl/flashcard-app/internal/apperr"
	"github.com/kisernl/flashcard-app/internal/models"
	"github.com/kisernl/flashcard-app/internal/remote"
	"github.com/kisernl/flashcard-app/internal/store"
)

// CardInput is one imported row used to create a flashcard.
type CardInput struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// Validate checks that both sides carry text.
func (c CardInput) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Front, validation.Required),
		validation.Field(&c.Back, validation.Required),
	)
}

// StackUpdate carries the partial fields of an updateStack call. Nil means
// "leave unchanged".
type StackUpdate struct {
	Name        *string
	Description *string
}

// Service coordinates store and remote operations. It holds no mutable
// state of its own; every method reads what it needs from the store.
//
// Write ordering: mutations go to the remote collaborator first and to the
// local store second. A remote failure therefore leaves local state exactly
// as it was, and because remote updates/deletes are idempotent a partial
// cascade is safe to retry.
type Service struct {
	store  store.Store
	remote remote.Client
	newID  func() (string, error)
	now    func() int64
}

// NewService creates a new deck service. A nil client disables mirroring.
func NewService(st store.Store, rc remote.Client) *Service {
	if rc == nil {
		rc = remote.Nop{}
	}
	return &Service{
		store:  st,
		remote: rc,
		newID:  func() (string, error) { return gonanoid.New() },
		now:    func() int64 { return time.Now().UnixMilli() },
	}
}

// ListStacks returns all stacks, the general stack first. The general stack
// is created lazily if it is missing, so the result is never empty.
func (s *Service) ListStacks(ctx context.Context) ([]models.Stack, error) {
	recs, err := s.store.GetAll(ctx, store.Stacks)
	if err != nil {
		return nil, err
	}
	stacks := make([]models.Stack, 0, len(recs))
	hasGeneral := false
	for _, rec := range recs {
		st, err := decodeStack(rec)
		if err != nil {
			return nil, err
		}
		if st.ID == models.GeneralStackID {
			hasGeneral = true
		}
		stacks = append(stacks, st)
	}
	if !hasGeneral {
		general := models.NewGeneralStack(s.now())
		if err := s.putStack(ctx, general); err != nil {
			return nil, err
		}
		stacks = append(stacks, general)
	}
	sort.SliceStable(stacks, func(i, j int) bool {
		if (stacks[i].ID == models.GeneralStackID) != (stacks[j].ID == models.GeneralStackID) {
			return stacks[i].ID == models.GeneralStackID
		}
		return stacks[i].CreatedAt < stacks[j].CreatedAt
	})
	return stacks, nil
}

// CreateStack creates a new stack with a generated id.
func (s *Service) CreateStack(ctx context.Context, name, description string) (*models.Stack, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: stack name is required", apperr.ErrValidation)
	}
	id, err := s.newID()
	if err != nil {
		return nil, fmt.Errorf("deckservice: generate id: %w", err)
	}
	st := models.Stack{
		ID:          id,
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedAt:   s.now(),
	}

	if _, err := s.remote.Create(ctx, remote.StacksCollection, st.ID, map[string]any{
		"name":        st.Name,
		"description": st.Description,
	}); err != nil {
		return nil, err
	}
	if err := s.putStack(ctx, st); err != nil {
		return nil, err
	}
	return &st, nil
}

// UpdateStack merges the provided fields into an existing stack.
func (s *Service) UpdateStack(ctx context.Context, id string, upd StackUpdate) (*models.Stack, error) {
	if id == models.GeneralStackID {
		return nil, fmt.Errorf("%w: the general stack cannot be modified", apperr.ErrProtected)
	}
	st, err := s.getStack(ctx, id)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: stack name is required", apperr.ErrValidation)
		}
		st.Name = name
		fields["name"] = name
	}
	if upd.Description != nil {
		st.Description = strings.TrimSpace(*upd.Description)
		fields["description"] = st.Description
	}
	if len(fields) == 0 {
		return st, nil
	}

	if _, err := s.remote.Update(ctx, remote.StacksCollection, id, fields); err != nil {
		return nil, err
	}
	if err := s.putStack(ctx, *st); err != nil {
		return nil, err
	}
	return st, nil
}

// DeleteStack removes a stack. Decks referencing it are reassigned to the
// general stack rather than deleted, so user data survives. The cascade
// aborts on the first failure; completed reassignments are harmless and the
// call can simply be retried.
func (s *Service) DeleteStack(ctx context.Context, id string) error {
	if id == models.GeneralStackID {
		return fmt.Errorf("%w: the general stack cannot be deleted", apperr.ErrProtected)
	}
	if _, err := s.getStack(ctx, id); err != nil {
		return err
	}

	recs, err := s.store.GetByIndex(ctx, store.Decks, "stackId", id)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		deck, err := decodeDeck(rec)
		if err != nil {
			return err
		}
		deck.StackID = models.GeneralStackID
		if _, err := s.remote.Update(ctx, remote.DecksCollection, deck.ID, map[string]any{
			"stacks": models.GeneralStackID,
		}); err != nil {
			return err
		}
		if err := s.putDeck(ctx, deck); err != nil {
			return err
		}
	}

	if err := s.remote.Delete(ctx, remote.StacksCollection, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, store.Stacks, id)
}

// ListDecksForStack returns all decks referencing the stack, each with its
// cards in order.
func (s *Service) ListDecksForStack(ctx context.Context, stackID string) ([]models.Deck, error) {
	recs, err := s.store.GetByIndex(ctx, store.Decks, "stackId", stackID)
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
	return decks, nil
}

// GetDeck returns a single deck with ordered cards.
func (s *Service) GetDeck(ctx context.Context, id string) (*models.Deck, error) {
	rec, err := s.store.GetByKey(ctx, store.Decks, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("deckservice: deck %s: %w", id, apperr.ErrNotFound)
	}
	deck, err := decodeDeck(*rec)
	if err != nil {
		return nil, err
	}
	return &deck, nil
}

// CreateDeck creates a deck in the given stack with one flashcard per row;
// card order is the zero-based row index. If card creation fails partway the
// remote documents created so far are rolled back and the local store is
// never written, so a partial deck cannot be observed.
func (s *Service) CreateDeck(ctx context.Context, stackID, title string, rows []CardInput) (*models.Deck, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: deck title is required", apperr.ErrValidation)
	}
	if stackID == "" {
		stackID = models.GeneralStackID
	}
	if stackID != models.GeneralStackID {
		if _, err := s.getStack(ctx, stackID); err != nil {
			return nil, err
		}
	}

	deckID, err := s.newID()
	if err != nil {
		return nil, fmt.Errorf("deckservice: generate id: %w", err)
	}
	deck := models.Deck{
		ID:        deckID,
		Title:     title,
		StackID:   stackID,
		CreatedAt: s.now(),
		Cards:     make([]models.Flashcard, 0, len(rows)),
	}
	for i, row := range rows {
		row.Front = strings.TrimSpace(row.Front)
		row.Back = strings.TrimSpace(row.Back)
		if err := row.Validate(); err != nil {
			return nil, fmt.Errorf("%w: card %d: %v", apperr.ErrValidation, i, err)
		}
		cardID, err := s.newID()
		if err != nil {
			return nil, fmt.Errorf("deckservice: generate id: %w", err)
		}
		deck.Cards = append(deck.Cards, models.Flashcard{
			ID:    cardID,
			Front: row.Front,
			Back:  row.Back,
			Order: i,
		})
	}

	if err := s.mirrorCreateDeck(ctx, deck); err != nil {
		return nil, err
	}
	if err := s.putDeck(ctx, deck); err != nil {
		return nil, err
	}
	return &deck, nil
}

// mirrorCreateDeck creates the deck and card documents remotely, rolling
// back everything it created on the first failure.
func (s *Service) mirrorCreateDeck(ctx context.Context, deck models.Deck) error {
	if _, err := s.remote.Create(ctx, remote.DecksCollection, deck.ID, map[string]any{
		"stacks": deck.StackID,
		"title":  deck.Title,
	}); err != nil {
		return err
	}
	for i, card := range deck.Cards {
		_, err := s.remote.Create(ctx, remote.CardsCollection, card.ID, map[string]any{
			"decks":  deck.ID,
			"front":  card.Front,
			"back":   card.Back,
			"order":  card.Order,
			"missed": card.Missed,
		})
		if err != nil {
			// Best-effort rollback; deletes are idempotent.
			for _, created := range deck.Cards[:i] {
				_ = s.remote.Delete(ctx, remote.CardsCollection, created.ID)
			}
			_ = s.remote.Delete(ctx, remote.DecksCollection, deck.ID)
			return err
		}
	}
	return nil
}

// DeleteDeck removes a deck and every card belonging to it. Tolerates decks
// with zero cards. The cascade aborts on the first remote failure, leaving
// the deck present locally so the deletion can be retried.
func (s *Service) DeleteDeck(ctx context.Context, id string) error {
	deck, err := s.GetDeck(ctx, id)
	if err != nil {
		return err
	}
	for _, card := range deck.Cards {
		if err := s.remote.Delete(ctx, remote.CardsCollection, card.ID); err != nil {
			return err
		}
	}
	if err := s.remote.Delete(ctx, remote.DecksCollection, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, store.Decks, id)
}

// SetMissed updates the missed flag on the given cards of a deck. A nil or
// empty cardIDs means every card. This is the single persistence path for
// missed-flag changes: both ResetDeck and the study session's answer
// recording go through it.
func (s *Service) SetMissed(ctx context.Context, deckID string, cardIDs []string, missed bool) error {
	deck, err := s.GetDeck(ctx, deckID)
	if err != nil {
		return err
	}

	targets := make([]*models.Flashcard, 0, len(deck.Cards))
	if len(cardIDs) == 0 {
		for i := range deck.Cards {
			targets = append(targets, &deck.Cards[i])
		}
	} else {
		for _, id := range cardIDs {
			card := deck.Card(id)
			if card == nil {
				return fmt.Errorf("deckservice: card %s in deck %s: %w", id, deckID, apperr.ErrNotFound)
			}
			targets = append(targets, card)
		}
	}

	for _, card := range targets {
		if _, err := s.remote.Update(ctx, remote.CardsCollection, card.ID, map[string]any{
			"missed": missed,
		}); err != nil {
			return err
		}
	}
	for _, card := range targets {
		card.Missed = missed
	}
	return s.putDeck(ctx, *deck)
}

// ResetDeck clears the missed flag on every card of the deck. Idempotent.
func (s *Service) ResetDeck(ctx context.Context, deckID string) error {
	return s.SetMissed(ctx, deckID, nil, false)
}

// SaveDeck upserts deck-level fields (title, stackId). For an existing deck
// the stored cards are kept untouched; card changes go through SetMissed.
// An unknown id inserts the deck as given, which is how imports land.
func (s *Service) SaveDeck(ctx context.Context, deck models.Deck) (*models.Deck, error) {
	deck.Title = strings.TrimSpace(deck.Title)
	if deck.ID == "" || deck.Title == "" {
		return nil, fmt.Errorf("%w: deck id and title are required", apperr.ErrValidation)
	}
	if deck.StackID == "" {
		deck.StackID = models.GeneralStackID
	}

	rec, err := s.store.GetByKey(ctx, store.Decks, deck.ID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		if err := s.mirrorCreateDeck(ctx, deck); err != nil {
			return nil, err
		}
		if err := s.putDeck(ctx, deck); err != nil {
			return nil, err
		}
		return &deck, nil
	}

	existing, err := decodeDeck(*rec)
	if err != nil {
		return nil, err
	}
	existing.Title = deck.Title
	existing.StackID = deck.StackID

	if _, err := s.remote.Update(ctx, remote.DecksCollection, existing.ID, map[string]any{
		"stacks": existing.StackID,
		"title":  existing.Title,
	}); err != nil {
		return nil, err
	}
	if err := s.putDeck(ctx, existing); err != nil {
		return nil, err
	}
	return &existing, nil
}

// PingRemote verifies the mirror is reachable with a minimal read. Readiness
// probes call it when mirroring is enabled; with mirroring disabled it always
// succeeds.
func (s *Service) PingRemote(ctx context.Context) error {
	_, err := s.remote.List(ctx, remote.StacksCollection, nil, "", 1)
	return err
}

// getStack loads and decodes one stack, mapping absence to ErrNotFound.
func (s *Service) getStack(ctx context.Context, id string) (*models.Stack, error) {
	rec, err := s.store.GetByKey(ctx, store.Stacks, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("deckservice: stack %s: %w", id, apperr.ErrNotFound)
	}
	st, err := decodeStack(*rec)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Service) putStack(ctx context.Context, st models.Stack) error {
	doc, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("deckservice: encode stack: %w", err)
	}
	return s.store.Put(ctx, store.Stacks, store.Record{ID: st.ID, Doc: doc})
}

func (s *Service) putDeck(ctx context.Context, deck models.Deck) error {
	doc, err := json.Marshal(deck)
	if err != nil {
		return fmt.Errorf("deckservice: encode deck: %w", err)
	}
	return s.store.Put(ctx, store.Decks, store.Record{ID: deck.ID, Doc: doc})
}

// decodeStack maps a raw record to the closed Stack type. Records are
// validated here so malformed documents never travel past this layer.
func decodeStack(rec store.Record) (models.Stack, error) {
	var st models.Stack
	if err := json.Unmarshal(rec.Doc, &st); err != nil {
		return models.Stack{}, fmt.Errorf("deckservice: decode stack %s: %w", rec.ID, err)
	}
	if st.ID != rec.ID || st.Name == "" {
		return models.Stack{}, fmt.Errorf("deckservice: malformed stack record %s", rec.ID)
	}
	return st, nil
}

func decodeDeck(rec store.Record) (models.Deck, error) {
	var deck models.Deck
	if err := json.Unmarshal(rec.Doc, &deck); err != nil {
		return models.Deck{}, fmt.Errorf("deckservice: decode deck %s: %w", rec.ID, err)
	}
	if deck.ID != rec.ID {
		return models.Deck{}, fmt.Errorf("deckservice: malformed deck record %s", rec.ID)
	}
	if deck.Cards == nil {
		deck.Cards = []models.Flashcard{}
	}
	sort.SliceStable(deck.Cards, func(i, j int) bool { return deck.Cards[i].Order < deck.Cards[j].Order })
	return deck, nil
}
