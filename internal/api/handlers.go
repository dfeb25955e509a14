package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kisernl/flashcard-app/internal/deckservice"
	"github.com/kisernl/flashcard-app/internal/models"
	"github.com/kisernl/flashcard-app/internal/sse"
	"github.com/kisernl/flashcard-app/internal/study"
)

// Handler holds API route handlers.
type Handler struct {
	svc      *deckservice.Service
	sessions *SessionRegistry
	broker   *sse.Broker
}

// NewHandler creates a new Handler. broker may be nil, in which case no
// events are published.
func NewHandler(svc *deckservice.Service, sessions *SessionRegistry, broker *sse.Broker) *Handler {
	return &Handler{svc: svc, sessions: sessions, broker: broker}
}

func (h *Handler) publishRecord(kind, entity, id string) {
	if h.broker != nil {
		h.broker.PublishRecordEvent(kind, entity, id)
	}
}

func (h *Handler) publish(event sse.Event) {
	if h.broker != nil {
		h.broker.Publish(event)
	}
}

// ListStacks handles GET /api/stacks.
//
//	@Summary		List stacks, general first
//	@Tags			stacks
//	@Produce		json
//	@Success		200	{object}	StackListResponse
//	@Security		BearerAuth
//	@Router			/stacks [get]
func (h *Handler) ListStacks(w http.ResponseWriter, r *http.Request) {
	stacks, err := h.svc.ListStacks(r.Context())
	if err != nil {
		writeServiceError(w, "list stacks", err)
		return
	}
	writeJSON(w, http.StatusOK, StackListResponse{Stacks: stacks})
}

// CreateStack handles POST /api/stacks.
//
//	@Summary		Create a new stack
//	@Tags			stacks
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateStackRequest	true	"Stack to create"
//	@Success		201		{object}	models.Stack
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/stacks [post]
func (h *Handler) CreateStack(w http.ResponseWriter, r *http.Request) {
	var req CreateStackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	stack, err := h.svc.CreateStack(r.Context(), req.Name, req.Description)
	if err != nil {
		writeServiceError(w, "create stack", err)
		return
	}
	h.publishRecord("created", "stack", stack.ID)
	writeJSON(w, http.StatusCreated, stack)
}

// UpdateStack handles PATCH /api/stacks/{id}.
//
//	@Summary		Rename or re-describe a stack
//	@Tags			stacks
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Stack id"
//	@Param			body	body		UpdateStackRequest	true	"Fields to change"
//	@Success		200		{object}	models.Stack
//	@Failure		403		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/stacks/{id} [patch]
func (h *Handler) UpdateStack(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req UpdateStackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	stack, err := h.svc.UpdateStack(r.Context(), id, deckservice.StackUpdate{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		writeServiceError(w, "update stack", err)
		return
	}
	h.publishRecord("updated", "stack", stack.ID)
	writeJSON(w, http.StatusOK, stack)
}

// DeleteStack handles DELETE /api/stacks/{id}. Decks belonging to the stack
// are moved to the general stack, not deleted.
//
//	@Summary		Delete a stack, reassigning its decks to general
//	@Tags			stacks
//	@Param			id	path	string	true	"Stack id"
//	@Success		204	"Stack deleted"
//	@Failure		403	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/stacks/{id} [delete]
func (h *Handler) DeleteStack(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteStack(r.Context(), id); err != nil {
		writeServiceError(w, "delete stack", err)
		return
	}
	h.publishRecord("deleted", "stack", id)
	w.WriteHeader(http.StatusNoContent)
}

// ListDecks handles GET /api/stacks/{id}/decks.
//
//	@Summary		List decks in a stack
//	@Tags			decks
//	@Produce		json
//	@Param			id	path		string	true	"Stack id"
//	@Success		200	{object}	DeckListResponse
//	@Security		BearerAuth
//	@Router			/stacks/{id}/decks [get]
func (h *Handler) ListDecks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	decks, err := h.svc.ListDecksForStack(r.Context(), id)
	if err != nil {
		writeServiceError(w, "list decks", err)
		return
	}
	writeJSON(w, http.StatusOK, DeckListResponse{Decks: decks})
}

// CreateDeck handles POST /api/decks.
//
//	@Summary		Create a deck with its cards
//	@Tags			decks
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateDeckRequest	true	"Deck to create"
//	@Success		201		{object}	models.Deck
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/decks [post]
func (h *Handler) CreateDeck(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req CreateDeckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	deck, err := h.svc.CreateDeck(r.Context(), req.StackID, req.Title, req.Cards)
	if err != nil {
		writeServiceError(w, "create deck", err)
		return
	}
	h.publishRecord("created", "deck", deck.ID)
	writeJSON(w, http.StatusCreated, deck)
}

// GetDeck handles GET /api/decks/{id}.
//
//	@Summary		Get a deck with its cards
//	@Tags			decks
//	@Produce		json
//	@Param			id	path		string	true	"Deck id"
//	@Success		200	{object}	models.Deck
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/decks/{id} [get]
func (h *Handler) GetDeck(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	deck, err := h.svc.GetDeck(r.Context(), id)
	if err != nil {
		writeServiceError(w, "get deck", err)
		return
	}
	writeJSON(w, http.StatusOK, deck)
}

// SaveDeck handles PUT /api/decks/{id}, updating deck-level fields. Cards
// are left untouched; missed flags change through sessions and reset.
//
//	@Summary		Update a deck's title or stack
//	@Tags			decks
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Deck id"
//	@Param			body	body		SaveDeckRequest	true	"Deck fields"
//	@Success		200		{object}	models.Deck
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/decks/{id} [put]
func (h *Handler) SaveDeck(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req SaveDeckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	deck, err := h.svc.SaveDeck(r.Context(), models.Deck{
		ID:      id,
		Title:   req.Title,
		StackID: req.StackID,
	})
	if err != nil {
		writeServiceError(w, "save deck", err)
		return
	}
	h.publishRecord("updated", "deck", deck.ID)
	writeJSON(w, http.StatusOK, deck)
}

// DeleteDeck handles DELETE /api/decks/{id}.
//
//	@Summary		Delete a deck and all its cards
//	@Tags			decks
//	@Param			id	path	string	true	"Deck id"
//	@Success		204	"Deck deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/decks/{id} [delete]
func (h *Handler) DeleteDeck(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteDeck(r.Context(), id); err != nil {
		writeServiceError(w, "delete deck", err)
		return
	}
	h.publishRecord("deleted", "deck", id)
	w.WriteHeader(http.StatusNoContent)
}

// ResetDeck handles POST /api/decks/{id}/reset, clearing every missed flag.
//
//	@Summary		Clear all missed flags on a deck
//	@Tags			decks
//	@Produce		json
//	@Param			id	path		string	true	"Deck id"
//	@Success		200	{object}	models.Deck
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/decks/{id}/reset [post]
func (h *Handler) ResetDeck(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.ResetDeck(r.Context(), id); err != nil {
		writeServiceError(w, "reset deck", err)
		return
	}
	deck, err := h.svc.GetDeck(r.Context(), id)
	if err != nil {
		writeServiceError(w, "reset deck", err)
		return
	}
	h.publishRecord("updated", "deck", id)
	writeJSON(w, http.StatusOK, deck)
}

// Search handles GET /api/search, matching deck titles and card text.
//
//	@Summary		Search deck titles and card text
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			stack	query		string	false	"Restrict to one stack ('all' for every stack)"
//	@Param			limit	query		int		false	"Max hits per result list"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, r.URL.Query().Get("stack"), limit)
	if err != nil {
		writeServiceError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Decks: results.Decks, Cards: results.Cards})
}

// CreateSession handles POST /api/decks/{id}/sessions.
//
//	@Summary		Start a study session over a deck
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Deck id"
//	@Param			body	body		CreateSessionRequest	true	"Session mode"
//	@Success		201		{object}	SessionResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/decks/{id}/sessions [post]
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	deckID := chi.URLParam(r, "id")
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	mode, err := parseMode(req.Mode)
	if err != nil {
		writeServiceError(w, "create session", err)
		return
	}
	deck, err := h.svc.GetDeck(r.Context(), deckID)
	if err != nil {
		writeServiceError(w, "create session", err)
		return
	}

	session := study.New(deck, mode, h.svc)
	id, err := h.sessions.Add(deckID, session)
	if err != nil {
		writeServiceError(w, "create session", err)
		return
	}
	entry, _ := h.sessions.Get(id)
	writeJSON(w, http.StatusCreated, entry.snapshot())
}

// GetSession handles GET /api/sessions/{id}.
//
//	@Summary		Get the current state of a study session
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session id"
//	@Success		200	{object}	SessionResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id} [get]
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	entry, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "get session", err)
		return
	}
	entry.mu.Lock()
	resp := entry.snapshot()
	entry.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

// FlipSession handles POST /api/sessions/{id}/flip.
//
//	@Summary		Flip the current card
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session id"
//	@Success		200	{object}	SessionResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/flip [post]
func (h *Handler) FlipSession(w http.ResponseWriter, r *http.Request) {
	entry, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "flip session", err)
		return
	}
	entry.mu.Lock()
	entry.session.Flip()
	resp := entry.snapshot()
	entry.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

// AnswerSession handles POST /api/sessions/{id}/answer. The missed flag is
// persisted before the session advances; on persistence failure the session
// stays on the current card and the error status is returned.
//
//	@Summary		Record the answer for the current card
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session id"
//	@Param			body	body		AnswerRequest	true	"Answer outcome"
//	@Success		200		{object}	SessionResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/answer [post]
func (h *Handler) AnswerSession(w http.ResponseWriter, r *http.Request) {
	entry, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "answer session", err)
		return
	}
	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	entry.mu.Lock()
	if entry.session.Complete() {
		entry.mu.Unlock()
		writeJSON(w, http.StatusConflict, errorBody("session already complete"))
		return
	}
	answerErr := entry.session.Answer(r.Context(), req.Correct)
	resp := entry.snapshot()
	entry.mu.Unlock()

	if answerErr != nil {
		writeServiceError(w, "answer session", answerErr)
		return
	}
	h.publish(sse.Event{Type: "card.reviewed", Data: map[string]string{"deckId": entry.deckID}})
	writeJSON(w, http.StatusOK, resp)
}

// RestartSession handles POST /api/sessions/{id}/restart. The working
// sequence is rebuilt from the deck's current missed flags.
//
//	@Summary		Restart a session from the deck's current flags
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session id"
//	@Success		200	{object}	SessionResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/restart [post]
func (h *Handler) RestartSession(w http.ResponseWriter, r *http.Request) {
	entry, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "restart session", err)
		return
	}
	entry.mu.Lock()
	entry.session.Restart()
	resp := entry.snapshot()
	entry.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

// DeleteSession handles DELETE /api/sessions/{id}.
//
//	@Summary		Discard a study session
//	@Tags			sessions
//	@Param			id	path	string	true	"Session id"
//	@Success		204	"Session discarded"
//	@Security		BearerAuth
//	@Router			/sessions/{id} [delete]
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	h.sessions.Remove(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}
