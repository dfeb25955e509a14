package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kisernl/flashcard-app/internal/deckservice"
	"github.com/kisernl/flashcard-app/internal/sse"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// broker, if non-nil, serves SSE at GET /events inside the auth group and
// receives record-change events from the handlers.
func NewRouter(svc *deckservice.Service, sessions *SessionRegistry, authEnabled bool, token string, broker *sse.Broker) chi.Router {
	h := NewHandler(svc, sessions, broker)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Stacks CRUD.
	r.Get("/stacks", h.ListStacks)
	r.Post("/stacks", h.CreateStack)
	r.Patch("/stacks/{id}", h.UpdateStack)
	r.Delete("/stacks/{id}", h.DeleteStack)
	r.Get("/stacks/{id}/decks", h.ListDecks)

	// Decks.
	r.Post("/decks", h.CreateDeck)
	r.Get("/decks/{id}", h.GetDeck)
	r.Put("/decks/{id}", h.SaveDeck)
	r.Delete("/decks/{id}", h.DeleteDeck)
	r.Post("/decks/{id}/reset", h.ResetDeck)

	// Search.
	r.Get("/search", h.Search)

	// Study sessions.
	r.Post("/decks/{id}/sessions", h.CreateSession)
	r.Get("/sessions/{id}", h.GetSession)
	r.Post("/sessions/{id}/flip", h.FlipSession)
	r.Post("/sessions/{id}/answer", h.AnswerSession)
	r.Post("/sessions/{id}/restart", h.RestartSession)
	r.Delete("/sessions/{id}", h.DeleteSession)

	// SSE endpoint (protected by same auth middleware).
	if broker != nil {
		r.Get("/events", http.HandlerFunc(broker.ServeHTTP))
	}

	return r
}
