package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kisernl/flashcard-app/internal/deckservice"
	"github.com/kisernl/flashcard-app/internal/models"
	"github.com/kisernl/flashcard-app/internal/remote"
	"github.com/kisernl/flashcard-app/internal/sse"
	"github.com/kisernl/flashcard-app/internal/store"
)

// testEnv sets up an in-memory store, service, and router for testing.
// authToken="" means disabled mode; non-empty means token mode.
func testEnv(t *testing.T, authToken string) (*deckservice.Service, http.Handler) {
	t.Helper()

	svc := deckservice.NewService(store.NewMemory(), remote.Nop{})
	router := NewRouter(svc, NewSessionRegistry(), authToken != "", authToken, nil)
	return svc, router
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createDeck(t *testing.T, router http.Handler, title string, cards []map[string]string) models.Deck {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/decks", map[string]any{
		"title": title,
		"cards": cards,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create deck = %d, body = %s", w.Code, w.Body.String())
	}
	var deck models.Deck
	if err := json.Unmarshal(w.Body.Bytes(), &deck); err != nil {
		t.Fatal(err)
	}
	return deck
}

func TestCreateAndListStacks(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodPost, "/stacks", map[string]string{
		"name":        "Biology",
		"description": "Cells",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/stacks", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var resp StackListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Stacks) != 2 {
		t.Fatalf("stacks = %d, want 2 (general + created)", len(resp.Stacks))
	}
	if resp.Stacks[0].ID != models.GeneralStackID {
		t.Errorf("first stack = %q, want general", resp.Stacks[0].ID)
	}
	if resp.Stacks[1].Name != "Biology" {
		t.Errorf("second stack name = %q", resp.Stacks[1].Name)
	}
}

func TestCreateStackValidation(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodPost, "/stacks", map[string]string{"name": "   "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("blank name = %d, want 400", w.Code)
	}
}

func TestUpdateStack(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodPost, "/stacks", map[string]string{"name": "Old"})
	var created models.Stack
	_ = json.Unmarshal(w.Body.Bytes(), &created)

	w = doJSON(t, router, http.MethodPatch, "/stacks/"+created.ID, map[string]string{"name": "New"})
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d, body = %s", w.Code, w.Body.String())
	}
	var updated models.Stack
	_ = json.Unmarshal(w.Body.Bytes(), &updated)
	if updated.Name != "New" {
		t.Errorf("name = %q, want New", updated.Name)
	}
}

func TestGeneralStackProtected(t *testing.T) {
	_, router := testEnv(t, "")

	// Ensure general exists.
	doJSON(t, router, http.MethodGet, "/stacks", nil)

	w := doJSON(t, router, http.MethodPatch, "/stacks/general", map[string]string{"name": "Renamed"})
	if w.Code != http.StatusForbidden {
		t.Errorf("rename general = %d, want 403", w.Code)
	}

	w = doJSON(t, router, http.MethodDelete, "/stacks/general", nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("delete general = %d, want 403", w.Code)
	}
}

func TestDeleteStackReassignsDecks(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodPost, "/stacks", map[string]string{"name": "Temp"})
	var stack models.Stack
	_ = json.Unmarshal(w.Body.Bytes(), &stack)

	w = doJSON(t, router, http.MethodPost, "/decks", map[string]any{
		"title":   "Orphan",
		"stackId": stack.ID,
		"cards":   []map[string]string{{"front": "q", "back": "a"}},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create deck = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodDelete, "/stacks/"+stack.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete stack = %d", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/stacks/general/decks", nil)
	var resp DeckListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Decks) != 1 || resp.Decks[0].Title != "Orphan" {
		t.Errorf("general decks = %+v, want the reassigned deck", resp.Decks)
	}
}

func TestCreateAndGetDeck(t *testing.T) {
	_, router := testEnv(t, "")

	deck := createDeck(t, router, "Chapter 1", []map[string]string{
		{"front": "What is a cell?", "back": "The basic unit of life"},
		{"front": "What is DNA?", "back": "Genetic material"},
	})
	if deck.StackID != models.GeneralStackID {
		t.Errorf("stackId = %q, want general default", deck.StackID)
	}

	w := doJSON(t, router, http.MethodGet, "/decks/"+deck.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get deck = %d", w.Code)
	}
	var got models.Deck
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if len(got.Cards) != 2 {
		t.Fatalf("cards = %d, want 2", len(got.Cards))
	}
	if got.Cards[0].Order != 0 || got.Cards[1].Order != 1 {
		t.Errorf("card order = %d,%d", got.Cards[0].Order, got.Cards[1].Order)
	}
}

func TestCreateDeckValidation(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodPost, "/decks", map[string]any{
		"title": "Bad",
		"cards": []map[string]string{{"front": "", "back": "a"}},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("blank front = %d, want 400", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/decks", map[string]any{
		"title":   "Ghost",
		"stackId": "nope",
		"cards":   []map[string]string{{"front": "q", "back": "a"}},
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown stack = %d, want 404", w.Code)
	}
}

func TestSaveDeckKeepsCards(t *testing.T) {
	_, router := testEnv(t, "")

	deck := createDeck(t, router, "Draft", []map[string]string{
		{"front": "q1", "back": "a1"},
		{"front": "q2", "back": "a2"},
	})

	w := doJSON(t, router, http.MethodPut, "/decks/"+deck.ID, map[string]string{"title": "Final"})
	if w.Code != http.StatusOK {
		t.Fatalf("save = %d, body = %s", w.Code, w.Body.String())
	}
	var got models.Deck
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Title != "Final" {
		t.Errorf("title = %q, want Final", got.Title)
	}
	if len(got.Cards) != 2 {
		t.Errorf("cards = %d, want 2 (cards must survive deck-level save)", len(got.Cards))
	}
}

func TestDeleteDeck(t *testing.T) {
	_, router := testEnv(t, "")

	deck := createDeck(t, router, "Bye", []map[string]string{{"front": "q", "back": "a"}})

	w := doJSON(t, router, http.MethodDelete, "/decks/"+deck.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete = %d, want 204", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/decks/"+deck.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
}

func TestResetDeck(t *testing.T) {
	svc, router := testEnv(t, "")

	deck := createDeck(t, router, "Reset", []map[string]string{
		{"front": "q1", "back": "a1"},
		{"front": "q2", "back": "a2"},
	})
	if err := svc.SetMissed(context.Background(), deck.ID, nil, true); err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, router, http.MethodPost, "/decks/"+deck.ID+"/reset", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reset = %d, body = %s", w.Code, w.Body.String())
	}
	var got models.Deck
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.MissedCount() != 0 {
		t.Errorf("missed after reset = %d, want 0", got.MissedCount())
	}
}

func TestSearchEndpoint(t *testing.T) {
	_, router := testEnv(t, "")

	createDeck(t, router, "Greek Vocabulary", []map[string]string{
		{"front": "alpha", "back": "first letter"},
	})
	createDeck(t, router, "Latin Grammar", []map[string]string{
		{"front": "declension", "back": "case endings"},
	})

	w := doJSON(t, router, http.MethodGet, "/search?q=greek", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d, body = %s", w.Code, w.Body.String())
	}
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Decks) != 1 || resp.Decks[0].Title != "Greek Vocabulary" {
		t.Errorf("decks = %+v, want Greek Vocabulary", resp.Decks)
	}
	if len(resp.Cards) != 0 {
		t.Errorf("cards = %+v, want none", resp.Cards)
	}

	// Card text matches carry their deck context.
	w = doJSON(t, router, http.MethodGet, "/search?q=declension", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Cards) != 1 || resp.Cards[0].DeckTitle != "Latin Grammar" {
		t.Errorf("cards = %+v, want declension in Latin Grammar", resp.Cards)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodGet, "/search", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("search without q = %d, want 400", w.Code)
	}
}

// Study session flow.

func TestSessionFullFlow(t *testing.T) {
	_, router := testEnv(t, "")

	deck := createDeck(t, router, "Study", []map[string]string{
		{"front": "q1", "back": "a1"},
		{"front": "q2", "back": "a2"},
	})

	w := doJSON(t, router, http.MethodPost, "/decks/"+deck.ID+"/sessions", map[string]string{"mode": "all"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create session = %d, body = %s", w.Code, w.Body.String())
	}
	var sess SessionResponse
	_ = json.Unmarshal(w.Body.Bytes(), &sess)
	if sess.Total != 2 || sess.Side != "front" || sess.Card == nil {
		t.Fatalf("initial session = %+v", sess)
	}

	// Flip reveals the back.
	w = doJSON(t, router, http.MethodPost, "/sessions/"+sess.ID+"/flip", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &sess)
	if sess.Side != "back" {
		t.Errorf("side after flip = %q, want back", sess.Side)
	}

	// Wrong answer flags the card and advances with the front shown.
	w = doJSON(t, router, http.MethodPost, "/sessions/"+sess.ID+"/answer", map[string]bool{"correct": false})
	if w.Code != http.StatusOK {
		t.Fatalf("answer = %d, body = %s", w.Code, w.Body.String())
	}
	_ = json.Unmarshal(w.Body.Bytes(), &sess)
	if sess.Index != 1 || sess.Side != "front" {
		t.Errorf("after answer: index=%d side=%q", sess.Index, sess.Side)
	}

	// Last answer completes the session with a summary.
	w = doJSON(t, router, http.MethodPost, "/sessions/"+sess.ID+"/answer", map[string]bool{"correct": true})
	_ = json.Unmarshal(w.Body.Bytes(), &sess)
	if !sess.Complete || sess.Summary == nil {
		t.Fatalf("final session = %+v", sess)
	}
	if sess.Summary.Reviewed != 2 || sess.Summary.MissedInDeck != 1 {
		t.Errorf("summary = %+v", sess.Summary)
	}

	// The missed flag was persisted.
	w = doJSON(t, router, http.MethodGet, "/decks/"+deck.ID, nil)
	var got models.Deck
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.MissedCount() != 1 {
		t.Errorf("persisted missed = %d, want 1", got.MissedCount())
	}
}

func TestSessionMissedMode(t *testing.T) {
	svc, router := testEnv(t, "")

	deck := createDeck(t, router, "Missed", []map[string]string{
		{"front": "q1", "back": "a1"},
		{"front": "q2", "back": "a2"},
		{"front": "q3", "back": "a3"},
	})
	got, err := svc.GetDeck(context.Background(), deck.ID)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.SetMissed(context.Background(), deck.ID, []string{got.Cards[1].ID}, true); err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, router, http.MethodPost, "/decks/"+deck.ID+"/sessions", map[string]string{"mode": "missed"})
	var sess SessionResponse
	_ = json.Unmarshal(w.Body.Bytes(), &sess)
	if sess.Total != 1 || sess.Mode != "missed" {
		t.Errorf("session = %+v, want 1 missed card", sess)
	}
}

func TestSessionUnknownMode(t *testing.T) {
	_, router := testEnv(t, "")

	deck := createDeck(t, router, "Mode", []map[string]string{{"front": "q", "back": "a"}})
	w := doJSON(t, router, http.MethodPost, "/decks/"+deck.ID+"/sessions", map[string]string{"mode": "bogus"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bogus mode = %d, want 400", w.Code)
	}
}

func TestSessionAnswerAfterComplete(t *testing.T) {
	_, router := testEnv(t, "")

	deck := createDeck(t, router, "Done", []map[string]string{{"front": "q", "back": "a"}})
	w := doJSON(t, router, http.MethodPost, "/decks/"+deck.ID+"/sessions", map[string]string{"mode": "all"})
	var sess SessionResponse
	_ = json.Unmarshal(w.Body.Bytes(), &sess)

	doJSON(t, router, http.MethodPost, "/sessions/"+sess.ID+"/answer", map[string]bool{"correct": true})
	w = doJSON(t, router, http.MethodPost, "/sessions/"+sess.ID+"/answer", map[string]bool{"correct": true})
	if w.Code != http.StatusConflict {
		t.Errorf("answer after complete = %d, want 409", w.Code)
	}
}

func TestSessionRestartAndDelete(t *testing.T) {
	_, router := testEnv(t, "")

	deck := createDeck(t, router, "Again", []map[string]string{
		{"front": "q1", "back": "a1"},
		{"front": "q2", "back": "a2"},
	})
	w := doJSON(t, router, http.MethodPost, "/decks/"+deck.ID+"/sessions", map[string]string{"mode": "all"})
	var sess SessionResponse
	_ = json.Unmarshal(w.Body.Bytes(), &sess)

	doJSON(t, router, http.MethodPost, "/sessions/"+sess.ID+"/answer", map[string]bool{"correct": true})
	w = doJSON(t, router, http.MethodPost, "/sessions/"+sess.ID+"/restart", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &sess)
	if sess.Index != 0 || sess.Complete {
		t.Errorf("after restart = %+v", sess)
	}

	w = doJSON(t, router, http.MethodDelete, "/sessions/"+sess.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete session = %d, want 204", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/sessions/"+sess.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
}

func TestSessionNotFound(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodGet, "/sessions/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing session = %d, want 404", w.Code)
	}
}

// Auth middleware.

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/stacks", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authed list = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/stacks", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/stacks", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")

	req := httptest.NewRequest(http.MethodGet, "/stacks", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// SSE endpoint auth.

func TestSSEEvents_AuthProtected(t *testing.T) {
	router := testEnvWithSSE(t, true, "secret")

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	router := testEnvWithSSE(t, true, "tok")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}

func testEnvWithSSE(t *testing.T, authEnabled bool, token string) http.Handler {
	t.Helper()

	svc := deckservice.NewService(store.NewMemory(), remote.Nop{})
	broker := sse.NewBroker(100 * time.Millisecond)
	t.Cleanup(broker.Close)
	return NewRouter(svc, NewSessionRegistry(), authEnabled, token, broker)
}
