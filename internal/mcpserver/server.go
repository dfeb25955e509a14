// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes flashcard tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kisernl/flashcard-app/internal/apperr"
	"github.com/kisernl/flashcard-app/internal/deckservice"
)

// Server wraps the MCP server with flashcard tools.
type Server struct {
	mcp *server.MCPServer
	svc *deckservice.Service
}

// New creates a new MCP server with all flashcard tools registered.
func New(svc *deckservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Flashcards",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_stacks",
		mcp.WithDescription("List all stacks. The general stack always comes first."),
	), s.listStacks)

	s.mcp.AddTool(mcp.NewTool("list_decks",
		mcp.WithDescription("List the decks in a stack with their card counts."),
		mcp.WithString("stack_id", mcp.Required(), mcp.Description("Stack id (use 'general' for the default stack)")),
	), s.listDecks)

	s.mcp.AddTool(mcp.NewTool("get_deck",
		mcp.WithDescription("Read a full deck including all its cards and missed flags."),
		mcp.WithString("deck_id", mcp.Required(), mcp.Description("Deck id")),
	), s.getDeck)

	s.mcp.AddTool(mcp.NewTool("create_deck",
		mcp.WithDescription("Create a new deck of flashcards. The cards argument MUST be a "+
			"JSON array following the deck import contract. Read the contract first via "+
			"the get_deck_contract tool or the flashcards://deck-format resource."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Deck title")),
		mcp.WithString("stack_id", mcp.Description("Target stack id (empty for the general stack)")),
		mcp.WithString("cards", mcp.Required(), mcp.Description("JSON array of card objects per the deck import contract")),
	), s.createDeck)

	s.mcp.AddTool(mcp.NewTool("reset_deck",
		mcp.WithDescription("Clear every missed flag on a deck, so the next missed-only study pass starts empty."),
		mcp.WithString("deck_id", mcp.Required(), mcp.Description("Deck id")),
	), s.resetDeck)

	s.mcp.AddTool(mcp.NewTool("get_deck_contract",
		mcp.WithDescription("Returns the canonical deck import format contract. "+
			"Call this before creating decks to ensure correct structure."),
	), s.getDeckContract)

	// Resource: deck import contract.
	s.mcp.AddResource(
		mcp.NewResource("flashcards://deck-format", "Deck Import Contract",
			mcp.WithResourceDescription("Canonical JSON card format that create_deck input must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDeckFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listStacks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stacks, err := s.svc.ListStacks(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(stacks, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listDecks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stackID, err := req.RequireString("stack_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	decks, err := s.svc.ListDecksForStack(ctx, stackID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	type deckLine struct {
		ID     string `json:"id"`
		Title  string `json:"title"`
		Cards  int    `json:"cards"`
		Missed int    `json:"missed"`
	}
	lines := make([]deckLine, len(decks))
	for i, d := range decks {
		lines[i] = deckLine{ID: d.ID, Title: d.Title, Cards: len(d.Cards), Missed: d.MissedCount()}
	}
	out, _ := json.MarshalIndent(lines, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getDeck(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	deckID, err := req.RequireString("deck_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	deck, err := s.svc.GetDeck(ctx, deckID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", deckID)), nil
	}
	out, _ := json.MarshalIndent(deck, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createDeck(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rawCards, err := req.RequireString("cards")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	stackID := ""
	if v, reqErr := req.RequireString("stack_id"); reqErr == nil {
		stackID = v
	}

	var rows []deckservice.CardInput
	if err := json.Unmarshal([]byte(rawCards), &rows); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cards is not a valid JSON array: %v (see get_deck_contract)", err)), nil
	}

	deck, err := s.svc.CreateDeck(ctx, stackID, title, rows)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s (%d cards)", deck.ID, len(deck.Cards))), nil
}

func (s *Server) resetDeck(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	deckID, err := req.RequireString("deck_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.ResetDeck(ctx, deckID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", deckID)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("reset: %s", deckID)), nil
}

func (s *Server) getDeckContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DeckFormatContract), nil
}

func (s *Server) readDeckFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "flashcards://deck-format",
			MIMEType: "text/markdown",
			Text:     DeckFormatContract,
		},
	}, nil
}
