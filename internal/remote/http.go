package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kisernl/flashcard-app/internal/apperr"
)

// HTTPClient talks to the hosted document API over REST. Document routes
// live under /databases/{database}/collections/{collection}/documents;
// project and key travel as headers on every request.
type HTTPClient struct {
	endpoint string
	project  string
	key      string
	database string
	http     *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a client for the given endpoint and database.
func NewHTTPClient(endpoint, project, key, database string) *HTTPClient {
	return &HTTPClient{
		endpoint: endpoint,
		project:  project,
		key:      key,
		database: database,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *HTTPClient) documentsURL(collection string) string {
	return fmt.Sprintf("%s/databases/%s/collections/%s/documents",
		c.endpoint, url.PathEscape(c.database), url.PathEscape(collection))
}

func (c *HTTPClient) do(ctx context.Context, method, rawURL string, body any) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("remote: encode body: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, rd)
	if err != nil {
		return nil, fmt.Errorf("remote: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Project", c.project)
	req.Header.Set("X-API-Key", c.key)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", apperr.ErrRemote, method, rawURL, err)
	}
	return resp, nil
}

// List returns documents matching every filter.
func (c *HTTPClient) List(ctx context.Context, collection string, filters []Filter, orderBy string, limit int) ([]Document, error) {
	q := url.Values{}
	for _, f := range filters {
		q.Add(f.Field, f.Value)
	}
	if orderBy != "" {
		q.Set("orderBy", orderBy)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	u := c.documentsURL(collection)
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	resp, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusErr("list", collection, resp)
	}

	var payload struct {
		Documents []json.RawMessage `json:"documents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode list response: %v", apperr.ErrRemote, err)
	}
	docs := make([]Document, 0, len(payload.Documents))
	for _, raw := range payload.Documents {
		doc, err := decodeDocument(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Create stores a new document under the caller-supplied id.
func (c *HTTPClient) Create(ctx context.Context, collection, id string, fields map[string]any) (Document, error) {
	body := map[string]any{"documentId": id, "data": fields}
	resp, err := c.do(ctx, http.MethodPost, c.documentsURL(collection), body)
	if err != nil {
		return Document{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return Document{}, statusErr("create", collection, resp)
	}
	return decodeDocumentBody(resp.Body)
}

// Update merges partial fields into an existing document.
func (c *HTTPClient) Update(ctx context.Context, collection, id string, fields map[string]any) (Document, error) {
	u := c.documentsURL(collection) + "/" + url.PathEscape(id)
	resp, err := c.do(ctx, http.MethodPatch, u, map[string]any{"data": fields})
	if err != nil {
		return Document{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return Document{}, fmt.Errorf("remote: update %s/%s: %w", collection, id, apperr.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return Document{}, statusErr("update", collection, resp)
	}
	return decodeDocumentBody(resp.Body)
}

// Delete removes a document; a 404 counts as success.
func (c *HTTPClient) Delete(ctx context.Context, collection, id string) error {
	u := c.documentsURL(collection) + "/" + url.PathEscape(id)
	resp, err := c.do(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	default:
		return statusErr("delete", collection, resp)
	}
}

func statusErr(op, collection string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	return fmt.Errorf("%w: %s %s: status %d: %s", apperr.ErrRemote, op, collection, resp.StatusCode, snippet)
}

func decodeDocumentBody(r io.Reader) (Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Document{}, fmt.Errorf("%w: read response: %v", apperr.ErrRemote, err)
	}
	return decodeDocument(raw)
}

// decodeDocument splits the server-assigned $id/$createdAt metadata from the
// collection-specific fields.
func decodeDocument(raw json.RawMessage) (Document, error) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Document{}, fmt.Errorf("%w: decode document: %v", apperr.ErrRemote, err)
	}
	doc := Document{Fields: fields}
	if id, ok := fields["$id"].(string); ok {
		doc.ID = id
		delete(fields, "$id")
	}
	if created, ok := fields["$createdAt"].(string); ok {
		if ts, err := time.Parse(time.RFC3339, created); err == nil {
			doc.CreatedAt = ts
		}
		delete(fields, "$createdAt")
	}
	return doc, nil
}
