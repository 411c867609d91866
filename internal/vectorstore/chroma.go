package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ametel/vidrank/internal/llm"
)

// Compile-time check that ChromaIndex implements Index.
var _ Index = (*ChromaIndex)(nil)

// ChromaIndex is a minimal REST client to a Chroma server. It assumes cosine
// distance and creates the collection if missing. This is the remote Index
// backend, matching the hosted setup the project started with; SQLite is the
// local default.
type ChromaIndex struct {
	baseURL      string
	collection   string
	collectionID string
	embedder     llm.Embedder
	client       *http.Client
}

// ChromaConfig configures a ChromaIndex.
type ChromaConfig struct {
	URL        string
	Collection string
	Timeout    time.Duration
}

// NewChromaIndex creates the client and ensures the collection exists.
func NewChromaIndex(ctx context.Context, cfg ChromaConfig, embedder llm.Embedder) (*ChromaIndex, error) {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	c := &ChromaIndex{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		collection: cfg.Collection,
		embedder:   embedder,
		client:     &http.Client{Timeout: timeout},
	}
	if err := c.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *ChromaIndex) ensureCollection(ctx context.Context) error {
	body := map[string]any{
		"name":          c.collection,
		"get_or_create": true,
		"metadata":      map[string]any{"hnsw:space": "cosine"},
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "/api/v1/collections", body, &resp); err != nil {
		return fmt.Errorf("ensuring collection %q: %w", c.collection, err)
	}
	if resp.ID == "" {
		return fmt.Errorf("ensuring collection %q: empty collection id", c.collection)
	}
	c.collectionID = resp.ID
	return nil
}

// Insert embeds the documents and adds them to the collection.
func (c *ChromaIndex) Insert(ctx context.Context, docs []Document, ids []string) error {
	if len(docs) != len(ids) {
		return fmt.Errorf("documents and ids length mismatch: %d != %d", len(docs), len(ids))
	}
	if len(docs) == 0 {
		return nil
	}

	vectors, err := embedAll(ctx, c.embedder, docs)
	if err != nil {
		return err
	}

	contents := make([]string, len(docs))
	metadatas := make([]map[string]string, len(docs))
	for i, doc := range docs {
		contents[i] = doc.Content
		metadatas[i] = doc.Metadata
	}

	body := map[string]any{
		"ids":        ids,
		"embeddings": vectors,
		"documents":  contents,
		"metadatas":  metadatas,
	}
	if err := c.post(ctx, fmt.Sprintf("/api/v1/collections/%s/add", c.collectionID), body, nil); err != nil {
		return fmt.Errorf("adding documents: %w", err)
	}
	return nil
}

// queryResponse mirrors Chroma's nested per-query result arrays.
type queryResponse struct {
	IDs       [][]string            `json:"ids"`
	Documents [][]string            `json:"documents"`
	Metadatas [][]map[string]string `json:"metadatas"`
	Distances [][]float32           `json:"distances"`
}

// SearchByVector queries the collection for the topK nearest documents.
func (c *ChromaIndex) SearchByVector(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]ScoredDocument, error) {
	body := map[string]any{
		"query_embeddings": [][]float32{vector},
		"n_results":        topK,
		"include":          []string{"documents", "metadatas", "distances"},
	}
	if len(filter) > 0 {
		body["where"] = filter
	}

	var resp queryResponse
	if err := c.post(ctx, fmt.Sprintf("/api/v1/collections/%s/query", c.collectionID), body, &resp); err != nil {
		return nil, fmt.Errorf("querying collection: %w", err)
	}
	if len(resp.IDs) == 0 {
		return nil, nil
	}

	results := make([]ScoredDocument, 0, len(resp.IDs[0]))
	for i, id := range resp.IDs[0] {
		doc := Document{ID: id}
		if len(resp.Documents) > 0 && i < len(resp.Documents[0]) {
			doc.Content = resp.Documents[0][i]
		}
		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			doc.Metadata = resp.Metadatas[0][i]
		}
		var score float32
		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			// Cosine distance to similarity.
			score = 1 - resp.Distances[0][i]
		}
		results = append(results, ScoredDocument{Document: doc, Score: score})
	}
	return results, nil
}

// getResponse mirrors Chroma's flat get result arrays.
type getResponse struct {
	IDs       []string            `json:"ids"`
	Documents []string            `json:"documents"`
	Metadatas []map[string]string `json:"metadatas"`
}

// SearchByText embeds the query and delegates to SearchByVector. An empty
// query fetches up to topK documents without similarity ordering.
func (c *ChromaIndex) SearchByText(ctx context.Context, query string, topK int, filter map[string]string) ([]Document, error) {
	if query == "" {
		body := map[string]any{
			"limit":   topK,
			"include": []string{"documents", "metadatas"},
		}
		if len(filter) > 0 {
			body["where"] = filter
		}

		var resp getResponse
		if err := c.post(ctx, fmt.Sprintf("/api/v1/collections/%s/get", c.collectionID), body, &resp); err != nil {
			return nil, fmt.Errorf("fetching documents: %w", err)
		}

		docs := make([]Document, 0, len(resp.IDs))
		for i, id := range resp.IDs {
			doc := Document{ID: id}
			if i < len(resp.Documents) {
				doc.Content = resp.Documents[i]
			}
			if i < len(resp.Metadatas) {
				doc.Metadata = resp.Metadatas[i]
			}
			docs = append(docs, doc)
		}
		return docs, nil
	}

	vec, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	scored, err := c.SearchByVector(ctx, vec, topK, filter)
	if err != nil {
		return nil, err
	}
	docs := make([]Document, len(scored))
	for i, sd := range scored {
		docs[i] = sd.Document
	}
	return docs, nil
}

func (c *ChromaIndex) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
