package vectorstore

import (
	"context"
	"fmt"

	"github.com/ametel/vidrank/internal/llm"
	"golang.org/x/sync/errgroup"
)

// Metadata keys stored alongside every document.
const (
	MetaAction    = "action"
	MetaVideoID   = "videoId"
	MetaCreatedAt = "createdAt"
)

// Document is one stored feedback record: the video title as content plus
// action metadata. Documents are insert-only; nothing in this codebase
// mutates or deletes them.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]string
}

// ScoredDocument is a Document with a similarity score attached.
// Scores order results within one backend; they are not comparable
// across backends.
type ScoredDocument struct {
	Document
	Score float32
}

// Index is the vector index contract consumed by the recommendation core.
// Insert embeds document content internally, so callers never handle raw
// vectors on the write path.
type Index interface {
	// Insert adds documents under the given ids. All-or-nothing per call.
	Insert(ctx context.Context, docs []Document, ids []string) error

	// SearchByVector returns the topK nearest documents to the vector,
	// nearest first, optionally restricted by metadata equality filters.
	SearchByVector(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]ScoredDocument, error)

	// SearchByText returns up to topK documents matching the query text.
	// An empty query means "any topK documents", newest first.
	SearchByText(ctx context.Context, query string, topK int, filter map[string]string) ([]Document, error)
}

const embedConcurrency = 4

// embedAll embeds every document content concurrently, bounded to avoid
// overwhelming the embedding backend. Returns nil for empty input.
func embedAll(ctx context.Context, embedder llm.Embedder, docs []Document) ([][]float32, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	results := make([][]float32, len(docs))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	for i, doc := range docs {
		g.Go(func() error {
			vec, err := embedder.Embed(gCtx, doc.Content)
			if err != nil {
				return fmt.Errorf("embedding document %d: %w", i, err)
			}
			results[i] = vec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
