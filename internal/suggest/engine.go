package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ametel/vidrank/internal/feedback"
	"github.com/ametel/vidrank/internal/llm"
	"github.com/ametel/vidrank/internal/vectorstore"
)

// SearchTerm is one candidate YouTube search term with its relevance score.
type SearchTerm struct {
	Term       string  `json:"term"`
	MatchScore float64 `json:"matchScore"`
}

// Result is the full suggestion payload: 1–5 unsorted terms plus sentiment
// and context read from the user's query. Consumers that need a "best" term
// must select it themselves; the engine does not order the list.
type Result struct {
	SearchTerms []SearchTerm `json:"searchTerms"`
	Sentiment   string       `json:"sentiment"`
	Context     string       `json:"context"`
}

// BestTerm returns the entry with the maximum MatchScore. Ties resolve to
// the earliest entry, so the choice is deterministic for a given Result.
func (r Result) BestTerm() (SearchTerm, bool) {
	if len(r.SearchTerms) == 0 {
		return SearchTerm{}, false
	}
	best := r.SearchTerms[0]
	for _, st := range r.SearchTerms[1:] {
		if st.MatchScore > best.MatchScore {
			best = st
		}
	}
	return best, true
}

// Classifier maps search terms onto topic labels.
type Classifier interface {
	Classify(ctx context.Context, terms []string) ([]string, error)
}

// Searcher is the nearest-neighbor query capability the engine needs.
type Searcher interface {
	SearchByVector(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]vectorstore.ScoredDocument, error)
}

// Engine turns a free-text query plus the user's liked history into ranked
// candidate search terms.
type Engine struct {
	embedder   llm.Embedder
	index      Searcher
	classifier Classifier
	gen        llm.Generator
}

// NewEngine wires the engine to its four collaborators.
func NewEngine(embedder llm.Embedder, index Searcher, classifier Classifier, gen llm.Generator) *Engine {
	return &Engine{embedder: embedder, index: index, classifier: classifier, gen: gen}
}

// likedNeighbors is how many liked documents seed the suggestion context.
const likedNeighbors = 5

// Suggest expands userInput into a Result. The enriched path (history
// lookup, classification, generation) runs as one fail-fast unit; when any
// part of it fails the engine retries generation exactly once with empty
// context and no second index lookup. A failing fallback propagates.
func (e *Engine) Suggest(ctx context.Context, userInput string) (Result, error) {
	vec, err := e.embedder.Embed(ctx, userInput)
	if err != nil {
		return Result{}, fmt.Errorf("embedding query: %w", err)
	}

	res, err := e.enriched(ctx, vec, userInput)
	if err == nil {
		return res, nil
	}
	slog.Warn("suggest: enriched attempt failed, retrying without context", "error", err)

	res, err = e.generate(ctx, nil, nil, userInput)
	if err != nil {
		return Result{}, fmt.Errorf("context-free suggestion: %w", err)
	}
	return res, nil
}

func (e *Engine) enriched(ctx context.Context, vec []float32, userInput string) (Result, error) {
	scored, err := e.index.SearchByVector(ctx, vec, likedNeighbors, map[string]string{
		vectorstore.MetaAction: string(feedback.ActionLike),
	})
	if err != nil {
		return Result{}, fmt.Errorf("querying liked history: %w", err)
	}

	recentTerms := make([]string, 0, len(scored))
	for _, sd := range scored {
		recentTerms = append(recentTerms, sd.Content)
	}

	var categories []string
	if len(recentTerms) > 0 {
		categories, err = e.classifier.Classify(ctx, recentTerms)
		if err != nil {
			return Result{}, fmt.Errorf("classifying history: %w", err)
		}
	}

	return e.generate(ctx, categories, recentTerms, userInput)
}

func (e *Engine) generate(ctx context.Context, categories, recentTerms []string, userInput string) (Result, error) {
	raw, err := e.gen.GenerateStructured(ctx, NewRequest(categories, recentTerms, userInput))
	if err != nil {
		return Result{}, err
	}

	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return Result{}, fmt.Errorf("decoding suggestion: %w", err)
	}
	return res, nil
}
