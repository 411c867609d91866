package rerank

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ametel/vidrank/internal/llm"
	"github.com/ametel/vidrank/internal/vectorstore"
)

// ErrNoCandidates is returned when reranking is requested for an empty list.
var ErrNoCandidates = errors.New("no candidates to rerank")

// Candidate is one video under consideration, supplied by the caller from an
// external video search. Candidates are never persisted.
type Candidate struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	VideoID     string `json:"videoId"`
}

// Searcher is the nearest-neighbor query capability the reranker needs.
type Searcher interface {
	SearchByVector(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]vectorstore.ScoredDocument, error)
}

// Reranker orders and filters candidate videos against the user's feedback
// history. Failures propagate; there is no fallback at this level.
type Reranker struct {
	embedder llm.Embedder
	index    Searcher
	gen      llm.Generator
}

// NewReranker wires the reranker to its collaborators.
func NewReranker(embedder llm.Embedder, index Searcher, gen llm.Generator) *Reranker {
	return &Reranker{embedder: embedder, index: index, gen: gen}
}

// historyNeighbors is how many history documents (likes and dislikes alike)
// are surfaced to the model as preference signals.
const historyNeighbors = 10

// Rerank returns a relevance-ordered subsequence of candidates. Entries the
// model invents or mangles are dropped: only videoIds present in the input
// survive, and the surviving entries carry the input candidate's own fields.
func (r *Reranker) Rerank(ctx context.Context, candidates []Candidate) ([]Candidate, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	titles := make([]string, len(candidates))
	for i, c := range candidates {
		titles[i] = c.Title
	}

	vec, err := r.embedder.Embed(ctx, strings.Join(titles, ","))
	if err != nil {
		return nil, fmt.Errorf("embedding candidate titles: %w", err)
	}

	scored, err := r.index.SearchByVector(ctx, vec, historyNeighbors, nil)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}

	signals := make([]string, 0, len(scored))
	for _, sd := range scored {
		signals = append(signals, sd.Content)
	}

	raw, err := r.gen.GenerateStructured(ctx, newRerankRequest(signals, candidates))
	if err != nil {
		return nil, fmt.Errorf("reranking candidates: %w", err)
	}

	var picked []Candidate
	if err := json.Unmarshal(raw, &picked); err != nil {
		return nil, fmt.Errorf("decoding reranked candidates: %w", err)
	}

	byID := make(map[string]Candidate, len(candidates))
	for _, c := range candidates {
		byID[c.VideoID] = c
	}

	result := make([]Candidate, 0, len(picked))
	seen := make(map[string]bool, len(picked))
	for _, p := range picked {
		input, ok := byID[p.VideoID]
		if !ok || seen[p.VideoID] {
			continue
		}
		seen[p.VideoID] = true
		result = append(result, input)
	}
	return result, nil
}
