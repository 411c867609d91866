package recommend

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/ametel/vidrank/internal/llm"
	"github.com/ametel/vidrank/internal/suggest"
	"github.com/ametel/vidrank/internal/vectorstore"
)

// TextSearcher is the plain retrieval capability the aggregator needs.
type TextSearcher interface {
	SearchByText(ctx context.Context, query string, topK int, filter map[string]string) ([]vectorstore.Document, error)
}

// Classifier maps titles onto topic labels.
type Classifier interface {
	Classify(ctx context.Context, terms []string) ([]string, error)
}

// Aggregator derives a single best search term from accumulated feedback
// history, for cold-start-free landing page suggestions.
type Aggregator struct {
	index      TextSearcher
	classifier Classifier
	gen        llm.Generator
}

// NewAggregator wires the aggregator to its collaborators.
func NewAggregator(index TextSearcher, classifier Classifier, gen llm.Generator) *Aggregator {
	return &Aggregator{index: index, classifier: classifier, gen: gen}
}

// historyWindow is how many stored documents seed the recommendation.
const historyWindow = 20

// RecommendedTerm returns the term with the highest match score derived from
// the user's history, or "" when there is no history. It never fails: every
// collaborator error is logged and absorbed into the empty string.
func (a *Aggregator) RecommendedTerm(ctx context.Context) string {
	docs, err := a.index.SearchByText(ctx, "", historyWindow, nil)
	if err != nil {
		slog.Warn("recommend: history lookup failed", "error", err)
		return ""
	}
	if len(docs) == 0 {
		return ""
	}

	titles := make([]string, len(docs))
	for i, doc := range docs {
		titles[i] = doc.Content
	}

	categories, err := a.classifier.Classify(ctx, titles)
	if err != nil {
		slog.Warn("recommend: classification failed", "error", err)
		return ""
	}

	joined := strings.Join(titles, ", ")
	raw, err := a.gen.GenerateStructured(ctx, suggest.NewRequest(categories, titles, joined))
	if err != nil {
		slog.Warn("recommend: generation failed", "error", err)
		return ""
	}

	var res suggest.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		slog.Warn("recommend: decoding suggestion failed", "error", err)
		return ""
	}

	best, ok := res.BestTerm()
	if !ok {
		return ""
	}
	return best.Term
}
