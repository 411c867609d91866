package suggest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ametel/vidrank/internal/llm"
	"github.com/ametel/vidrank/internal/vectorstore"
)

// --- mocks ---

type mockEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	m.calls++
	return m.vec, m.err
}

type mockSearcher struct {
	scored     []vectorstore.ScoredDocument
	err        error
	calls      int
	lastFilter map[string]string
}

func (m *mockSearcher) SearchByVector(_ context.Context, _ []float32, _ int, filter map[string]string) ([]vectorstore.ScoredDocument, error) {
	m.calls++
	m.lastFilter = filter
	return m.scored, m.err
}

type mockClassifier struct {
	labels []string
	err    error
	calls  int
}

func (m *mockClassifier) Classify(_ context.Context, _ []string) ([]string, error) {
	m.calls++
	return m.labels, m.err
}

// mockGenerator returns its responses in order, one per call.
type mockGenerator struct {
	responses []response
	requests  []llm.Request
	calls     int
}

type response struct {
	raw []byte
	err error
}

func (m *mockGenerator) GenerateStructured(_ context.Context, req llm.Request) ([]byte, error) {
	m.requests = append(m.requests, req)
	r := m.responses[m.calls]
	m.calls++
	return r.raw, r.err
}

func likedDoc(title string) vectorstore.ScoredDocument {
	return vectorstore.ScoredDocument{
		Document: vectorstore.Document{
			Content:  title,
			Metadata: map[string]string{vectorstore.MetaAction: "like"},
		},
		Score: 0.9,
	}
}

const goodResult = `{"searchTerms":[{"term":"lofi jazz mix","matchScore":91},{"term":"piano covers","matchScore":74}],"sentiment":"relaxed","context":"background music for work"}`

func TestSuggest_EnrichedPath(t *testing.T) {
	emb := &mockEmbedder{vec: []float32{0.1, 0.2}}
	idx := &mockSearcher{scored: []vectorstore.ScoredDocument{likedDoc("Bill Evans live"), likedDoc("Chet Baker ballads")}}
	cls := &mockClassifier{labels: []string{"Music"}}
	gen := &mockGenerator{responses: []response{{raw: []byte(goodResult)}}}

	e := NewEngine(emb, idx, cls, gen)
	res, err := e.Suggest(context.Background(), "calm jazz")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}

	if len(res.SearchTerms) != 2 {
		t.Fatalf("got %d terms, want 2", len(res.SearchTerms))
	}
	// Terms come back in model order; the engine does not sort.
	if res.SearchTerms[0].Term != "lofi jazz mix" || res.SearchTerms[1].Term != "piano covers" {
		t.Errorf("terms = %v, want model order preserved", res.SearchTerms)
	}
	if res.Sentiment != "relaxed" || res.Context != "background music for work" {
		t.Errorf("sentiment/context = %q/%q", res.Sentiment, res.Context)
	}

	if cls.calls != 1 {
		t.Errorf("classifier called %d times, want 1", cls.calls)
	}
	if gen.calls != 1 {
		t.Errorf("generator called %d times, want 1", gen.calls)
	}
	if idx.lastFilter[vectorstore.MetaAction] != "like" {
		t.Errorf("history filter = %v, want action=like", idx.lastFilter)
	}

	sys := gen.requests[0].System
	if !strings.Contains(sys, "Music") {
		t.Errorf("system prompt missing category: %q", sys)
	}
	if !strings.Contains(sys, "Bill Evans live") || !strings.Contains(sys, "Chet Baker ballads") {
		t.Errorf("system prompt missing liked history: %q", sys)
	}
}

func TestSuggest_EmptyHistorySkipsClassification(t *testing.T) {
	emb := &mockEmbedder{vec: []float32{0.1}}
	idx := &mockSearcher{}
	cls := &mockClassifier{}
	gen := &mockGenerator{responses: []response{{raw: []byte(goodResult)}}}

	e := NewEngine(emb, idx, cls, gen)
	if _, err := e.Suggest(context.Background(), "calm jazz"); err != nil {
		t.Fatalf("Suggest: %v", err)
	}

	if cls.calls != 0 {
		t.Errorf("classifier called %d times with empty history, want 0", cls.calls)
	}
	if gen.calls != 1 {
		t.Errorf("generator called %d times, want 1", gen.calls)
	}
}

func TestSuggest_EmbedFailurePropagates(t *testing.T) {
	embErr := errors.New("embedder down")
	emb := &mockEmbedder{err: embErr}
	idx := &mockSearcher{}
	gen := &mockGenerator{responses: []response{{raw: []byte(goodResult)}}}

	e := NewEngine(emb, idx, &mockClassifier{}, gen)
	if _, err := e.Suggest(context.Background(), "calm jazz"); !errors.Is(err, embErr) {
		t.Fatalf("got %v, want embed error", err)
	}
	// Embedding sits outside the retried unit: no fallback attempt.
	if gen.calls != 0 {
		t.Errorf("generator called %d times after embed failure, want 0", gen.calls)
	}
	if idx.calls != 0 {
		t.Errorf("index called %d times after embed failure, want 0", idx.calls)
	}
}

func TestSuggest_HistoryFailureFallsBack(t *testing.T) {
	emb := &mockEmbedder{vec: []float32{0.1}}
	idx := &mockSearcher{err: errors.New("index offline")}
	cls := &mockClassifier{}
	gen := &mockGenerator{responses: []response{{raw: []byte(goodResult)}}}

	e := NewEngine(emb, idx, cls, gen)
	res, err := e.Suggest(context.Background(), "calm jazz")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(res.SearchTerms) != 2 {
		t.Fatalf("got %d terms, want fallback result", len(res.SearchTerms))
	}

	// Exactly one retry, with empty context and no second index lookup.
	if idx.calls != 1 {
		t.Errorf("index called %d times, want 1", idx.calls)
	}
	if gen.calls != 1 {
		t.Errorf("generator called %d times, want 1", gen.calls)
	}
	sys := gen.requests[0].System
	if !strings.Contains(sys, "preferred video categories: \n") {
		t.Errorf("fallback system prompt carries non-empty categories: %q", sys)
	}
}

func TestSuggest_ClassifyFailureFallsBack(t *testing.T) {
	emb := &mockEmbedder{vec: []float32{0.1}}
	idx := &mockSearcher{scored: []vectorstore.ScoredDocument{likedDoc("Bill Evans live")}}
	cls := &mockClassifier{err: errors.New("backend overloaded")}
	gen := &mockGenerator{responses: []response{{raw: []byte(goodResult)}}}

	e := NewEngine(emb, idx, cls, gen)
	res, err := e.Suggest(context.Background(), "calm jazz")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(res.SearchTerms) == 0 {
		t.Fatal("fallback produced no terms")
	}
	if idx.calls != 1 {
		t.Errorf("index called %d times, want 1", idx.calls)
	}
	if gen.calls != 1 {
		t.Errorf("generator called %d times, want 1", gen.calls)
	}
}

func TestSuggest_FirstGenerationFailureFallsBack(t *testing.T) {
	emb := &mockEmbedder{vec: []float32{0.1}}
	idx := &mockSearcher{scored: []vectorstore.ScoredDocument{likedDoc("Bill Evans live")}}
	cls := &mockClassifier{labels: []string{"Music"}}
	gen := &mockGenerator{responses: []response{
		{err: errors.New("model busy")},
		{raw: []byte(goodResult)},
	}}

	e := NewEngine(emb, idx, cls, gen)
	res, err := e.Suggest(context.Background(), "calm jazz")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(res.SearchTerms) != 2 {
		t.Fatalf("got %d terms, want fallback result", len(res.SearchTerms))
	}
	if gen.calls != 2 {
		t.Errorf("generator called %d times, want 2", gen.calls)
	}
	// The retry must not reuse the enriched context.
	if strings.Contains(gen.requests[1].System, "Bill Evans live") {
		t.Errorf("fallback prompt still carries history: %q", gen.requests[1].System)
	}
}

func TestSuggest_FallbackFailurePropagates(t *testing.T) {
	fallbackErr := errors.New("model busy")
	emb := &mockEmbedder{vec: []float32{0.1}}
	idx := &mockSearcher{err: errors.New("index offline")}
	gen := &mockGenerator{responses: []response{{err: fallbackErr}}}

	e := NewEngine(emb, idx, &mockClassifier{}, gen)
	if _, err := e.Suggest(context.Background(), "calm jazz"); !errors.Is(err, fallbackErr) {
		t.Fatalf("got %v, want fallback error", err)
	}
	if gen.calls != 1 {
		t.Errorf("generator called %d times, want 1 (no retry of the fallback)", gen.calls)
	}
}

func TestBestTerm(t *testing.T) {
	r := Result{SearchTerms: []SearchTerm{
		{Term: "first", MatchScore: 50},
		{Term: "peak", MatchScore: 90},
		{Term: "also peak", MatchScore: 90},
	}}
	best, ok := r.BestTerm()
	if !ok {
		t.Fatal("BestTerm() ok = false")
	}
	// Ties resolve to the earliest entry.
	if best.Term != "peak" {
		t.Errorf("BestTerm() = %q, want %q", best.Term, "peak")
	}

	if _, ok := (Result{}).BestTerm(); ok {
		t.Error("BestTerm() ok = true for empty result")
	}
}
