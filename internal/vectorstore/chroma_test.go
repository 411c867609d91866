package vectorstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// chromaHandler fakes the handful of Chroma endpoints the client uses.
func chromaHandler(t *testing.T, mux *http.ServeMux) {
	t.Helper()
	mux.HandleFunc("/api/v1/collections", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["name"] != "videos-collection" {
			t.Errorf("collection name = %v, want videos-collection", body["name"])
		}
		if body["get_or_create"] != true {
			t.Error("get_or_create not set")
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "col-1"})
	})
}

func newChromaTest(t *testing.T, mux *http.ServeMux) *ChromaIndex {
	t.Helper()
	chromaHandler(t, mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	idx, err := NewChromaIndex(context.Background(), ChromaConfig{
		URL:        srv.URL,
		Collection: "videos-collection",
	}, &stubEmbedder{vectors: map[string][]float32{
		"jazz piano": {1, 0},
	}})
	if err != nil {
		t.Fatalf("NewChromaIndex: %v", err)
	}
	return idx
}

func TestChromaInsert(t *testing.T) {
	mux := http.NewServeMux()
	var added struct {
		IDs        []string            `json:"ids"`
		Embeddings [][]float32         `json:"embeddings"`
		Documents  []string            `json:"documents"`
		Metadatas  []map[string]string `json:"metadatas"`
	}
	mux.HandleFunc("/api/v1/collections/col-1/add", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&added)
		w.WriteHeader(http.StatusCreated)
	})

	idx := newChromaTest(t, mux)
	d := Document{ID: "a", Content: "jazz piano", Metadata: map[string]string{MetaAction: "like"}}
	if err := idx.Insert(context.Background(), []Document{d}, []string{"a"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if len(added.IDs) != 1 || added.IDs[0] != "a" {
		t.Errorf("ids = %v, want [a]", added.IDs)
	}
	if len(added.Embeddings) != 1 || added.Embeddings[0][0] != 1 {
		t.Errorf("embeddings = %v, want the stub vector", added.Embeddings)
	}
	if added.Documents[0] != "jazz piano" {
		t.Errorf("documents = %v", added.Documents)
	}
	if added.Metadatas[0][MetaAction] != "like" {
		t.Errorf("metadatas = %v", added.Metadatas)
	}
}

func TestChromaSearchByVector(t *testing.T) {
	mux := http.NewServeMux()
	var queried map[string]any
	mux.HandleFunc("/api/v1/collections/col-1/query", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&queried)
		json.NewEncoder(w).Encode(map[string]any{
			"ids":       [][]string{{"a", "b"}},
			"documents": [][]string{{"jazz piano", "metal guitar"}},
			"metadatas": [][]map[string]string{{
				{MetaAction: "like"}, {MetaAction: "dislike"},
			}},
			"distances": [][]float32{{0.1, 0.6}},
		})
	})

	idx := newChromaTest(t, mux)
	results, err := idx.SearchByVector(context.Background(), []float32{1, 0}, 2,
		map[string]string{MetaAction: "like"})
	if err != nil {
		t.Fatalf("SearchByVector: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	// Cosine distance converts to similarity.
	if d := results[0].Score - 0.9; d > 1e-6 || d < -1e-6 {
		t.Errorf("Score = %v, want 0.9", results[0].Score)
	}
	if results[0].Content != "jazz piano" || results[0].Metadata[MetaAction] != "like" {
		t.Errorf("first result = %+v", results[0])
	}

	where, ok := queried["where"].(map[string]any)
	if !ok || where[MetaAction] != "like" {
		t.Errorf("where clause = %v, want action filter", queried["where"])
	}
	if queried["n_results"].(float64) != 2 {
		t.Errorf("n_results = %v, want 2", queried["n_results"])
	}
}

func TestChromaSearchByText_EmptyQuery(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/collections/col-1/get", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["limit"].(float64) != 20 {
			t.Errorf("limit = %v, want 20", body["limit"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"ids":       []string{"a"},
			"documents": []string{"jazz piano"},
			"metadatas": []map[string]string{{MetaAction: "like"}},
		})
	})

	idx := newChromaTest(t, mux)
	docs, err := idx.SearchByText(context.Background(), "", 20, nil)
	if err != nil {
		t.Fatalf("SearchByText: %v", err)
	}
	if len(docs) != 1 || docs[0].Content != "jazz piano" {
		t.Fatalf("docs = %+v", docs)
	}
}

func TestChromaErrorStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/collections/col-1/query", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	idx := newChromaTest(t, mux)
	if _, err := idx.SearchByVector(context.Background(), []float32{1, 0}, 2, nil); err == nil {
		t.Error("SearchByVector succeeded on server error")
	}
}
