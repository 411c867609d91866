package api

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ametel/vidrank/internal/rerank"
	"github.com/ametel/vidrank/internal/suggest"
)

// --- helpers ---

func testMCPDeps() MCPDeps {
	return MCPDeps{
		Recorder:    &mockRecorder{ok: true},
		Suggester:   &mockSuggester{},
		Reranker:    &mockReranker{},
		Recommender: &mockRecommender{},
	}
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// --- tests ---

func TestMCPTool_RecordFeedback(t *testing.T) {
	deps := testMCPDeps()
	rec := &mockRecorder{ok: true}
	deps.Recorder = rec
	handler := mcpRecordFeedback(deps)

	req := makeCallToolRequest("record_feedback", map[string]interface{}{
		"action":   "like",
		"title":    "Go Talks",
		"video_id": "vidA",
	})
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}
	if toolText(t, result) != `{"recorded":true}` {
		t.Errorf("text = %s", toolText(t, result))
	}
	if rec.lastTitle != "Go Talks" || rec.lastID != "vidA" {
		t.Errorf("recorder got %q %q", rec.lastTitle, rec.lastID)
	}
}

func TestMCPTool_RecordFeedback_MissingArg(t *testing.T) {
	handler := mcpRecordFeedback(testMCPDeps())

	req := makeCallToolRequest("record_feedback", map[string]interface{}{
		"action": "like",
		"title":  "Go Talks",
	})
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("expected tool error for missing video_id")
	}
}

func TestMCPTool_Suggest(t *testing.T) {
	deps := testMCPDeps()
	deps.Suggester = &mockSuggester{res: suggest.Result{
		SearchTerms: []suggest.SearchTerm{{Term: "lofi jazz", MatchScore: 88}},
		Sentiment:   "relaxed",
		Context:     "focus music",
	}}
	handler := mcpSuggest(deps)

	req := makeCallToolRequest("suggest_search_terms", map[string]interface{}{"query": "calm jazz"})
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	var res suggest.Result
	if err := json.Unmarshal([]byte(toolText(t, result)), &res); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(res.SearchTerms) != 1 || res.SearchTerms[0].Term != "lofi jazz" {
		t.Errorf("result = %+v", res)
	}
}

func TestMCPTool_Suggest_Failure(t *testing.T) {
	deps := testMCPDeps()
	deps.Suggester = &mockSuggester{err: errors.New("provider down")}
	handler := mcpSuggest(deps)

	req := makeCallToolRequest("suggest_search_terms", map[string]interface{}{"query": "calm jazz"})
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("expected tool error on upstream failure")
	}
}

func TestMCPTool_Rerank(t *testing.T) {
	deps := testMCPDeps()
	deps.Reranker = &mockReranker{out: []rerank.Candidate{{Title: "B", VideoID: "vidB"}}}
	handler := mcpRerank(deps)

	req := makeCallToolRequest("rerank_videos", map[string]interface{}{
		"candidates": `[{"title":"A","videoId":"vidA"},{"title":"B","videoId":"vidB"}]`,
	})
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	var ranked []rerank.Candidate
	if err := json.Unmarshal([]byte(toolText(t, result)), &ranked); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(ranked) != 1 || ranked[0].VideoID != "vidB" {
		t.Errorf("ranked = %+v", ranked)
	}
}

func TestMCPTool_Rerank_BadJSON(t *testing.T) {
	handler := mcpRerank(testMCPDeps())

	req := makeCallToolRequest("rerank_videos", map[string]interface{}{"candidates": `[{"title":`})
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("expected tool error for invalid candidates JSON")
	}
}

func TestMCPTool_Recommend(t *testing.T) {
	deps := testMCPDeps()
	deps.Recommender = &mockRecommender{term: "home fermentation"}
	handler := mcpRecommend(deps)

	result, err := handler(context.Background(), makeCallToolRequest("recommend_topic", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toolText(t, result) != `{"term":"home fermentation"}` {
		t.Errorf("text = %s", toolText(t, result))
	}
}

func TestMCPResource_Taxonomy(t *testing.T) {
	handler := mcpResourceTaxonomy()

	req := mcp.ReadResourceRequest{Params: mcp.ReadResourceParams{URI: "vidrank://taxonomy"}}
	contents, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("got %d contents, want 1", len(contents))
	}
	trc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}

	var labels []string
	if err := json.Unmarshal([]byte(trc.Text), &labels); err != nil {
		t.Fatalf("failed to parse taxonomy: %v", err)
	}
	if len(labels) != 10 {
		t.Errorf("got %d labels, want 10", len(labels))
	}
}
