package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ametel/vidrank/internal/category"
	"github.com/ametel/vidrank/internal/feedback"
	"github.com/ametel/vidrank/internal/rerank"
)

// MCPDeps holds dependencies for the MCP server. It reuses the HTTP layer's
// consumer interfaces so both transports sit on the same core.
type MCPDeps struct {
	Recorder    FeedbackRecorder
	Suggester   Suggester
	Reranker    VideoReranker
	Recommender TermRecommender
}

// NewMCPServer creates an MCP server exposing the recommendation core as
// tools, so agent clients can record feedback and pull suggestions.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"vidrank",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("vidrank — personal YouTube search-term recommender learning from like/dislike feedback."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("record_feedback",
			mcp.WithDescription("Record a like or dislike reaction to a video. Best-effort: reports whether the reaction was stored."),
			mcp.WithString("action", mcp.Description("Either \"like\" or \"dislike\""), mcp.Required()),
			mcp.WithString("title", mcp.Description("The video title"), mcp.Required()),
			mcp.WithString("video_id", mcp.Description("The YouTube video id"), mcp.Required()),
		),
		mcpRecordFeedback(deps),
	)

	s.AddTool(
		mcp.NewTool("suggest_search_terms",
			mcp.WithDescription("Expand a free-text query into ranked candidate YouTube search terms using the user's feedback history."),
			mcp.WithString("query", mcp.Description("The user's free-text query"), mcp.Required()),
		),
		mcpSuggest(deps),
	)

	s.AddTool(
		mcp.NewTool("rerank_videos",
			mcp.WithDescription("Order candidate videos by the user's preference history. Returns a subset of the input."),
			mcp.WithString("candidates", mcp.Description("JSON array of {title, description, videoId} objects"), mcp.Required()),
		),
		mcpRerank(deps),
	)

	s.AddTool(
		mcp.NewTool("recommend_topic",
			mcp.WithDescription("Derive the single best next search term from accumulated feedback history. Empty when there is no history."),
		),
		mcpRecommend(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"vidrank://taxonomy",
			"Category Taxonomy",
			mcp.WithResourceDescription("The fixed category labels used to guide classification"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceTaxonomy(),
	)

	return s
}

func mcpRecordFeedback(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		action, err := req.RequireString("action")
		if err != nil {
			return mcpError("action is required"), nil
		}
		title, err := req.RequireString("title")
		if err != nil {
			return mcpError("title is required"), nil
		}
		videoID, err := req.RequireString("video_id")
		if err != nil {
			return mcpError("video_id is required"), nil
		}

		recorded := deps.Recorder.Record(ctx, feedback.Action(action), title, videoID)
		if !recorded {
			return mcpText(`{"recorded":false}`), nil
		}
		return mcpText(`{"recorded":true}`), nil
	}
}

func mcpSuggest(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		result, err := deps.Suggester.Suggest(ctx, query)
		if err != nil {
			return mcpError(fmt.Sprintf("suggestion failed: %v", err)), nil
		}

		b, err := json.Marshal(result)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpRerank(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := req.RequireString("candidates")
		if err != nil {
			return mcpError("candidates is required"), nil
		}

		var candidates []rerank.Candidate
		if err := json.Unmarshal([]byte(raw), &candidates); err != nil {
			return mcpError(fmt.Sprintf("invalid candidates JSON: %v", err)), nil
		}

		ranked, err := deps.Reranker.Rerank(ctx, candidates)
		if err != nil {
			return mcpError(fmt.Sprintf("rerank failed: %v", err)), nil
		}

		b, err := json.Marshal(ranked)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpRecommend(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		term := deps.Recommender.RecommendedTerm(ctx)
		b, err := json.Marshal(map[string]string{"term": term})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceTaxonomy() server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(category.Taxonomy)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal taxonomy: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
