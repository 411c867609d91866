package rerank

import (
	"fmt"
	"strings"

	"github.com/ametel/vidrank/internal/llm"
)

const rerankSystemTemplate = `You're the assistant responsible for finding the best match videos for a user's query and preferences.
Your task is to analyze the search results and return the top videos that best match the user's intent.
The user's liked video titles are: %s
`

// newRerankRequest builds the reranking prompt pair and its schema together.
func newRerankRequest(signals []string, candidates []Candidate) llm.Request {
	var sb strings.Builder
	sb.WriteString("Here are the candidate videos to rank by preference:\n\n")
	for i, c := range candidates {
		fmt.Fprintf(&sb, "%d. %s (ID: %s) description: %s\n", i+1, c.Title, c.VideoID, c.Description)
	}

	return llm.Request{
		System: fmt.Sprintf(rerankSystemTemplate, strings.Join(signals, ", ")),
		User:   sb.String(),
		Schema: rerankSchema(),
	}
}

func rerankSchema() *llm.Schema {
	return &llm.Schema{
		Type: "array",
		Items: &llm.Schema{
			Type: "object",
			Properties: map[string]*llm.Schema{
				"title":       {Type: "string"},
				"description": {Type: "string"},
				"videoId":     {Type: "string"},
			},
			Required: []string{"title", "description", "videoId"},
		},
	}
}
