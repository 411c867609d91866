package suggest

import (
	"fmt"
	"strings"

	"github.com/ametel/vidrank/internal/llm"
)

const systemPromptTemplate = `You are the personal assistant for YouTube Video suggestions.
You need to suggest the best videos search terms based on user input.
1. Analyze the user's query and then provide a list of relevant search terms.
2. Sentiment analysis: Determine the sentiment of the user's query intention which mode like learning, entertainment, etc.
3. Contextual understanding: Align the original user's search term and your suggested search terms.
4. Output: Provide the final search terms with most relevance to the user's query.

User's preferred video categories: %s
Last searched term for this topic: %s
`

// NewRequest builds the structured-generation request shared by the
// suggestion engine and the recommendation aggregator. Prompt text and
// output schema live in one place so they evolve together.
func NewRequest(categories, recentTerms []string, userInput string) llm.Request {
	return llm.Request{
		System: fmt.Sprintf(systemPromptTemplate, strings.Join(categories, ", "), strings.Join(recentTerms, ", ")),
		User:   userInput,
		Schema: resultSchema(),
	}
}

func resultSchema() *llm.Schema {
	return &llm.Schema{
		Type: "object",
		Properties: map[string]*llm.Schema{
			"searchTerms": {
				Type:        "array",
				Description: "The list of suggested search terms",
				MinItems:    llm.Int(1),
				MaxItems:    llm.Int(5),
				Items: &llm.Schema{
					Type: "object",
					Properties: map[string]*llm.Schema{
						"term": {
							Type:        "string",
							Description: "The suggested search term",
							MinLength:   llm.Int(2),
							MaxLength:   llm.Int(100),
						},
						"matchScore": {
							Type:        "number",
							Description: "The relevance score of the term",
							Minimum:     llm.Float(0),
							Maximum:     llm.Float(100),
						},
					},
					Required: []string{"term", "matchScore"},
				},
			},
			"sentiment": {
				Type:        "string",
				Description: "The sentiment of the user's query",
				MinLength:   llm.Int(2),
				MaxLength:   llm.Int(100),
			},
			"context": {
				Type:        "string",
				Description: "The context of the user's query",
				MinLength:   llm.Int(2),
				MaxLength:   llm.Int(100),
			},
		},
		Required: []string{"searchTerms", "sentiment", "context"},
	}
}
