package category

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ametel/vidrank/internal/llm"
)

// ErrNoTerms is returned when classification is requested for an empty term list.
var ErrNoTerms = errors.New("no terms to classify")

// Taxonomy is the fixed label set offered to the model as guidance.
// The model is prompted with it but not hard-constrained to it, so consumers
// must tolerate labels outside this list as well as duplicates.
var Taxonomy = []string{
	"Music", "Education", "Entertainment", "Sports", "News",
	"Technology", "Lifestyle", "Comedy", "Gaming", "Travel",
}

// Classifier maps sets of text snippets onto topic labels through one
// structured-generation call.
type Classifier struct {
	gen llm.Generator
}

// NewClassifier creates a Classifier using the given generator.
func NewClassifier(gen llm.Generator) *Classifier {
	return &Classifier{gen: gen}
}

const classifySystemTemplate = `You are an expert in categorizing YouTube videos into predefined categories.
The categories are: %s.
Analyze the following search terms and determine the most appropriate category that best fits the overall theme of these terms.`

// newClassifyRequest builds the prompt pair and schema together so they
// cannot drift apart.
func newClassifyRequest(terms []string) llm.Request {
	return llm.Request{
		System: fmt.Sprintf(classifySystemTemplate, strings.Join(Taxonomy, ", ")),
		User:   fmt.Sprintf("Search Terms: %s\n\nProvide only the category name as the output.", strings.Join(terms, ", ")),
		Schema: categoriesSchema(),
	}
}

// categoriesSchema declares an unbounded array of labels; the model decides
// how many to return.
func categoriesSchema() *llm.Schema {
	return &llm.Schema{
		Type: "array",
		Items: &llm.Schema{
			Type: "object",
			Properties: map[string]*llm.Schema{
				"name": {Type: "string", MinLength: llm.Int(2), MaxLength: llm.Int(100)},
			},
			Required: []string{"name"},
		},
	}
}

// Classify returns topic label names for the given terms, in model order and
// without deduplication. Provider failures propagate to the caller; there is
// no fallback at this level.
func (c *Classifier) Classify(ctx context.Context, terms []string) ([]string, error) {
	if len(terms) == 0 {
		return nil, ErrNoTerms
	}

	raw, err := c.gen.GenerateStructured(ctx, newClassifyRequest(terms))
	if err != nil {
		return nil, fmt.Errorf("classifying terms: %w", err)
	}

	var labels []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &labels); err != nil {
		return nil, fmt.Errorf("decoding categories: %w", err)
	}

	names := make([]string, len(labels))
	for i, l := range labels {
		names[i] = l.Name
	}
	return names, nil
}
