package llm

import "context"

// Message represents a chat message in provider wire format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Schema is the JSON Schema subset shared by both generation backends.
// Bounds fields use pointers so that zero values are omitted from the
// marshalled schema rather than sent as constraints.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
	MinItems    *int               `json:"minItems,omitempty"`
	MaxItems    *int               `json:"maxItems,omitempty"`
	MinLength   *int               `json:"minLength,omitempty"`
	MaxLength   *int               `json:"maxLength,omitempty"`
	Minimum     *float64           `json:"minimum,omitempty"`
	Maximum     *float64           `json:"maximum,omitempty"`
}

// Request bundles a prompt pair with the schema its output must satisfy.
// Each use case builds its Request through a single factory so prompt text
// and schema evolve together.
type Request struct {
	System string
	User   string
	Schema *Schema
}

// Generator produces a schema-conforming JSON value from a prompt pair.
type Generator interface {
	// GenerateStructured returns the raw JSON of a value conforming to
	// req.Schema. A *SchemaError is returned when the backend output
	// cannot be coerced to the schema.
	GenerateStructured(ctx context.Context, req Request) ([]byte, error)
}

// Embedder converts text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Provider is a backend capable of both embedding and structured generation.
type Provider interface {
	Generator
	Embedder

	// IsRunning reports whether the backend is reachable.
	IsRunning(ctx context.Context) bool
}

// Int returns a pointer to n, for schema bounds fields.
func Int(n int) *int { return &n }

// Float returns a pointer to f, for schema bounds fields.
func Float(f float64) *float64 { return &f }
