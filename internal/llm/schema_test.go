package llm

import (
	"errors"
	"testing"
)

func termListSchema() *Schema {
	return &Schema{
		Type: "object",
		Properties: map[string]*Schema{
			"searchTerms": {
				Type:     "array",
				MinItems: Int(1),
				MaxItems: Int(5),
				Items: &Schema{
					Type: "object",
					Properties: map[string]*Schema{
						"term":       {Type: "string", MinLength: Int(2), MaxLength: Int(100)},
						"matchScore": {Type: "number", Minimum: Float(0), Maximum: Float(100)},
					},
					Required: []string{"term", "matchScore"},
				},
			},
			"sentiment": {Type: "string", MinLength: Int(2), MaxLength: Int(100)},
		},
		Required: []string{"searchTerms", "sentiment"},
	}
}

func TestValidate_OK(t *testing.T) {
	raw := []byte(`{"searchTerms":[{"term":"jazz piano","matchScore":87}],"sentiment":"curious"}`)
	if err := termListSchema().Validate(raw); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidate_NotJSON(t *testing.T) {
	err := termListSchema().Validate([]byte(`{"searchTerms":`))
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("got %v, want *SchemaError", err)
	}
}

func TestValidate_MissingRequired(t *testing.T) {
	raw := []byte(`{"searchTerms":[{"term":"jazz piano","matchScore":87}]}`)
	err := termListSchema().Validate(raw)
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("got %v, want *SchemaError", err)
	}
	if se.Path != "sentiment" {
		t.Errorf("Path = %q, want %q", se.Path, "sentiment")
	}
}

func TestValidate_ArrayBounds(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", `{"searchTerms":[],"sentiment":"curious"}`},
		{"too many", `{"searchTerms":[
			{"term":"aa","matchScore":1},{"term":"bb","matchScore":1},{"term":"cc","matchScore":1},
			{"term":"dd","matchScore":1},{"term":"ee","matchScore":1},{"term":"ff","matchScore":1}],
			"sentiment":"curious"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := termListSchema().Validate([]byte(tt.raw))
			var se *SchemaError
			if !errors.As(err, &se) {
				t.Fatalf("got %v, want *SchemaError", err)
			}
			if se.Path != "searchTerms" {
				t.Errorf("Path = %q, want %q", se.Path, "searchTerms")
			}
		})
	}
}

func TestValidate_NestedPath(t *testing.T) {
	raw := []byte(`{"searchTerms":[{"term":"jazz","matchScore":5},{"term":"x","matchScore":5}],"sentiment":"curious"}`)
	err := termListSchema().Validate(raw)
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("got %v, want *SchemaError", err)
	}
	if se.Path != "searchTerms.1.term" {
		t.Errorf("Path = %q, want %q", se.Path, "searchTerms.1.term")
	}
}

func TestValidate_NumberBounds(t *testing.T) {
	raw := []byte(`{"searchTerms":[{"term":"jazz","matchScore":101}],"sentiment":"curious"}`)
	if err := termListSchema().Validate(raw); err == nil {
		t.Fatal("Validate accepted matchScore above maximum")
	}
	raw = []byte(`{"searchTerms":[{"term":"jazz","matchScore":-1}],"sentiment":"curious"}`)
	if err := termListSchema().Validate(raw); err == nil {
		t.Fatal("Validate accepted matchScore below minimum")
	}
}

func TestValidate_RuneLength(t *testing.T) {
	// Two runes, six bytes: length limits count runes.
	raw := []byte(`{"searchTerms":[{"term":"ジャ","matchScore":5}],"sentiment":"curious"}`)
	if err := termListSchema().Validate(raw); err != nil {
		t.Fatalf("Validate rejected two-rune term: %v", err)
	}
}

func TestValidate_TypeMismatch(t *testing.T) {
	raw := []byte(`{"searchTerms":"jazz","sentiment":"curious"}`)
	err := termListSchema().Validate(raw)
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("got %v, want *SchemaError", err)
	}
}

func TestValidate_TopLevelArray(t *testing.T) {
	s := &Schema{
		Type: "array",
		Items: &Schema{
			Type:       "object",
			Properties: map[string]*Schema{"name": {Type: "string", MinLength: Int(2)}},
			Required:   []string{"name"},
		},
	}
	if err := s.Validate([]byte(`[{"name":"Comedy"},{"name":"Music"}]`)); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := s.Validate([]byte(`[{"label":"Comedy"}]`)); err == nil {
		t.Fatal("Validate accepted object missing required field")
	}
}
