package llm

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// SchemaError reports that generated output does not conform to the schema
// it was requested against. Path points at the offending value in JSON
// pointer-ish dotted form ("searchTerms.2.term").
type SchemaError struct {
	Path string
	Msg  string
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return "schema validation: " + e.Msg
	}
	return fmt.Sprintf("schema validation at %s: %s", e.Path, e.Msg)
}

// Validate checks raw JSON against the schema. Backends call this on model
// output before handing it to callers, so that out-of-bounds results surface
// as *SchemaError instead of silently flowing downstream.
func (s *Schema) Validate(raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return &SchemaError{Msg: fmt.Sprintf("not valid JSON: %v", err)}
	}
	return s.validate(v, "")
}

func (s *Schema) validate(v any, path string) error {
	switch s.Type {
	case "object":
		obj, ok := v.(map[string]any)
		if !ok {
			return &SchemaError{Path: path, Msg: fmt.Sprintf("expected object, got %T", v)}
		}
		for _, req := range s.Required {
			if _, present := obj[req]; !present {
				return &SchemaError{Path: join(path, req), Msg: "required field missing"}
			}
		}
		for key, sub := range s.Properties {
			val, present := obj[key]
			if !present {
				continue
			}
			if err := sub.validate(val, join(path, key)); err != nil {
				return err
			}
		}
	case "array":
		arr, ok := v.([]any)
		if !ok {
			return &SchemaError{Path: path, Msg: fmt.Sprintf("expected array, got %T", v)}
		}
		if s.MinItems != nil && len(arr) < *s.MinItems {
			return &SchemaError{Path: path, Msg: fmt.Sprintf("%d items, minimum is %d", len(arr), *s.MinItems)}
		}
		if s.MaxItems != nil && len(arr) > *s.MaxItems {
			return &SchemaError{Path: path, Msg: fmt.Sprintf("%d items, maximum is %d", len(arr), *s.MaxItems)}
		}
		if s.Items != nil {
			for i, item := range arr {
				if err := s.Items.validate(item, fmt.Sprintf("%s.%d", path, i)); err != nil {
					return err
				}
			}
		}
	case "string":
		str, ok := v.(string)
		if !ok {
			return &SchemaError{Path: path, Msg: fmt.Sprintf("expected string, got %T", v)}
		}
		n := utf8.RuneCountInString(str)
		if s.MinLength != nil && n < *s.MinLength {
			return &SchemaError{Path: path, Msg: fmt.Sprintf("length %d, minimum is %d", n, *s.MinLength)}
		}
		if s.MaxLength != nil && n > *s.MaxLength {
			return &SchemaError{Path: path, Msg: fmt.Sprintf("length %d, maximum is %d", n, *s.MaxLength)}
		}
	case "number", "integer":
		num, ok := v.(float64)
		if !ok {
			return &SchemaError{Path: path, Msg: fmt.Sprintf("expected number, got %T", v)}
		}
		if s.Minimum != nil && num < *s.Minimum {
			return &SchemaError{Path: path, Msg: fmt.Sprintf("%v is below minimum %v", num, *s.Minimum)}
		}
		if s.Maximum != nil && num > *s.Maximum {
			return &SchemaError{Path: path, Msg: fmt.Sprintf("%v is above maximum %v", num, *s.Maximum)}
		}
	case "boolean":
		if _, ok := v.(bool); !ok {
			return &SchemaError{Path: path, Msg: fmt.Sprintf("expected boolean, got %T", v)}
		}
	}
	return nil
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
