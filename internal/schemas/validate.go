// Package schemas provides JSON Schema validation for structured LLM responses.
// Schemas are embedded at compile time; validation returns a tagged Result so
// every call site handles the malformed case explicitly instead of catching
// an error type.
package schemas

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed *.schema.json
var schemaFiles embed.FS

// Schema file names embedded in this package.
const (
	BrandProfileSchema = "brand_profile.schema.json"
	PersonasSchema     = "personas.schema.json"
	JudgmentSchema     = "judgment.schema.json"
)

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

// Result is the outcome of validating a document against a schema.
// A zero Result is invalid; use Valid() to branch.
type Result struct {
	valid  bool
	errors []FieldError
}

// Valid reports whether the document conformed to the schema.
func (r Result) Valid() bool {
	return r.valid
}

// Errors returns the field-level validation errors, empty when valid.
func (r Result) Errors() []FieldError {
	return r.errors
}

// Reason returns a single human-readable description of why validation failed.
func (r Result) Reason() string {
	if r.valid {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("schema validation failed:")
	for i, err := range r.errors {
		sb.WriteString(fmt.Sprintf(" %d. %s: %s", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// compiled caches parsed schemas to avoid recompiling per call
var (
	compiled   = make(map[string]*gojsonschema.Schema)
	compiledMu sync.Mutex
)

func load(name string) (*gojsonschema.Schema, error) {
	compiledMu.Lock()
	defer compiledMu.Unlock()

	if schema, ok := compiled[name]; ok {
		return schema, nil
	}

	data, err := schemaFiles.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema %s: %w", name, err)
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	compiled[name] = schema
	return schema, nil
}

// Validate checks a JSON document against a named embedded schema.
// A document that fails to parse as JSON yields an invalid Result, not an
// error; the returned error covers schema loading problems only.
func Validate(schemaName, document string) (Result, error) {
	schema, err := load(schemaName)
	if err != nil {
		return Result{}, err
	}

	outcome, err := schema.Validate(gojsonschema.NewStringLoader(document))
	if err != nil {
		// Malformed document (not parseable JSON) is an untrusted-responder
		// problem, reported through the tagged result.
		return Result{
			valid: false,
			errors: []FieldError{
				{Field: "(root)", Message: fmt.Sprintf("document is not valid JSON: %v", err)},
			},
		}, nil
	}

	if outcome.Valid() {
		return Result{valid: true}, nil
	}

	result := Result{
		valid:  false,
		errors: make([]FieldError, 0, len(outcome.Errors())),
	}
	for _, desc := range outcome.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		result.errors = append(result.errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}

	return result, nil
}

// MustSchemaJSON returns the raw JSON text of an embedded schema, for
// inclusion in prompt templates. Panics if the schema does not exist.
func MustSchemaJSON(name string) string {
	data, err := schemaFiles.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to load schema %s: %v", name, err))
	}
	return string(data)
}
