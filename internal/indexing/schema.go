package indexing

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const documentSchemaURL = "https://docsmcp.local/schemas/document.schema.json"

//go:embed schema/document.schema.json
var documentSchemaJSON []byte

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

// Violation is one schema failure, addressed by JSON path
type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return v.Path + ": " + v.Message
}

// DocumentSchema returns the raw embedded JSON Schema for DocumentRecord
func DocumentSchema() []byte {
	return documentSchemaJSON
}

func documentSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(documentSchemaJSON))
		if err != nil {
			schemaErr = fmt.Errorf("failed to parse document schema: %w", err)
			return
		}

		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(documentSchemaURL, doc); err != nil {
			schemaErr = fmt.Errorf("failed to add document schema: %w", err)
			return
		}

		compiledSchema, schemaErr = compiler.Compile(documentSchemaURL)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("failed to compile document schema: %w", schemaErr)
		}
	})
	return compiledSchema, schemaErr
}

// ValidateJSON checks one JSON document against the DocumentRecord schema.
// A nil slice means the document is valid. The error is reserved for
// undecodable input or a broken schema.
func ValidateJSON(data []byte) ([]Violation, error) {
	schema, err := documentSchema()
	if err != nil {
		return nil, err
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	err = schema.Validate(inst)
	if err == nil {
		return nil, nil
	}

	var validationErr *jsonschema.ValidationError
	if !errors.As(err, &validationErr) {
		return []Violation{{Path: "$", Message: err.Error()}}, nil
	}
	return collectViolations(validationErr), nil
}

// ValidateRecord marshals rec and checks it against the schema
func ValidateRecord(rec DocumentRecord) ([]Violation, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	return ValidateJSON(data)
}

// collectViolations flattens the error tree down to its leaves
func collectViolations(validationErr *jsonschema.ValidationError) []Violation {
	if len(validationErr.Causes) == 0 {
		path := "$"
		if len(validationErr.InstanceLocation) > 0 {
			path = "$." + strings.Join(validationErr.InstanceLocation, ".")
		}
		return []Violation{{Path: path, Message: leafMessage(validationErr)}}
	}

	var violations []Violation
	for _, cause := range validationErr.Causes {
		violations = append(violations, collectViolations(cause)...)
	}
	return violations
}

// leafMessage keeps the last line of the rendered error, which is the
// failure itself without the schema location preamble
func leafMessage(validationErr *jsonschema.ValidationError) string {
	msg := strings.TrimSpace(validationErr.Error())
	if idx := strings.LastIndex(msg, "\n"); idx >= 0 {
		msg = strings.TrimSpace(msg[idx+1:])
	}
	return strings.TrimPrefix(msg, "- ")
}
