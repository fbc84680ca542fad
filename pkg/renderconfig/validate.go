package renderconfig

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	schemasassets "github.com/evtools/esrender/internal/assets/schemas"
)

// SchemaID is the schema identifier for render configurations.
const SchemaID = "esrender/v1/render-configuration"

// Validation errors
var (
	// ErrSchemaNotFound indicates the schema could not be loaded.
	ErrSchemaNotFound = errors.New("render configuration schema not found")

	// ErrValidationFailed indicates the configuration failed schema validation.
	ErrValidationFailed = errors.New("render configuration validation failed")
)

// Cached schema instance (compiled once from the embedded document)
var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// ValidationError represents a single validation issue.
type ValidationError struct {
	// Path is the JSON pointer to the problematic field (e.g., "/jobs/0").
	Path string

	// Message describes the validation failure.
	Message string
}

// Error implements error interface.
func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var b strings.Builder
	b.WriteString("render configuration validation failed with ")
	b.WriteString(fmt.Sprintf("%d errors:\n", len(e)))
	for i, err := range e {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("  - ")
		b.WriteString(err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error type.
func (e ValidationErrors) Unwrap() error {
	return ErrValidationFailed
}

// ValidateRaw checks raw JSON data against the render-configuration schema.
//
// Validation runs on the raw document so unknown fields are rejected
// (additionalProperties: false) before struct decoding can silently drop
// them. The schema is embedded at compile time, so validation works in
// installed binaries and library consumers without schema files on disk.
//
// Returns nil if validation succeeds, or a ValidationErrors with details
// about all validation failures.
func ValidateRaw(jsonData []byte) error {
	sch, err := getSchema()
	if err != nil {
		return err
	}

	var document any
	if err := json.Unmarshal(jsonData, &document); err != nil {
		return fmt.Errorf("invalid JSON for schema validation: %w", err)
	}

	if err := sch.Validate(document); err != nil {
		var validationErr *jsonschema.ValidationError
		if errors.As(err, &validationErr) {
			return flattenValidationError(validationErr)
		}
		return fmt.Errorf("schema validation error: %w", err)
	}
	return nil
}

// getSchema returns the schema compiled from the embedded document.
//
// The schema is compiled once on first use and cached for subsequent calls.
// This is thread-safe via sync.Once.
func getSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		if len(schemasassets.RenderConfigurationSchema) == 0 {
			schemaErr = fmt.Errorf("%w: embedded render-configuration schema is empty", ErrSchemaNotFound)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("render-configuration.schema.json", bytes.NewReader(schemasassets.RenderConfigurationSchema)); err != nil {
			schemaErr = fmt.Errorf("failed to load render-configuration schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile("render-configuration.schema.json")
		if schemaErr != nil {
			schemaErr = fmt.Errorf("failed to compile render-configuration schema: %w", schemaErr)
		}
	})
	return schema, schemaErr
}

// flattenValidationError collects the leaf causes of a validation failure
// into a ValidationErrors value, one entry per offending location.
func flattenValidationError(root *jsonschema.ValidationError) ValidationErrors {
	var errs ValidationErrors
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			errs = append(errs, ValidationError{
				Path:    e.InstanceLocation,
				Message: e.Message,
			})
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(root)
	return errs
}
