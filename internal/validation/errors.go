package validation

import "errors"

// ErrSchema matches every *SchemaError with errors.Is.
var ErrSchema = errors.New("schema error")

// SchemaError reports raw data that violates the weather input contract.
// It is not recoverable; the pipeline run must stop.
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string {
	return "schema error: " + e.Reason
}

func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}

func schemaError(reason string) error {
	return &SchemaError{Reason: reason}
}
