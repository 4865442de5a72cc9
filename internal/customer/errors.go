package customer

import (
	"errors"
	"strings"
)

// Error types reported in FieldError.Type.
const (
	ErrTypeMissing          = "missing"
	ErrTypeLiteral          = "literal_error"
	ErrTypeGreaterThanEqual = "greater_than_equal"
	ErrTypeLessThanEqual    = "less_than_equal"
	ErrTypeInt              = "int_type"
	ErrTypeIntFromFloat     = "int_from_float"
	ErrTypeFloat            = "float_type"
	ErrTypeString           = "string_type"
	ErrTypeJSON             = "json_invalid"
)

// FieldError describes one rejected attribute. Field is empty when the
// payload as a whole could not be read.
type FieldError struct {
	Field   string `json:"field"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ValidationError rejects a whole customer record.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		if f.Field == "" {
			parts = append(parts, f.Message)
			continue
		}
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid customer record: " + strings.Join(parts, "; ")
}

// Has reports whether field was among the rejected attributes.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// AsValidationError unwraps err into a *ValidationError when it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
