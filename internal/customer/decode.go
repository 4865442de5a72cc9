package customer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"sort"
)

// Decode reads exactly one JSON object from r and validates it. Malformed
// JSON, trailing data and mistyped attributes are reported as a
// *ValidationError together with any missing or out-of-range attributes.
func Decode(r io.Reader) (Record, error) {
	dec := json.NewDecoder(r)

	var raw map[string]json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return Record{}, &ValidationError{Fields: []FieldError{decodeFieldError(err)}}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return Record{}, &ValidationError{Fields: []FieldError{{
			Type:    ErrTypeJSON,
			Message: "JSON decode error: unexpected data after the customer record",
		}}}
	}

	in, typeErrs := decodeFields(raw)
	return newWithTypeErrors(in, typeErrs)
}

// decodeFields fills an Input from the raw attributes. JSON null counts as
// missing; unknown keys are ignored.
func decodeFields(raw map[string]json.RawMessage) (Input, []FieldError) {
	var (
		in   Input
		errs []FieldError
	)

	intField := func(name string, dst **int) {
		v, ok := rawValue(raw, name)
		if !ok {
			return
		}
		n, fe := toInt(name, v)
		if fe != nil {
			errs = append(errs, *fe)
			return
		}
		*dst = &n
	}
	floatField := func(name string, dst **float64) {
		v, ok := rawValue(raw, name)
		if !ok {
			return
		}
		num, isNum := v.(json.Number)
		f, err := num.Float64()
		if !isNum || err != nil {
			errs = append(errs, FieldError{Field: name, Type: ErrTypeFloat, Message: "Input should be a valid number"})
			return
		}
		*dst = &f
	}
	stringField := func(name string, dst **string) {
		v, ok := rawValue(raw, name)
		if !ok {
			return
		}
		s, isStr := v.(string)
		if !isStr {
			errs = append(errs, FieldError{Field: name, Type: ErrTypeString, Message: "Input should be a valid string"})
			return
		}
		*dst = &s
	}

	intField(ColCreditScore, &in.CreditScore)
	stringField(ColGeography, &in.Geography)
	stringField(ColGender, &in.Gender)
	intField(ColAge, &in.Age)
	intField(ColTenure, &in.Tenure)
	floatField(ColBalance, &in.Balance)
	intField(ColNumOfProducts, &in.NumOfProducts)
	intField(ColHasCrCard, &in.HasCrCard)
	intField(ColIsActiveMember, &in.IsActiveMember)
	floatField(ColEstimatedSalary, &in.EstimatedSalary)

	return in, errs
}

// rawValue returns the decoded value of name, numbers kept as json.Number.
// Absent keys and null report false.
func rawValue(raw map[string]json.RawMessage, name string) (any, bool) {
	data, ok := raw[name]
	if !ok {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || v == nil {
		return nil, false
	}
	return v, true
}

// toInt accepts JSON integers and numbers with a zero fractional part.
func toInt(name string, v any) (int, *FieldError) {
	num, ok := v.(json.Number)
	if !ok {
		return 0, &FieldError{Field: name, Type: ErrTypeInt, Message: "Input should be a valid integer"}
	}
	if i, err := num.Int64(); err == nil && i >= math.MinInt && i <= math.MaxInt {
		return int(i), nil
	}
	f, err := num.Float64()
	if err != nil || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, &FieldError{Field: name, Type: ErrTypeInt, Message: "Input should be a valid integer"}
	}
	if f != math.Trunc(f) {
		return 0, &FieldError{Field: name, Type: ErrTypeIntFromFloat, Message: "Input should be a valid integer, got a number with a fractional part"}
	}
	return int(f), nil
}

// newWithTypeErrors validates in and merges typeErrs with the validator's
// findings, ordered by column.
func newWithTypeErrors(in Input, typeErrs []FieldError) (Record, error) {
	rec, err := New(in)
	if err == nil && len(typeErrs) == 0 {
		return rec, nil
	}

	errs := append([]FieldError(nil), typeErrs...)
	if ve, ok := AsValidationError(err); ok {
		mistyped := make(map[string]bool, len(typeErrs))
		for _, fe := range typeErrs {
			mistyped[fe.Field] = true
		}
		for _, fe := range ve.Fields {
			// a mistyped value would otherwise also show up as missing
			if mistyped[fe.Field] {
				continue
			}
			errs = append(errs, fe)
		}
	} else if err != nil {
		return Record{}, err
	}

	sort.SliceStable(errs, func(i, j int) bool {
		return columnIndex(errs[i].Field) < columnIndex(errs[j].Field)
	})
	return Record{}, &ValidationError{Fields: errs}
}

func columnIndex(field string) int {
	for i, c := range Columns {
		if c == field {
			return i
		}
	}
	return -1
}

func decodeFieldError(err error) FieldError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return typeFieldError(typeErr.Field, typeErr.Type.Kind())
	}
	if errors.Is(err, io.EOF) {
		return FieldError{Type: ErrTypeMissing, Message: "Request body is empty"}
	}
	return FieldError{Type: ErrTypeJSON, Message: fmt.Sprintf("JSON decode error: %v", err)}
}

func typeFieldError(field string, kind reflect.Kind) FieldError {
	switch kind {
	case reflect.Int, reflect.Int64:
		return FieldError{Field: field, Type: ErrTypeInt, Message: "Input should be a valid integer"}
	case reflect.Float64:
		return FieldError{Field: field, Type: ErrTypeFloat, Message: "Input should be a valid number"}
	case reflect.String:
		return FieldError{Field: field, Type: ErrTypeString, Message: "Input should be a valid string"}
	case reflect.Map:
		return FieldError{Field: field, Type: ErrTypeJSON, Message: "Input should be a valid dictionary"}
	default:
		return FieldError{Field: field, Type: ErrTypeJSON, Message: "Input has an unexpected type"}
	}
}
