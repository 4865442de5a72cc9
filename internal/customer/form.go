package customer

import (
	"net/url"
	"strconv"
	"strings"
)

// ParseForm builds a record from HTML form values. Blank fields count as
// missing; values that do not parse are reported as type errors alongside any
// range violations of the remaining fields.
func ParseForm(values url.Values) (Record, error) {
	var (
		in   Input
		errs []FieldError
	)

	intField := func(name string, dst **int) {
		raw := strings.TrimSpace(values.Get(name))
		if raw == "" {
			return
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, FieldError{Field: name, Type: ErrTypeInt, Message: "Input should be a valid integer"})
			return
		}
		*dst = &v
	}
	floatField := func(name string, dst **float64) {
		raw := strings.TrimSpace(values.Get(name))
		if raw == "" {
			return
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			errs = append(errs, FieldError{Field: name, Type: ErrTypeFloat, Message: "Input should be a valid number"})
			return
		}
		*dst = &v
	}
	stringField := func(name string, dst **string) {
		raw := strings.TrimSpace(values.Get(name))
		if raw == "" {
			return
		}
		*dst = &raw
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

	return newWithTypeErrors(in, errs)
}
