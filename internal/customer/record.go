// Package customer defines the bank customer record scored by the churn model.
//
// A Record can only be obtained through New, Decode, FromMap or ParseForm, all
// of which validate every attribute before returning. Records are immutable.
package customer

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Column names of the tabular row expected by the preprocessor.
const (
	ColCreditScore     = "CreditScore"
	ColGeography       = "Geography"
	ColGender          = "Gender"
	ColAge             = "Age"
	ColTenure          = "Tenure"
	ColBalance         = "Balance"
	ColNumOfProducts   = "NumOfProducts"
	ColHasCrCard       = "HasCrCard"
	ColIsActiveMember  = "IsActiveMember"
	ColEstimatedSalary = "EstimatedSalary"
)

// Columns lists the record attributes in schema order.
var Columns = []string{
	ColCreditScore, ColGeography, ColGender, ColAge, ColTenure,
	ColBalance, ColNumOfProducts, ColHasCrCard, ColIsActiveMember, ColEstimatedSalary,
}

// Allowed enum values.
var (
	Geographies = []string{"France", "Spain", "Germany"}
	Genders     = []string{"Male", "Female"}
)

// Input is the raw transport shape of a record. Pointer fields keep a missing
// attribute distinguishable from a zero value.
type Input struct {
	CreditScore     *int     `json:"CreditScore" validate:"required"`
	Geography       *string  `json:"Geography" validate:"required,oneof=France Spain Germany"`
	Gender          *string  `json:"Gender" validate:"required,oneof=Male Female"`
	Age             *int     `json:"Age" validate:"required,gte=18,lte=100"`
	Tenure          *int     `json:"Tenure" validate:"required,gte=0,lte=10"`
	Balance         *float64 `json:"Balance" validate:"required,gte=0"`
	NumOfProducts   *int     `json:"NumOfProducts" validate:"required,gte=1,lte=4"`
	HasCrCard       *int     `json:"HasCrCard" validate:"required,oneof=0 1"`
	IsActiveMember  *int     `json:"IsActiveMember" validate:"required,oneof=0 1"`
	EstimatedSalary *float64 `json:"EstimatedSalary" validate:"required,gte=0"`
}

// Record is a validated customer. The zero value is not a valid record.
type Record struct {
	creditScore     int
	geography       string
	gender          string
	age             int
	tenure          int
	balance         float64
	numOfProducts   int
	hasCrCard       int
	isActiveMember  int
	estimatedSalary float64
}

// wire is the flat JSON shape of a Record.
type wire struct {
	CreditScore     int     `json:"CreditScore"`
	Geography       string  `json:"Geography"`
	Gender          string  `json:"Gender"`
	Age             int     `json:"Age"`
	Tenure          int     `json:"Tenure"`
	Balance         float64 `json:"Balance"`
	NumOfProducts   int     `json:"NumOfProducts"`
	HasCrCard       int     `json:"HasCrCard"`
	IsActiveMember  int     `json:"IsActiveMember"`
	EstimatedSalary float64 `json:"EstimatedSalary"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// New validates in and returns the corresponding record. Every violation is
// reported, not only the first one.
func New(in Input) (Record, error) {
	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return Record{}, &ValidationError{Fields: fieldErrors(verrs)}
		}
		return Record{}, fmt.Errorf("validate customer record: %w", err)
	}

	return Record{
		creditScore:     *in.CreditScore,
		geography:       *in.Geography,
		gender:          *in.Gender,
		age:             *in.Age,
		tenure:          *in.Tenure,
		balance:         *in.Balance,
		numOfProducts:   *in.NumOfProducts,
		hasCrCard:       *in.HasCrCard,
		isActiveMember:  *in.IsActiveMember,
		estimatedSalary: *in.EstimatedSalary,
	}, nil
}

// FromMap builds a record from a flat key-value mapping, the inverse of Map.
func FromMap(m map[string]any) (Record, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return Record{}, &ValidationError{Fields: []FieldError{{
			Type:    ErrTypeJSON,
			Message: fmt.Sprintf("Record is not serialisable: %v", err),
		}}}
	}
	return Decode(strings.NewReader(string(data)))
}

func (r Record) CreditScore() int         { return r.creditScore }
func (r Record) Geography() string        { return r.geography }
func (r Record) Gender() string           { return r.gender }
func (r Record) Age() int                 { return r.age }
func (r Record) Tenure() int              { return r.tenure }
func (r Record) Balance() float64         { return r.balance }
func (r Record) NumOfProducts() int       { return r.numOfProducts }
func (r Record) HasCrCard() int           { return r.hasCrCard }
func (r Record) IsActiveMember() int      { return r.isActiveMember }
func (r Record) EstimatedSalary() float64 { return r.estimatedSalary }

// Map returns the record as a single tabular row keyed by column name.
func (r Record) Map() map[string]any {
	return map[string]any{
		ColCreditScore:     r.creditScore,
		ColGeography:       r.geography,
		ColGender:          r.gender,
		ColAge:             r.age,
		ColTenure:          r.tenure,
		ColBalance:         r.balance,
		ColNumOfProducts:   r.numOfProducts,
		ColHasCrCard:       r.hasCrCard,
		ColIsActiveMember:  r.isActiveMember,
		ColEstimatedSalary: r.estimatedSalary,
	}
}

// Input returns a fresh transport copy of the record.
func (r Record) Input() Input {
	return Input{
		CreditScore:     &r.creditScore,
		Geography:       &r.geography,
		Gender:          &r.gender,
		Age:             &r.age,
		Tenure:          &r.tenure,
		Balance:         &r.balance,
		NumOfProducts:   &r.numOfProducts,
		HasCrCard:       &r.hasCrCard,
		IsActiveMember:  &r.isActiveMember,
		EstimatedSalary: &r.estimatedSalary,
	}
}

// Key is a canonical identity of the record's values.
func (r Record) Key() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(r.creditScore))
	for _, s := range []string{
		r.geography,
		r.gender,
		strconv.Itoa(r.age),
		strconv.Itoa(r.tenure),
		strconv.FormatFloat(r.balance, 'g', -1, 64),
		strconv.Itoa(r.numOfProducts),
		strconv.Itoa(r.hasCrCard),
		strconv.Itoa(r.isActiveMember),
		strconv.FormatFloat(r.estimatedSalary, 'g', -1, 64),
	} {
		b.WriteByte('|')
		b.WriteString(s)
	}
	return b.String()
}

func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(wire{
		CreditScore:     r.creditScore,
		Geography:       r.geography,
		Gender:          r.gender,
		Age:             r.age,
		Tenure:          r.tenure,
		Balance:         r.balance,
		NumOfProducts:   r.numOfProducts,
		HasCrCard:       r.hasCrCard,
		IsActiveMember:  r.isActiveMember,
		EstimatedSalary: r.estimatedSalary,
	})
}

func (r *Record) UnmarshalJSON(data []byte) error {
	rec, err := Decode(strings.NewReader(string(data)))
	if err != nil {
		return err
	}
	*r = rec
	return nil
}

func fieldErrors(verrs validator.ValidationErrors) []FieldError {
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, toFieldError(fe))
	}
	return out
}

func toFieldError(fe validator.FieldError) FieldError {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return FieldError{Field: field, Type: ErrTypeMissing, Message: "Field required"}
	case "oneof":
		return FieldError{Field: field, Type: ErrTypeLiteral, Message: "Input should be " + quoteChoices(strings.Fields(fe.Param()))}
	case "gte":
		return FieldError{Field: field, Type: ErrTypeGreaterThanEqual, Message: "Input should be greater than or equal to " + fe.Param()}
	case "lte":
		return FieldError{Field: field, Type: ErrTypeLessThanEqual, Message: "Input should be less than or equal to " + fe.Param()}
	default:
		return FieldError{Field: field, Type: fe.Tag(), Message: fmt.Sprintf("Input failed the %s constraint", fe.Tag())}
	}
}

// quoteChoices renders ["a","b","c"] as 'a', 'b' or 'c'.
func quoteChoices(choices []string) string {
	quoted := make([]string, len(choices))
	for i, c := range choices {
		quoted[i] = "'" + c + "'"
	}
	if len(quoted) <= 1 {
		return strings.Join(quoted, "")
	}
	return strings.Join(quoted[:len(quoted)-1], ", ") + " or " + quoted[len(quoted)-1]
}
