package artifact

import (
	"errors"
	"fmt"
	"strconv"
)

// Preprocessor turns one tabular row into the model's feature vector.
type Preprocessor interface {
	Transform(row map[string]any) ([]float64, error)
	FeatureNames() []string
}

// ColumnTransformer is the exported form of the fitted feature pipeline:
// standard-scaled numeric columns, one-hot encoded categorical columns and
// passthrough columns, emitted in that order.
type ColumnTransformer struct {
	Meta        Metadata            `json:"metadata"`
	Numeric     []NumericColumn     `json:"numeric"`
	Categorical []CategoricalColumn `json:"categorical"`
	Passthrough []string            `json:"passthrough"`
}

type NumericColumn struct {
	Column string  `json:"column"`
	Mean   float64 `json:"mean"`
	Scale  float64 `json:"scale"`
}

type CategoricalColumn struct {
	Column     string   `json:"column"`
	Categories []string `json:"categories"`
	DropFirst  bool     `json:"drop_first"`
	// HandleUnknown is "error" (default) or "ignore", which encodes an
	// unseen category as all zeros.
	HandleUnknown string `json:"handle_unknown,omitempty"`
}

// Validate checks that the transformer is internally consistent.
func (ct *ColumnTransformer) Validate() error {
	seen := make(map[string]bool)
	use := func(col string) error {
		if col == "" {
			return errors.New("column name cannot be empty")
		}
		if seen[col] {
			return fmt.Errorf("column %s is transformed more than once", col)
		}
		seen[col] = true
		return nil
	}

	for _, n := range ct.Numeric {
		if err := use(n.Column); err != nil {
			return err
		}
		if n.Scale < 0 {
			return fmt.Errorf("column %s: negative scale %f", n.Column, n.Scale)
		}
	}
	for _, c := range ct.Categorical {
		if err := use(c.Column); err != nil {
			return err
		}
		if len(c.Categories) == 0 {
			return fmt.Errorf("column %s: no categories", c.Column)
		}
		switch c.HandleUnknown {
		case "", "error", "ignore":
		default:
			return fmt.Errorf("column %s: unsupported handle_unknown %q", c.Column, c.HandleUnknown)
		}
	}
	for _, p := range ct.Passthrough {
		if err := use(p); err != nil {
			return err
		}
	}
	if len(seen) == 0 {
		return errors.New("preprocessor has no columns")
	}
	return nil
}

// FeatureNames returns output feature names in emission order.
func (ct *ColumnTransformer) FeatureNames() []string {
	names := make([]string, 0, ct.width())
	for _, n := range ct.Numeric {
		names = append(names, n.Column)
	}
	for _, c := range ct.Categorical {
		cats := c.Categories
		if c.DropFirst {
			cats = cats[1:]
		}
		for _, cat := range cats {
			names = append(names, c.Column+"_"+cat)
		}
	}
	names = append(names, ct.Passthrough...)
	return names
}

// Transform applies the fitted scaling and encoding to row.
func (ct *ColumnTransformer) Transform(row map[string]any) ([]float64, error) {
	out := make([]float64, 0, ct.width())

	for _, n := range ct.Numeric {
		v, err := numericValue(row, n.Column)
		if err != nil {
			return nil, err
		}
		scale := n.Scale
		if scale == 0 {
			// zero-variance column during fitting
			scale = 1
		}
		out = append(out, (v-n.Mean)/scale)
	}

	for _, c := range ct.Categorical {
		raw, ok := row[c.Column]
		if !ok {
			return nil, fmt.Errorf("missing column %s", c.Column)
		}
		value := categoryValue(raw)

		idx := -1
		for i, cat := range c.Categories {
			if cat == value {
				idx = i
				break
			}
		}
		if idx < 0 && c.HandleUnknown != "ignore" {
			return nil, fmt.Errorf("found unknown category %q in column %s", value, c.Column)
		}

		start := 0
		if c.DropFirst {
			start = 1
		}
		for i := start; i < len(c.Categories); i++ {
			if i == idx {
				out = append(out, 1)
			} else {
				out = append(out, 0)
			}
		}
	}

	for _, p := range ct.Passthrough {
		v, err := numericValue(row, p)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}

	return out, nil
}

func (ct *ColumnTransformer) width() int {
	w := len(ct.Numeric) + len(ct.Passthrough)
	for _, c := range ct.Categorical {
		w += len(c.Categories)
		if c.DropFirst {
			w--
		}
	}
	return w
}

func numericValue(row map[string]any, col string) (float64, error) {
	raw, ok := row[col]
	if !ok {
		return 0, fmt.Errorf("missing column %s", col)
	}
	switch v := raw.(type) {
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("column %s: cannot convert %T to a number", col, raw)
	}
}

func categoryValue(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
