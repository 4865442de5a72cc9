package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTransformer() *ColumnTransformer {
	return &ColumnTransformer{
		Numeric: []NumericColumn{
			{Column: "Age", Mean: 40, Scale: 10},
			{Column: "Balance", Mean: 100, Scale: 0},
		},
		Categorical: []CategoricalColumn{
			{Column: "Geography", Categories: []string{"France", "Germany", "Spain"}},
			{Column: "Gender", Categories: []string{"Female", "Male"}, DropFirst: true},
		},
		Passthrough: []string{"HasCrCard"},
	}
}

func TestColumnTransformer_FeatureNames(t *testing.T) {
	ct := testTransformer()
	require.NoError(t, ct.Validate())

	assert.Equal(t, []string{
		"Age", "Balance",
		"Geography_France", "Geography_Germany", "Geography_Spain",
		"Gender_Male",
		"HasCrCard",
	}, ct.FeatureNames())
}

func TestColumnTransformer_Transform(t *testing.T) {
	ct := testTransformer()

	out, err := ct.Transform(map[string]any{
		"Age":       55,
		"Balance":   250.0,
		"Geography": "Spain",
		"Gender":    "Male",
		"HasCrCard": 1,
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 150, 0, 0, 1, 1, 1}, out)

	out, err = ct.Transform(map[string]any{
		"Age":       40,
		"Balance":   100.0,
		"Geography": "France",
		"Gender":    "Female",
		"HasCrCard": 0,
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 1, 0, 0, 0, 0}, out)
}

func TestColumnTransformer_TransformErrors(t *testing.T) {
	base := func() map[string]any {
		return map[string]any{
			"Age": 30, "Balance": 1.0, "Geography": "France", "Gender": "Male", "HasCrCard": 1,
		}
	}

	tests := []struct {
		name    string
		mutate  func(map[string]any)
		wantErr string
	}{
		{
			name:    "missing numeric column",
			mutate:  func(m map[string]any) { delete(m, "Age") },
			wantErr: "missing column Age",
		},
		{
			name:    "missing categorical column",
			mutate:  func(m map[string]any) { delete(m, "Geography") },
			wantErr: "missing column Geography",
		},
		{
			name:    "unknown category",
			mutate:  func(m map[string]any) { m["Geography"] = "Italy" },
			wantErr: `found unknown category "Italy" in column Geography`,
		},
		{
			name:    "non numeric value",
			mutate:  func(m map[string]any) { m["Balance"] = "lots" },
			wantErr: "cannot convert string to a number",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := base()
			tt.mutate(row)
			_, err := testTransformer().Transform(row)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestColumnTransformer_IgnoreUnknown(t *testing.T) {
	ct := &ColumnTransformer{
		Categorical: []CategoricalColumn{
			{Column: "Geography", Categories: []string{"France", "Germany"}, HandleUnknown: "ignore"},
		},
	}
	require.NoError(t, ct.Validate())

	out, err := ct.Transform(map[string]any{"Geography": "Italy"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, out)
}

func TestColumnTransformer_Validate(t *testing.T) {
	tests := []struct {
		name    string
		ct      ColumnTransformer
		wantErr string
	}{
		{
			name:    "empty",
			ct:      ColumnTransformer{},
			wantErr: "no columns",
		},
		{
			name: "duplicate column",
			ct: ColumnTransformer{
				Numeric:     []NumericColumn{{Column: "Age", Scale: 1}},
				Passthrough: []string{"Age"},
			},
			wantErr: "more than once",
		},
		{
			name:    "negative scale",
			ct:      ColumnTransformer{Numeric: []NumericColumn{{Column: "Age", Scale: -1}}},
			wantErr: "negative scale",
		},
		{
			name:    "no categories",
			ct:      ColumnTransformer{Categorical: []CategoricalColumn{{Column: "Gender"}}},
			wantErr: "no categories",
		},
		{
			name: "bad handle_unknown",
			ct: ColumnTransformer{Categorical: []CategoricalColumn{
				{Column: "Gender", Categories: []string{"Male"}, HandleUnknown: "infrequent"},
			}},
			wantErr: "unsupported handle_unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ct.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
