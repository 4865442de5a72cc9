package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"churn-detection/internal/artifact"
	"churn-detection/internal/cfg"
	"churn-detection/internal/common"
	"churn-detection/internal/customer"
	"churn-detection/internal/inference"
	"churn-detection/internal/logging"

	"github.com/rs/zerolog/log"
)

type sample struct {
	name string
	row  map[string]any
}

var samples = []sample{
	{
		name: "Long tenure, active, France",
		row: map[string]any{
			"CreditScore": 650, "Geography": "France", "Gender": "Female", "Age": 35,
			"Tenure": 5, "Balance": 50000.0, "NumOfProducts": 2, "HasCrCard": 1,
			"IsActiveMember": 1, "EstimatedSalary": 60000.0,
		},
	},
	{
		name: "Older inactive customer, Germany",
		row: map[string]any{
			"CreditScore": 520, "Geography": "Germany", "Gender": "Male", "Age": 60,
			"Tenure": 2, "Balance": 120000.0, "NumOfProducts": 3, "HasCrCard": 0,
			"IsActiveMember": 0, "EstimatedSalary": 90000.0,
		},
	},
	{
		name: "Young single-product customer, Spain",
		row: map[string]any{
			"CreditScore": 780, "Geography": "Spain", "Gender": "Male", "Age": 22,
			"Tenure": 0, "Balance": 0.0, "NumOfProducts": 1, "HasCrCard": 1,
			"IsActiveMember": 1, "EstimatedSalary": 15000.0,
		},
	},
	{
		name: "Boundary values",
		row: map[string]any{
			"CreditScore": 850, "Geography": "Germany", "Gender": "Female", "Age": 100,
			"Tenure": 10, "Balance": 250000.0, "NumOfProducts": 4, "HasCrCard": 1,
			"IsActiveMember": 0, "EstimatedSalary": 199000.0,
		},
	},
}

var thresholds = []float64{0.3, 0.5, 0.7}

// Loads the configured artifacts and scores a handful of customers with every
// model, so a freshly exported artifact set can be eyeballed before deploying.
func main() {
	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	modelsDir := flag.String("models", "", "Artifact directory (overrides MODELS_DIR paths)")
	flag.Parse()
	logging.Setup(logging.Options{Level: "warn", Format: "console"})

	paths := artifact.Paths{
		Preprocessor: c.PreprocessorPath,
		Forest:       c.ForestModelPath,
		XGBoost:      c.XGBoostModelPath,
	}
	if *modelsDir != "" {
		paths = artifact.Paths{
			Preprocessor: filepath.Join(*modelsDir, common.DefaultPreprocessorFile),
			Forest:       filepath.Join(*modelsDir, common.DefaultForestModelFile),
			XGBoost:      filepath.Join(*modelsDir, common.DefaultXGBoostModelFile),
		}
	}

	store, err := artifact.Load(paths)
	if err != nil {
		log.Fatal().Err(err).Msg("artifact load failed")
	}

	info := store.Info()
	fmt.Printf("Artifacts loaded at %s\n", info.LoadedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("  preprocessor  %s  sha256=%.12s\n", info.Preprocessor.Path, info.Preprocessor.SHA256)
	for _, id := range store.ModelIDs() {
		m := info.Models[id]
		note := ""
		if m.Aliased {
			note = fmt.Sprintf("  (alias of %s)", m.ServedBy)
		}
		fmt.Printf("  %-12s  %s  kind=%s version=%s%s\n", id, m.Path, m.Kind, m.Metadata.Version, note)
	}

	failed := false
	for i, s := range samples {
		fmt.Printf("\n%d. %s\n", i+1, s.name)

		rec, err := customer.FromMap(s.row)
		if err != nil {
			fmt.Printf("   invalid record: %v\n", err)
			failed = true
			continue
		}

		for _, id := range store.ModelIDs() {
			m, _ := store.Model(id)
			res, err := inference.Predict(rec, store.Preprocessor(), m.Classifier)
			if err != nil {
				fmt.Printf("   %-8s FAILED: %v\n", id, err)
				failed = true
				continue
			}

			fmt.Printf("   %-8s p=%.4f churn=%-5t", id, res.ChurnProbability, res.ChurnPrediction)
			for _, t := range thresholds {
				fmt.Printf("  >%.1f:%t", t, res.ChurnProbability > t)
			}
			fmt.Println()
		}
	}

	if failed {
		os.Exit(1)
	}
}
