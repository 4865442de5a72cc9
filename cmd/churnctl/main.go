package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"churn-detection/internal/cfg"
	"churn-detection/internal/client"
	"churn-detection/internal/common"
	"churn-detection/internal/customer"
	"churn-detection/internal/logging"

	"github.com/rs/zerolog/log"
)

func main() {
	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	var (
		baseURL = flag.String("url", fmt.Sprintf("http://localhost:%d", c.APIPort), "Base URL of the churn API")
		apiKey  = flag.String("key", c.SecretKeyToken, "API key (defaults to SECRET_KEY_TOKEN)")
		model   = flag.String("model", common.ModelForest, "Model id: forest or xgboost")
		file    = flag.String("file", "-", "JSON customer record, - for stdin")
		timeout = flag.Duration("timeout", c.RequestTimeout, "Request timeout")
		health  = flag.Bool("health", false, "Print /health instead of predicting")
		info    = flag.Bool("info", false, "Print /model/info instead of predicting")
		level   = flag.String("log-level", "warn", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	logging.Setup(logging.Options{Level: *level, Format: "console"})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout+time.Second)
	defer cancel()

	api := client.New(*baseURL, *apiKey, *timeout)

	var out any
	switch {
	case *health:
		out, err = api.Health(ctx)
	case *info:
		out, err = api.ModelInfo(ctx)
	default:
		out, err = predict(ctx, api, *model, *file)
	}
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			log.Error().Int("status", apiErr.StatusCode).Msg(apiErr.Error())
			os.Exit(2)
		}
		log.Fatal().Err(err).Msg("request failed")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatal().Err(err).Msg("failed to write result")
	}
}

func predict(ctx context.Context, api *client.Client, model, path string) (client.Prediction, error) {
	in, err := readInput(path)
	if err != nil {
		return client.Prediction{}, err
	}
	log.Debug().Str("model", model).Str("file", path).Msg("submitting record")
	return api.Predict(ctx, model, in)
}

// readInput decodes the record as sent, leaving range checks to the server.
func readInput(path string) (customer.Input, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return customer.Input{}, fmt.Errorf("open record: %w", err)
		}
		defer f.Close()
		r = f
	}

	var in customer.Input
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return customer.Input{}, fmt.Errorf("decode record: %w", err)
	}
	return in, nil
}
