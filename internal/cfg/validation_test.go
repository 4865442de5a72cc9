package cfg

import (
	"strings"
	"testing"
	"time"
)

// createValidSettings creates a valid Settings struct for testing
func createValidSettings() *Settings {
	return &Settings{
		AppName:          "Churn-Detection",
		Version:          "1.0",
		SecretKeyToken:   "token",
		ModelsDir:        "models",
		PreprocessorPath: "models/preprocessor.json",
		ForestModelPath:  "models/forest_tuned.json",
		XGBoostModelPath: "models/xgboost.json",
		APIPort:          8000,
		UIPort:           8501,
		MetricsPort:      9090,
		RequestTimeout:   10 * time.Second,
		CacheSize:        128,
		LogLevel:         "info",
		LogFormat:        "console",
	}
}

func TestValidateSettings_ValidConfig(t *testing.T) {
	settings := createValidSettings()

	if err := validateSettings(settings); err != nil {
		t.Errorf("Expected valid config to pass, got error: %v", err)
	}
}

func TestValidateSettings_MetricsDisabled(t *testing.T) {
	settings := createValidSettings()
	settings.MetricsPort = 0

	if err := validateSettings(settings); err != nil {
		t.Errorf("Expected metrics port 0 to be accepted, got error: %v", err)
	}
}

func TestValidateSettings_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(s *Settings)
		errSubstr string
	}{
		{"empty app name", func(s *Settings) { s.AppName = "" }, "application name"},
		{"empty version", func(s *Settings) { s.Version = "" }, "version"},
		{"privileged api port", func(s *Settings) { s.APIPort = 443 }, "API port"},
		{"api port too large", func(s *Settings) { s.APIPort = 70000 }, "API port"},
		{"ui port out of range", func(s *Settings) { s.UIPort = 1 }, "UI port"},
		{"metrics port out of range", func(s *Settings) { s.MetricsPort = 80 }, "metrics port"},
		{"timeout too short", func(s *Settings) { s.RequestTimeout = 500 * time.Millisecond }, "request timeout"},
		{"timeout too long", func(s *Settings) { s.RequestTimeout = 6 * time.Minute }, "request timeout"},
		{"negative cache", func(s *Settings) { s.CacheSize = -5 }, "cache size"},
		{"bad log format", func(s *Settings) { s.LogFormat = "text" }, "log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := createValidSettings()
			tt.mutate(settings)

			err := validateSettings(settings)
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errSubstr) {
				t.Errorf("Expected error containing %q, got: %v", tt.errSubstr, err)
			}
		})
	}
}

func TestRequireSecret(t *testing.T) {
	settings := createValidSettings()
	if err := settings.RequireSecret(); err != nil {
		t.Errorf("Expected secret to be accepted, got: %v", err)
	}

	settings.SecretKeyToken = ""
	err := settings.RequireSecret()
	if err == nil {
		t.Fatal("Expected error for missing secret")
	}
	if !strings.Contains(err.Error(), "SECRET_KEY_TOKEN") {
		t.Errorf("Expected error to name SECRET_KEY_TOKEN, got: %v", err)
	}
}
