package cfg

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"churn-detection/internal/common"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	AppName          string
	Version          string
	SecretKeyToken   string
	ModelsDir        string
	PreprocessorPath string
	ForestModelPath  string
	XGBoostModelPath string
	APIPort          int
	UIPort           int
	MetricsPort      int
	RequestTimeout   time.Duration
	CacheSize        int
	DataPath         string
	LogLevel         string
	LogFormat        string
	LogFile          string
}

type ConfigFile struct {
	App struct {
		Name           string `yaml:"name"`
		Version        string `yaml:"version"`
		SecretKeyToken string `yaml:"secretKeyToken"`
	} `yaml:"app"`

	Models struct {
		Dir          string `yaml:"dir"`
		Preprocessor string `yaml:"preprocessor"`
		Forest       string `yaml:"forest"`
		XGBoost      string `yaml:"xgboost"`
	} `yaml:"models"`

	Server struct {
		APIPort        int    `yaml:"apiPort"`
		UIPort         int    `yaml:"uiPort"`
		MetricsPort    *int   `yaml:"metricsPort"`
		RequestTimeout string `yaml:"requestTimeout"`
		CacheSize      *int   `yaml:"cacheSize"`
	} `yaml:"server"`

	System struct {
		DataPath  string `yaml:"dataPath"`
		LogLevel  string `yaml:"logLevel"`
		LogFormat string `yaml:"logFormat"`
		LogFile   string `yaml:"logFile"`
	} `yaml:"system"`
}

// Load reads .env (overriding the process environment), then either the YAML
// file named by CONFIG_FILE or the environment alone.
func Load() (Settings, error) {
	if err := loadDotEnv(common.DefaultEnvFile); err != nil {
		return Settings{}, err
	}

	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	return loadFromEnv()
}

// RequireSecret reports whether the API token is present. Only the HTTP API
// needs it; the form front end has no authentication.
func (s *Settings) RequireSecret() error {
	if s.SecretKeyToken == "" {
		return errors.New(common.ErrMsgSecretRequired)
	}
	return nil
}

// MetricsEnabled reports whether the Prometheus endpoint should be served.
func (s *Settings) MetricsEnabled() bool {
	return s.MetricsPort != 0
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat env file %s: %w", path, err)
	}
	if err := godotenv.Overload(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	requestTimeout, err := time.ParseDuration(config.Server.RequestTimeout)
	if err != nil {
		requestTimeout = 10 * time.Second
	}

	metricsPort := common.DefaultMetricsPort
	if config.Server.MetricsPort != nil {
		metricsPort = *config.Server.MetricsPort
	}
	cacheSize := common.DefaultCacheSize
	if config.Server.CacheSize != nil {
		cacheSize = *config.Server.CacheSize
	}

	settings := Settings{
		AppName:          getEnvOrDefault(common.EnvAppName, orDefault(config.App.Name, common.DefaultAppName)),
		Version:          getEnvOrDefault(common.EnvVersion, orDefault(config.App.Version, common.DefaultVersion)),
		SecretKeyToken:   getEnvOrDefault(common.EnvSecretKeyToken, config.App.SecretKeyToken),
		ModelsDir:        getEnvOrDefault(common.EnvModelsDir, orDefault(config.Models.Dir, common.DefaultModelsDir)),
		PreprocessorPath: getEnvOrDefault(common.EnvPreprocessorPath, config.Models.Preprocessor),
		ForestModelPath:  getEnvOrDefault(common.EnvForestModelPath, config.Models.Forest),
		XGBoostModelPath: getEnvOrDefault(common.EnvXGBoostModelPath, config.Models.XGBoost),
		APIPort:          getIntFromEnvOrConfig(common.EnvAPIPort, config.Server.APIPort, common.DefaultAPIPort),
		UIPort:           getIntFromEnvOrConfig(common.EnvUIPort, config.Server.UIPort, common.DefaultUIPort),
		MetricsPort:      getIntOrDefault(common.EnvMetricsPort, metricsPort),
		RequestTimeout:   getDurationOrDefault(common.EnvRequestTimeout, requestTimeout),
		CacheSize:        getIntOrDefault(common.EnvCacheSize, cacheSize),
		DataPath:         getEnvOrDefault(common.EnvDataPath, config.System.DataPath),
		LogLevel:         getEnvOrDefault(common.EnvLogLevel, orDefault(config.System.LogLevel, common.DefaultLogLevel)),
		LogFormat:        getEnvOrDefault(common.EnvLogFormat, orDefault(config.System.LogFormat, common.DefaultLogFormat)),
		LogFile:          getEnvOrDefault(common.EnvLogFile, config.System.LogFile),
	}
	settings.resolveModelPaths()

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		AppName:          getEnvOrDefault(common.EnvAppName, common.DefaultAppName),
		Version:          getEnvOrDefault(common.EnvVersion, common.DefaultVersion),
		SecretKeyToken:   os.Getenv(common.EnvSecretKeyToken),
		ModelsDir:        getEnvOrDefault(common.EnvModelsDir, common.DefaultModelsDir),
		PreprocessorPath: os.Getenv(common.EnvPreprocessorPath),
		ForestModelPath:  os.Getenv(common.EnvForestModelPath),
		XGBoostModelPath: os.Getenv(common.EnvXGBoostModelPath),
		APIPort:          getIntOrDefault(common.EnvAPIPort, common.DefaultAPIPort),
		UIPort:           getIntOrDefault(common.EnvUIPort, common.DefaultUIPort),
		MetricsPort:      getIntOrDefault(common.EnvMetricsPort, common.DefaultMetricsPort),
		RequestTimeout:   getDurationOrDefault(common.EnvRequestTimeout, 10*time.Second),
		CacheSize:        getIntOrDefault(common.EnvCacheSize, common.DefaultCacheSize),
		DataPath:         os.Getenv(common.EnvDataPath), // optional
		LogLevel:         getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
		LogFormat:        getEnvOrDefault(common.EnvLogFormat, common.DefaultLogFormat),
		LogFile:          os.Getenv(common.EnvLogFile),
	}
	settings.resolveModelPaths()

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// resolveModelPaths fills artifact paths that were not set explicitly from
// the models directory.
func (s *Settings) resolveModelPaths() {
	if s.PreprocessorPath == "" {
		s.PreprocessorPath = filepath.Join(s.ModelsDir, common.DefaultPreprocessorFile)
	}
	if s.ForestModelPath == "" {
		s.ForestModelPath = filepath.Join(s.ModelsDir, common.DefaultForestModelFile)
	}
	if s.XGBoostModelPath == "" {
		s.XGBoostModelPath = filepath.Join(s.ModelsDir, common.DefaultXGBoostModelFile)
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

// validateSettings checks ranges and required values
func validateSettings(settings *Settings) error {
	if settings.AppName == "" {
		return fmt.Errorf("application name cannot be empty")
	}
	if settings.Version == "" {
		return fmt.Errorf("version cannot be empty")
	}

	if err := validatePort("API", settings.APIPort); err != nil {
		return err
	}
	if err := validatePort("UI", settings.UIPort); err != nil {
		return err
	}
	if settings.MetricsPort != 0 {
		if err := validatePort("metrics", settings.MetricsPort); err != nil {
			return err
		}
	}

	if settings.RequestTimeout < time.Second || settings.RequestTimeout > 5*time.Minute {
		return fmt.Errorf("request timeout must be between 1s and 5m, got %v", settings.RequestTimeout)
	}
	if settings.CacheSize < 0 {
		return fmt.Errorf("cache size cannot be negative, got %d", settings.CacheSize)
	}

	switch settings.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("log format must be console or json, got %q", settings.LogFormat)
	}

	return nil
}

func validatePort(name string, port int) error {
	if port < common.MinPort || port > common.MaxPort {
		return fmt.Errorf("%s port must be between %d and %d, got %d", name, common.MinPort, common.MaxPort, port)
	}
	return nil
}
