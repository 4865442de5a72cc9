package common

// Environment variable keys
const (
	EnvConfigFile       = "CONFIG_FILE"
	EnvAppName          = "APP_NAME"
	EnvVersion          = "VERSION"
	EnvSecretKeyToken   = "SECRET_KEY_TOKEN"
	EnvModelsDir        = "MODELS_DIR"
	EnvPreprocessorPath = "PREPROCESSOR_PATH"
	EnvForestModelPath  = "FOREST_MODEL_PATH"
	EnvXGBoostModelPath = "XGBOOST_MODEL_PATH"
	EnvAPIPort          = "API_PORT"
	EnvUIPort           = "UI_PORT"
	EnvMetricsPort      = "METRICS_PORT"
	EnvRequestTimeout   = "REQUEST_TIMEOUT"
	EnvCacheSize        = "CACHE_SIZE"
	EnvDataPath         = "DATA_PATH"
	EnvLogLevel         = "LOG_LEVEL"
	EnvLogFormat        = "LOG_FORMAT"
	EnvLogFile          = "LOG_FILE"
)

// Configuration defaults
const (
	DefaultAppName          = "Churn-Detection"
	DefaultVersion          = "1.0"
	DefaultModelsDir        = "models"
	DefaultPreprocessorFile = "preprocessor.json"
	DefaultForestModelFile  = "forest_tuned.json"
	DefaultXGBoostModelFile = "xgboost.json"
	DefaultAPIPort          = 8000
	DefaultUIPort           = 8501
	DefaultMetricsPort      = 9090
	DefaultCacheSize        = 1024
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "console"
	DefaultEnvFile          = ".env"
)

// Model identifiers as they appear in API routes.
const (
	ModelForest  = "forest"
	ModelXGBoost = "xgboost"
)

// APIKeyHeader carries the static API token.
const APIKeyHeader = "X-API-Key"

// ModelServedHeader reports which artifact actually answered a prediction.
const ModelServedHeader = "X-Model-Served"

// Common error messages
const (
	ErrMsgSecretRequired = "SECRET_KEY_TOKEN is required"
	ErrMsgInvalidAPIKey  = "Invalid API Key"
)

// Validation constants
const (
	MinPort            = 1024
	MaxPort            = 65535
	MaxRequestBodySize = 1 << 20
)
