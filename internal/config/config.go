package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for assistbot.
type Config struct {
	General GeneralConfig `json:"general" yaml:"general"`
	AWS     AWSConfig     `json:"aws" yaml:"aws"`
	Storage StorageConfig `json:"storage" yaml:"storage"`
	Vision  VisionConfig  `json:"vision" yaml:"vision"`
	Model   ModelConfig   `json:"model" yaml:"model"`
	Gateway GatewayConfig `json:"gateway" yaml:"gateway"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
}

type GeneralConfig struct {
	LogLevel  string `json:"logLevel" yaml:"logLevel"`   // debug | info | warn | error
	LogFormat string `json:"logFormat" yaml:"logFormat"` // text | json
}

// AWSConfig is shared by every AWS-backed collaborator (DynamoDB, Rekognition, Bedrock).
type AWSConfig struct {
	Region  string `json:"region" yaml:"region"`
	Profile string `json:"profile,omitempty" yaml:"profile,omitempty"`
}

type StorageConfig struct {
	Backend  string `json:"backend" yaml:"backend"` // "dynamodb" | "sqlite" | "memory"
	Table    string `json:"table" yaml:"table"`
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"` // e.g. DynamoDB Local
	DBPath   string `json:"dbPath" yaml:"dbPath"`
}

type VisionConfig struct {
	Backend                string  `json:"backend" yaml:"backend"` // "rekognition"
	MaxLabels              int     `json:"maxLabels" yaml:"maxLabels"`
	MinConfidence          float64 `json:"minConfidence" yaml:"minConfidence"`
	DownloadTimeoutSeconds int     `json:"downloadTimeoutSeconds" yaml:"downloadTimeoutSeconds"`
	MaxImageBytes          int64   `json:"maxImageBytes" yaml:"maxImageBytes"`
}

type ModelConfig struct {
	Provider        string `json:"provider" yaml:"provider"` // "bedrock" | "anthropic" | "openai"
	ModelID         string `json:"modelId" yaml:"modelId"`
	ProtocolVersion string `json:"protocolVersion" yaml:"protocolVersion"`
	MaxTokens       int    `json:"maxTokens" yaml:"maxTokens"`
	APIKey          string `json:"apiKey,omitempty" yaml:"apiKey,omitempty"`
	APIBase         string `json:"apiBase,omitempty" yaml:"apiBase,omitempty"`

	// Client-side throttle on model calls. RatePerMinute 0 disables it.
	RatePerMinute float64 `json:"ratePerMinute" yaml:"ratePerMinute"`
	Burst         int     `json:"burst" yaml:"burst"`
}

type GatewayConfig struct {
	Host   string `json:"host" yaml:"host"`
	Port   int    `json:"port" yaml:"port"`
	Path   string `json:"path" yaml:"path"`
	Secret string `json:"secret,omitempty" yaml:"secret,omitempty"` // HMAC secret for X-Signature-256
}

// MetricsConfig configures the Prometheus text endpoint on the gateway.
type MetricsConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// DefaultConfigDir returns the default config directory (~/.assistbot).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".assistbot"
	}
	return filepath.Join(home, ".assistbot")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

// Load reads a JSON or YAML config file (chosen by extension), applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	ApplyEnv(cfg)
	cfg.Storage.DBPath = ExpandPath(cfg.Storage.DBPath)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// LoadOrDefaults behaves like Load but falls back to Defaults (plus
// environment overrides) when the file does not exist.
func LoadOrDefaults(path string) (*Config, bool, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, true, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, false, err
	}
	cfg = Defaults()
	ApplyEnv(cfg)
	if err := Validate(cfg); err != nil {
		return nil, false, fmt.Errorf("config validation: %w", err)
	}
	return cfg, false, nil
}

// ApplyEnv overrides config values from well-known environment variables.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("TODO_TABLE"); v != "" {
		cfg.Storage.Table = v
	}
	if v := os.Getenv("MODEL_ID"); v != "" {
		cfg.Model.ModelID = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.AWS.Region = v
	}
	if v := os.Getenv("ASSISTBOT_WEBHOOK_SECRET"); v != "" {
		cfg.Gateway.Secret = v
	}
	if cfg.Model.APIKey == "" {
		switch cfg.Model.Provider {
		case "anthropic":
			cfg.Model.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case "openai":
			cfg.Model.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
}

// Save writes cfg to path, as YAML when the extension asks for it.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.General.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}
	switch cfg.General.LogFormat {
	case "", "text", "json":
	default:
		errs = append(errs, "general.logFormat must be one of: text, json")
	}

	switch cfg.Storage.Backend {
	case "dynamodb":
		if cfg.Storage.Table == "" {
			errs = append(errs, "storage.table is required for the dynamodb backend")
		}
	case "sqlite":
		if cfg.Storage.DBPath == "" {
			errs = append(errs, "storage.dbPath is required for the sqlite backend")
		}
	case "memory":
	default:
		errs = append(errs, "storage.backend must be one of: dynamodb, sqlite, memory")
	}

	if cfg.Vision.Backend != "rekognition" {
		errs = append(errs, "vision.backend must be: rekognition")
	}
	if cfg.Vision.MaxLabels < 1 || cfg.Vision.MaxLabels > 1000 {
		errs = append(errs, "vision.maxLabels must be between 1 and 1000")
	}
	if cfg.Vision.MinConfidence < 0 || cfg.Vision.MinConfidence > 100 {
		errs = append(errs, "vision.minConfidence must be between 0 and 100")
	}
	if cfg.Vision.DownloadTimeoutSeconds < 1 {
		errs = append(errs, "vision.downloadTimeoutSeconds must be >= 1")
	}
	if cfg.Vision.MaxImageBytes < 1 {
		errs = append(errs, "vision.maxImageBytes must be >= 1")
	}

	switch cfg.Model.Provider {
	case "bedrock":
		if cfg.Model.ProtocolVersion == "" {
			errs = append(errs, "model.protocolVersion is required for the bedrock provider")
		}
	case "anthropic", "openai":
		if isBedrockModelID(cfg.Model.ModelID) {
			errs = append(errs, fmt.Sprintf("model.modelId %q is a Bedrock model id; clear it or pick a %s model", cfg.Model.ModelID, cfg.Model.Provider))
		}
	default:
		errs = append(errs, "model.provider must be one of: bedrock, anthropic, openai")
	}
	if cfg.Model.MaxTokens < 1 {
		errs = append(errs, "model.maxTokens must be >= 1")
	}
	if cfg.Model.RatePerMinute < 0 || cfg.Model.Burst < 0 {
		errs = append(errs, "model.ratePerMinute and model.burst must not be negative")
	}

	if cfg.Gateway.Port < 0 || cfg.Gateway.Port > 65535 {
		errs = append(errs, "gateway.port must be between 0 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// isBedrockModelID reports whether id has the vendor-prefixed Bedrock form,
// e.g. "anthropic.claude-3-haiku-20240307-v1:0".
func isBedrockModelID(id string) bool {
	vendor, _, ok := strings.Cut(id, ".")
	if !ok {
		return false
	}
	switch vendor {
	case "anthropic", "amazon", "meta", "mistral", "cohere", "ai21", "us", "eu", "apac":
		return true
	}
	return false
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
