package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/lehigh-university-libraries/partident/internal/errors"
	"github.com/lehigh-university-libraries/partident/internal/identification"
	"github.com/lehigh-university-libraries/partident/internal/images"
)

// Config holds runtime settings. Precedence: defaults, then the YAML file, then environment.
type Config struct {
	Provider      string  `yaml:"provider"`
	Model         string  `yaml:"model"`
	Temperature   float64 `yaml:"temperature"`
	GeminiAPIKey  string  `yaml:"gemini_api_key"`
	OpenAIAPIKey  string  `yaml:"openai_api_key"`
	OpenAIBaseURL string  `yaml:"openai_base_url"`
	OllamaURL     string  `yaml:"ollama_url"`

	DatabasePath  string `yaml:"database_path"`
	UploadsDir    string `yaml:"uploads_dir"`
	PublicBaseURL string `yaml:"public_base_url"`
	UploadWorkers int    `yaml:"upload_workers"`
	MaxImageSize  int64  `yaml:"max_image_size"`
	Port          string `yaml:"port"`
}

func Default() Config {
	return Config{
		Provider:      "gemini",
		Temperature:   0.1,
		DatabasePath:  "partident.db",
		UploadsDir:    "uploads",
		PublicBaseURL: "/static/uploads",
		UploadWorkers: 4,
		MaxImageSize:  images.DefaultMaxSize,
		Port:          "8888",
	}
}

// Load builds the configuration. path may be empty.
func Load(path string) (Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, apperrors.Wrap(apperrors.KindConfig, "config.load", "Unable to read config file.", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, apperrors.Wrap(apperrors.KindConfig, "config.load", "Invalid config file.", fmt.Errorf("failed to parse %s: %w", path, err))
		}
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return cfg, apperrors.Wrap(apperrors.KindConfig, "config.load", "Invalid environment configuration.", err)
	}

	cfg.resolveModel(lookup)

	if err := cfg.Validate(); err != nil {
		return cfg, apperrors.Wrap(apperrors.KindConfig, "config.validate", "Invalid configuration.", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"PARTIDENT_PROVIDER":   &cfg.Provider,
		"PARTIDENT_MODEL":      &cfg.Model,
		"GEMINI_API_KEY":       &cfg.GeminiAPIKey,
		"OPENAI_API_KEY":       &cfg.OpenAIAPIKey,
		"OPENAI_BASE_URL":      &cfg.OpenAIBaseURL,
		"OLLAMA_URL":           &cfg.OllamaURL,
		"PARTIDENT_DB":         &cfg.DatabasePath,
		"PARTIDENT_UPLOADS":    &cfg.UploadsDir,
		"PARTIDENT_PUBLIC_URL": &cfg.PublicBaseURL,
		"PORT":                 &cfg.Port,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("PARTIDENT_TEMPERATURE"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("PARTIDENT_TEMPERATURE: %w", err)
		}
		cfg.Temperature = f
	}
	if v, ok := lookup("PARTIDENT_UPLOAD_WORKERS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PARTIDENT_UPLOAD_WORKERS: %w", err)
		}
		cfg.UploadWorkers = n
	}
	if v, ok := lookup("PARTIDENT_MAX_IMAGE_SIZE"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("PARTIDENT_MAX_IMAGE_SIZE: %w", err)
		}
		cfg.MaxImageSize = n
	}
	return nil
}

// ResolveModel fills an empty Model from <PROVIDER>_MODEL or the provider default.
func (c *Config) ResolveModel() {
	c.resolveModel(os.LookupEnv)
}

func (c *Config) resolveModel(lookup func(string) (string, bool)) {
	if c.Model == "" {
		c.Model = providerModel(c.Provider, lookup)
	}
}

// providerModel reads the per-provider model variable, falling back to the built-in default.
func providerModel(provider string, lookup func(string) (string, bool)) string {
	if v, ok := lookup(strings.ToUpper(provider) + "_MODEL"); ok && v != "" {
		return v
	}
	return identification.DefaultModel(provider)
}

func (c Config) Validate() error {
	switch c.Provider {
	case "gemini", "openai", "ollama":
	default:
		return fmt.Errorf("unsupported provider: %s", c.Provider)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %v", c.Temperature)
	}
	if c.UploadWorkers < 1 {
		return fmt.Errorf("upload_workers must be at least 1, got %d", c.UploadWorkers)
	}
	if c.MaxImageSize < 1 {
		return fmt.Errorf("max_image_size must be positive, got %d", c.MaxImageSize)
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path is required")
	}
	return nil
}

// IdentificationOptions maps the config onto the identification service options.
func (c Config) IdentificationOptions() identification.Options {
	return identification.Options{
		Provider:      c.Provider,
		Model:         c.Model,
		Temperature:   c.Temperature,
		GeminiAPIKey:  c.GeminiAPIKey,
		OpenAIAPIKey:  c.OpenAIAPIKey,
		OpenAIBaseURL: c.OpenAIBaseURL,
		OllamaURL:     c.OllamaURL,
	}
}
