package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Veraticus/cardwise/internal/common"
	"github.com/Veraticus/cardwise/internal/hybrid"
	"github.com/Veraticus/cardwise/internal/llm"
)

// EnvPrefix is prepended to every environment override, e.g.
// CARDWISE_SERVER_PORT for server.port.
const EnvPrefix = "CARDWISE"

// MemoryDatabase selects a private in-memory database.
const MemoryDatabase = ":memory:"

// EnvironmentProduction hides internal error details from API callers.
const EnvironmentProduction = "production"

// Config is the complete application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	LLM      LLMConfig
	Parser   ParserConfig
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Environment string
	CORSOrigins string
	CertDir     string
	Port        int
	BodyLimit   int
	TLS         bool
}

// Production reports whether the server runs in production mode.
func (s ServerConfig) Production() bool {
	return strings.EqualFold(s.Environment, EnvironmentProduction)
}

// Address returns the listen address for Port.
func (s ServerConfig) Address() string {
	return fmt.Sprintf(":%d", s.Port)
}

// DatabaseConfig configures SQLite storage.
type DatabaseConfig struct {
	Path string
}

// LoggingConfig configures slog.
type LoggingConfig struct {
	Level  string
	Format string
}

// ParserConfig configures hybrid arbitration.
type ParserConfig struct {
	LLMConfidenceThreshold float64
	UseLLM                 bool
	EnableCaching          bool
	FallbackToRegex        bool
}

// LLMConfig configures the Ollama parser.
type LLMConfig struct {
	OllamaURL   string
	Model       string
	Timeout     time.Duration
	CacheTTL    time.Duration
	Temperature float64
	TopP        float64
	NumPredict  int
	NumCtx      int
	CacheSize   int
	RateLimit   int
	MaxRetries  int

	// HeuristicFallback lets the LLM parser answer with its regex heuristic
	// when the endpoint fails.
	HeuristicFallback bool
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.cors_origins", "http://localhost:3000")
	v.SetDefault("server.body_limit", 10*1024*1024)
	v.SetDefault("server.tls", false)
	v.SetDefault("server.cert_dir", "~/.config/cardwise/certs")

	v.SetDefault("database.path", "~/.local/share/cardwise/cardwise.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("parser.use_llm", true)
	v.SetDefault("parser.llm_confidence_threshold", 0.8)
	v.SetDefault("parser.enable_caching", true)
	v.SetDefault("parser.fallback_to_regex", true)

	v.SetDefault("llm.ollama_url", "http://localhost:11434")
	v.SetDefault("llm.model", "phi")
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.top_p", 0.9)
	v.SetDefault("llm.num_predict", 150)
	v.SetDefault("llm.num_ctx", 2048)
	v.SetDefault("llm.cache_ttl", 24*time.Hour)
	v.SetDefault("llm.cache_size", 1000)
	v.SetDefault("llm.rate_limit", 120)
	v.SetDefault("llm.max_retries", 1)
	v.SetDefault("llm.heuristic_fallback", false)
}

// Init prepares v: it loads .env into the process environment, registers
// defaults, enables CARDWISE_ overrides and reads the config file. An empty
// cfgFile searches ~/.config/cardwise and the working directory for
// config.yaml; a missing file there is not an error.
func Init(v *viper.Viper, cfgFile string) error {
	_ = godotenv.Load()

	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(ExpandPath(cfgFile))
	} else {
		v.AddConfigPath(DefaultConfigDir())
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

// Load builds a validated Config from v. A nil v uses the global viper.
func Load(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.GetViper()
	}

	cfg := Config{
		Server: ServerConfig{
			Port:        v.GetInt("server.port"),
			Environment: strings.TrimSpace(v.GetString("server.environment")),
			CORSOrigins: strings.TrimSpace(v.GetString("server.cors_origins")),
			BodyLimit:   v.GetInt("server.body_limit"),
			TLS:         v.GetBool("server.tls"),
			CertDir:     ExpandPath(strings.TrimSpace(v.GetString("server.cert_dir"))),
		},
		Database: DatabaseConfig{
			Path: ExpandPath(v.GetString("database.path")),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Parser: ParserConfig{
			UseLLM:                 v.GetBool("parser.use_llm"),
			LLMConfidenceThreshold: v.GetFloat64("parser.llm_confidence_threshold"),
			EnableCaching:          v.GetBool("parser.enable_caching"),
			FallbackToRegex:        v.GetBool("parser.fallback_to_regex"),
		},
		LLM: LLMConfig{
			OllamaURL:   strings.TrimRight(strings.TrimSpace(v.GetString("llm.ollama_url")), "/"),
			Model:       strings.TrimSpace(v.GetString("llm.model")),
			Timeout:     v.GetDuration("llm.timeout"),
			Temperature: v.GetFloat64("llm.temperature"),
			TopP:        v.GetFloat64("llm.top_p"),
			NumPredict:  v.GetInt("llm.num_predict"),
			NumCtx:      v.GetInt("llm.num_ctx"),
			CacheTTL:    v.GetDuration("llm.cache_ttl"),
			CacheSize:   v.GetInt("llm.cache_size"),
			RateLimit:   v.GetInt("llm.rate_limit"),
			MaxRetries:  v.GetInt("llm.max_retries"),

			HeuristicFallback: v.GetBool("llm.heuristic_fallback"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that every setting is usable.
func (c Config) Validate() error {
	var problems []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.BodyLimit <= 0 {
		problems = append(problems, "server.body_limit must be positive")
	}
	if c.Server.TLS && c.Server.CertDir == "" {
		problems = append(problems, "server.cert_dir is required when server.tls is enabled")
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		problems = append(problems, "database.path is required")
	}
	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		problems = append(problems, fmt.Sprintf("logging.level %q is not a level", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q must be console or json", c.Logging.Format))
	}
	if t := c.Parser.LLMConfidenceThreshold; t < 0 || t > 1 {
		problems = append(problems, fmt.Sprintf("parser.llm_confidence_threshold %v must be between 0 and 1", t))
	}
	if u, err := url.Parse(c.LLM.OllamaURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, fmt.Sprintf("llm.ollama_url %q is not an absolute URL", c.LLM.OllamaURL))
	}
	if c.LLM.Model == "" {
		problems = append(problems, "llm.model is required")
	}
	if c.LLM.Timeout <= 0 {
		problems = append(problems, "llm.timeout must be positive")
	}
	if c.LLM.CacheSize < 0 || c.LLM.CacheTTL < 0 {
		problems = append(problems, "llm cache size and ttl must not be negative")
	}
	if c.LLM.MaxRetries < 1 {
		problems = append(problems, "llm.max_retries must be at least 1")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", common.ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// HybridConfig returns the startup configuration of the hybrid controller.
func (c Config) HybridConfig() hybrid.Config {
	return hybrid.Config{
		UseLLM:                 c.Parser.UseLLM,
		LLMConfidenceThreshold: c.Parser.LLMConfidenceThreshold,
		EnableCaching:          c.Parser.EnableCaching,
		FallbackToRegex:        c.Parser.FallbackToRegex,
		OllamaURL:              c.LLM.OllamaURL,
		Model:                  c.LLM.Model,
	}
}

// LLMParserConfig returns the LLM parser settings. The heuristic fallback is
// off by default so that the hybrid controller makes the fallback decision;
// its answers still go through the confidence threshold when enabled.
func (c Config) LLMParserConfig() llm.Config {
	cfg := llm.DefaultConfig()
	cfg.OllamaURL = c.LLM.OllamaURL
	cfg.Model = c.LLM.Model
	cfg.Timeout = c.LLM.Timeout
	cfg.Temperature = c.LLM.Temperature
	cfg.TopP = c.LLM.TopP
	cfg.NumPredict = c.LLM.NumPredict
	cfg.NumCtx = c.LLM.NumCtx
	cfg.CacheTTL = c.LLM.CacheTTL
	cfg.CacheSize = c.LLM.CacheSize
	cfg.RateLimit = c.LLM.RateLimit
	cfg.MaxRetries = c.LLM.MaxRetries
	cfg.EnableCaching = c.Parser.EnableCaching
	cfg.HeuristicFallback = c.LLM.HeuristicFallback
	return cfg
}
