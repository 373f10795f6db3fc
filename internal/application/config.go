package application

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/Antonio-Ardigo/Remote-Project/infrastructure/quality"
	"github.com/Antonio-Ardigo/Remote-Project/infrastructure/translate"
	"github.com/Antonio-Ardigo/Remote-Project/internal/domain"
	"github.com/Antonio-Ardigo/Remote-Project/internal/observability"
)

// EnvPrefix prefixes every environment override, e.g. TRANSENSEMBLE_POLICY.
const EnvPrefix = "TRANSENSEMBLE"

// Config is the complete configuration of the engine and the CLI.
type Config struct {
	// Methods lists the translation methods to attempt.
	Methods []string `yaml:"methods" mapstructure:"methods" validate:"required,min=1,unique,dive,method"`

	// Policy is the confidence gate threshold policy.
	Policy string `yaml:"policy" mapstructure:"policy" validate:"required,policy"`

	// ForceMulti runs every method regardless of the primary's score.
	ForceMulti bool `yaml:"force_multi" mapstructure:"force_multi"`

	// Mode is "parallel" or "escalate".
	Mode string `yaml:"mode" mapstructure:"mode" validate:"required,oneof=parallel escalate"`

	// ClosenessMargin is the blend gap under which the judge is consulted.
	ClosenessMargin float64 `yaml:"closeness_margin" mapstructure:"closeness_margin" validate:"gt=0,lte=1"`

	Weights Weights `yaml:"weights" mapstructure:"weights"`

	// MethodTimeout bounds every method invocation.
	MethodTimeout time.Duration `yaml:"method_timeout" mapstructure:"method_timeout" validate:"gt=0"`

	// Concurrency limits in-flight method calls per round; 0 means unlimited.
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency" validate:"gte=0"`

	SourceLang string `yaml:"source_lang" mapstructure:"source_lang" validate:"required,min=2,max=8"`
	TargetLang string `yaml:"target_lang" mapstructure:"target_lang" validate:"required,min=2,max=8"`

	// Similarity is the agreement algorithm: jaccard, levenshtein or hybrid.
	Similarity string `yaml:"similarity" mapstructure:"similarity" validate:"required,oneof=jaccard levenshtein hybrid"`

	Chunking ChunkingConfig `yaml:"chunking" mapstructure:"chunking"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Judge    JudgeSettings  `yaml:"judge" mapstructure:"judge"`
	Retry    RetrySettings  `yaml:"retry" mapstructure:"retry"`

	// Providers binds each method to a backend.
	Providers map[string]translate.MethodConfig `yaml:"providers" mapstructure:"providers" validate:"dive,keys,method,endkeys"`

	Log     observability.LogConfig     `yaml:"log" mapstructure:"log"`
	Tracing observability.TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig               `yaml:"metrics" mapstructure:"metrics"`
}

// ChunkingConfig controls document splitting.
type ChunkingConfig struct {
	MaxRunes     int `yaml:"max_runes" mapstructure:"max_runes" validate:"gte=200"`
	ContextRunes int `yaml:"context_runes" mapstructure:"context_runes" validate:"gte=0,ltfield=MaxRunes"`
	Concurrency  int `yaml:"concurrency" mapstructure:"concurrency" validate:"gte=1,lte=32"`
}

// CacheConfig selects the candidate cache.
type CacheConfig struct {
	Backend  string        `yaml:"backend" mapstructure:"backend" validate:"oneof=none memory redis"`
	RedisURL string        `yaml:"redis_url" mapstructure:"redis_url" validate:"required_if=Backend redis,omitempty,url"`
	TTL      time.Duration `yaml:"ttl" mapstructure:"ttl" validate:"gte=0"`
}

// JudgeSettings configures the LLM judge.
type JudgeSettings struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Backend   string        `yaml:"backend" mapstructure:"backend" validate:"required_if=Enabled true,omitempty,oneof=anthropic openai google"`
	Model     string        `yaml:"model" mapstructure:"model"`
	APIKey    string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL   string        `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`
	MaxTokens int           `yaml:"max_tokens" mapstructure:"max_tokens" validate:"gte=256,lte=8192"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
}

// RetrySettings configures provider retries.
type RetrySettings struct {
	MaxRetries int           `yaml:"max_retries" mapstructure:"max_retries" validate:"gte=0,lte=10"`
	BaseDelay  time.Duration `yaml:"base_delay" mapstructure:"base_delay" validate:"gte=0"`
	MaxDelay   time.Duration `yaml:"max_delay" mapstructure:"max_delay" validate:"gtefield=BaseDelay"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Address string `yaml:"address" mapstructure:"address" validate:"required_if=Enabled true"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	providers := make(map[string]translate.MethodConfig)
	for m, mc := range translate.DefaultMethodConfigs() {
		providers[m.String()] = mc
	}
	retry := translate.DefaultRetryPolicy()
	return Config{
		Methods:         []string{"method_a", "method_b", "method_c", "method_d"},
		Policy:          string(domain.PolicyModerate),
		Mode:            ModeParallel,
		ClosenessMargin: DefaultClosenessMargin,
		Weights:         DefaultWeights(),
		MethodTimeout:   DefaultMethodTimeout,
		SourceLang:      "ar",
		TargetLang:      "en",
		Similarity:      quality.AlgorithmJaccard,
		Chunking: ChunkingConfig{
			MaxRunes:     DefaultChunkRunes,
			ContextRunes: DefaultContextRunes,
			Concurrency:  2,
		},
		Cache: CacheConfig{Backend: "none", TTL: 24 * time.Hour},
		Judge: JudgeSettings{
			Enabled:   true,
			Backend:   translate.BackendAnthropic,
			Model:     quality.DefaultJudgeModel,
			MaxTokens: quality.DefaultJudgeMaxTokens,
			Timeout:   90 * time.Second,
		},
		Retry: RetrySettings{
			MaxRetries: retry.MaxRetries,
			BaseDelay:  retry.BaseDelay,
			MaxDelay:   retry.MaxDelay,
		},
		Providers: providers,
		Log:       observability.DefaultLogConfig(),
		Tracing:   observability.DefaultTracingConfig(),
		Metrics:   MetricsConfig{Address: ":9464"},
	}
}

// setDefaults registers every default with v so that environment variables
// can override keys that no config file mentions.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("methods", d.Methods)
	v.SetDefault("policy", d.Policy)
	v.SetDefault("force_multi", d.ForceMulti)
	v.SetDefault("mode", d.Mode)
	v.SetDefault("closeness_margin", d.ClosenessMargin)
	v.SetDefault("weights.heuristic", d.Weights.Heuristic)
	v.SetDefault("weights.agreement", d.Weights.Agreement)
	v.SetDefault("weights.judge", d.Weights.Judge)
	v.SetDefault("method_timeout", d.MethodTimeout)
	v.SetDefault("concurrency", d.Concurrency)
	v.SetDefault("source_lang", d.SourceLang)
	v.SetDefault("target_lang", d.TargetLang)
	v.SetDefault("similarity", d.Similarity)

	v.SetDefault("chunking.max_runes", d.Chunking.MaxRunes)
	v.SetDefault("chunking.context_runes", d.Chunking.ContextRunes)
	v.SetDefault("chunking.concurrency", d.Chunking.Concurrency)

	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.redis_url", d.Cache.RedisURL)
	v.SetDefault("cache.ttl", d.Cache.TTL)

	v.SetDefault("judge.enabled", d.Judge.Enabled)
	v.SetDefault("judge.backend", d.Judge.Backend)
	v.SetDefault("judge.model", d.Judge.Model)
	v.SetDefault("judge.api_key", d.Judge.APIKey)
	v.SetDefault("judge.base_url", d.Judge.BaseURL)
	v.SetDefault("judge.max_tokens", d.Judge.MaxTokens)
	v.SetDefault("judge.timeout", d.Judge.Timeout)

	v.SetDefault("retry.max_retries", d.Retry.MaxRetries)
	v.SetDefault("retry.base_delay", d.Retry.BaseDelay)
	v.SetDefault("retry.max_delay", d.Retry.MaxDelay)

	for name, p := range d.Providers {
		prefix := "providers." + name + "."
		v.SetDefault(prefix+"backend", p.Backend)
		v.SetDefault(prefix+"model", p.Model)
		v.SetDefault(prefix+"api_key", p.APIKey)
		v.SetDefault(prefix+"base_url", p.BaseURL)
		v.SetDefault(prefix+"max_tokens", p.MaxTokens)
		v.SetDefault(prefix+"requests_per_second", p.RequestsPerSecond)
	}

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.time_format", d.Log.TimeFormat)
	v.SetDefault("log.output", d.Log.Output)

	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.endpoint", d.Tracing.Endpoint)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.insecure", d.Tracing.Insecure)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.address", d.Metrics.Address)
}

// NewViper returns a viper instance with defaults and environment binding.
// When path is empty, transensemble.{yaml,yml,json,toml} is searched in the
// working directory and in $HOME/.config/transensemble.
func NewViper(path string) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("transensemble")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/transensemble")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig reads the configuration file at path (optional), applies
// environment overrides and validates the result.
func LoadConfig(path string) (Config, error) {
	return LoadConfigFrom(NewViper(path))
}

// LoadConfigFrom decodes and validates the configuration held by v. A
// missing config file is not an error when no explicit path was set.
func LoadConfigFrom(v *viper.Viper) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks struct tags, the weights and that every method has a
// provider binding.
func (c Config) Validate() error {
	v := validator.New()
	if err := RegisterConfigValidators(v); err != nil {
		return err
	}
	if err := v.Struct(c); err != nil {
		verr := domain.NewValidationError("config")
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				verr.AddError(fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
		} else {
			verr.AddError(err.Error())
		}
		return verr
	}
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	for _, name := range c.Methods {
		if _, ok := c.Providers[strings.ToLower(name)]; !ok {
			verr := domain.NewValidationError("config")
			verr.AddError(fmt.Sprintf("method %s has no provider binding", name))
			return verr
		}
	}
	return nil
}

// ParsedMethods returns the configured methods in priority order.
func (c Config) ParsedMethods() ([]domain.Method, error) {
	out := make([]domain.Method, 0, len(c.Methods))
	for _, name := range c.Methods {
		m, err := domain.ParseMethod(name)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	domain.SortByPriority(out)
	return out, nil
}

// MethodConfigs returns the provider binding of every configured method.
func (c Config) MethodConfigs() (map[domain.Method]translate.MethodConfig, error) {
	methods, err := c.ParsedMethods()
	if err != nil {
		return nil, err
	}
	out := make(map[domain.Method]translate.MethodConfig, len(methods))
	for _, m := range methods {
		p, ok := c.Providers[m.String()]
		if !ok {
			return nil, fmt.Errorf("%w: method %s has no provider binding", domain.ErrInvalidConfiguration, m)
		}
		out[m] = p
	}
	return out, nil
}

// Gate returns the confidence gate configuration.
func (c Config) Gate() GateConfig {
	return GateConfig{Policy: domain.ThresholdPolicy(strings.ToLower(c.Policy)), ForceMulti: c.ForceMulti}
}

// RegisterConfigValidators registers the "method" and "policy" tags.
func RegisterConfigValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("method", validateMethodTag); err != nil {
		return fmt.Errorf("failed to register method validator: %w", err)
	}
	if err := v.RegisterValidation("policy", validatePolicyTag); err != nil {
		return fmt.Errorf("failed to register policy validator: %w", err)
	}
	return nil
}

func validateMethodTag(fl validator.FieldLevel) bool {
	_, err := domain.ParseMethod(fl.Field().String())
	return err == nil
}

func validatePolicyTag(fl validator.FieldLevel) bool {
	_, err := domain.ParsePolicy(fl.Field().String())
	return err == nil
}
