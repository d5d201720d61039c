package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/recap-cli/internal/cost"
)

// Summarizer modes.
const (
	ModeExtractive = "extractive"
	ModeOpenAI     = "openai"
	ModeAnthropic  = "anthropic"
)

// Config holds the full application configuration.
type Config struct {
	Channel    ChannelConfig    `yaml:"channel" mapstructure:"channel"`
	YouTube    YouTubeConfig    `yaml:"youtube" mapstructure:"youtube"`
	Transcript TranscriptConfig `yaml:"transcript" mapstructure:"transcript"`
	STT        STTConfig        `yaml:"stt" mapstructure:"stt"`
	Summarizer SummarizerConfig `yaml:"summarizer" mapstructure:"summarizer"`
	Grounding  GroundingConfig  `yaml:"grounding" mapstructure:"grounding"`
	OpenAI     LLMConfig        `yaml:"openai" mapstructure:"openai"`
	Anthropic  LLMConfig        `yaml:"anthropic" mapstructure:"anthropic"`
	Prices     PricesConfig     `yaml:"prices" mapstructure:"prices"`
	Vocab      VocabConfig      `yaml:"vocab" mapstructure:"vocab"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	HTTP       HTTPConfig       `yaml:"http" mapstructure:"http"`
	Pricing    cost.Rates       `yaml:"pricing" mapstructure:"pricing"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// ChannelConfig selects the videos to summarize.
type ChannelConfig struct {
	ID           string `yaml:"id" mapstructure:"id"`
	Playlist     string `yaml:"playlist" mapstructure:"playlist"`
	LookbackDays int    `yaml:"lookback_days" mapstructure:"lookback_days"`
	MaxVideos    int    `yaml:"max_videos" mapstructure:"max_videos"`
}

// YouTubeConfig holds Data API and OAuth credentials.
type YouTubeConfig struct {
	APIKey          string `yaml:"api_key" mapstructure:"api_key"`
	OAuthClientFile string `yaml:"oauth_client_file" mapstructure:"oauth_client_file"`
	TokenFile       string `yaml:"token_file" mapstructure:"token_file"`
}

// TranscriptConfig configures the acquisition cascade.
type TranscriptConfig struct {
	MinChars         int      `yaml:"min_chars" mapstructure:"min_chars"`
	MaxChars         int      `yaml:"max_chars" mapstructure:"max_chars"`
	Locales          []string `yaml:"locales" mapstructure:"locales"`
	StageTimeoutSecs int      `yaml:"stage_timeout_secs" mapstructure:"stage_timeout_secs"`
	// Each stage has its own breaker; it opens after this many consecutive
	// failures and lets a trial call through after BreakerResetSecs.
	BreakerFailureThreshold int `yaml:"breaker_failure_threshold" mapstructure:"breaker_failure_threshold"`
	BreakerResetSecs        int `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// STTConfig configures the local speech-to-text stage. The stage is
// disabled when ModelPath is empty.
type STTConfig struct {
	ModelPath  string `yaml:"model_path" mapstructure:"model_path"`
	WhisperBin string `yaml:"whisper_bin" mapstructure:"whisper_bin"`
	YTDLPBin   string `yaml:"ytdlp_bin" mapstructure:"ytdlp_bin"`
	Threads    int    `yaml:"threads" mapstructure:"threads"`
	Language   string `yaml:"language" mapstructure:"language"`
	ScratchDir string `yaml:"scratch_dir" mapstructure:"scratch_dir"`
}

// SummarizerConfig selects the summarizer and its run budget.
type SummarizerConfig struct {
	Mode               string  `yaml:"mode" mapstructure:"mode"`
	MinTranscriptChars int     `yaml:"min_transcript_chars" mapstructure:"min_transcript_chars"`
	MaxRunCostUSD      float64 `yaml:"max_run_cost_usd" mapstructure:"max_run_cost_usd"`
}

// GroundingConfig configures the numeric grounding filter.
type GroundingConfig struct {
	Tolerance       float64 `yaml:"tolerance" mapstructure:"tolerance"`
	RedactionMarker string  `yaml:"redaction_marker" mapstructure:"redaction_marker"`
}

// LLMConfig configures one text-generation provider.
type LLMConfig struct {
	APIKey      string  `yaml:"api_key" mapstructure:"api_key"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
}

// PricesConfig configures the spot price lookup for the plausibility filter.
type PricesConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	APIKey   string `yaml:"api_key" mapstructure:"api_key"`
	Currency string `yaml:"currency" mapstructure:"currency"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
}

// VocabConfig points at an optional vocabulary override file.
type VocabConfig struct {
	File string `yaml:"file" mapstructure:"file"`
}

// OutputConfig configures the generated site.
type OutputConfig struct {
	Dir       string `yaml:"dir" mapstructure:"dir"`
	SiteTitle string `yaml:"site_title" mapstructure:"site_title"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentVideos int `yaml:"max_concurrent_videos" mapstructure:"max_concurrent_videos"`
}

// HTTPConfig configures retries for public page and feed requests.
type HTTPConfig struct {
	RetryMaxAttempts      int `yaml:"retry_max_attempts" mapstructure:"retry_max_attempts"`
	RetryInitialBackoffMs int `yaml:"retry_initial_backoff_ms" mapstructure:"retry_initial_backoff_ms"`
	RetryMaxBackoffMs     int `yaml:"retry_max_backoff_ms" mapstructure:"retry_max_backoff_ms"`
}

// MonitoringConfig configures end-of-run alerts.
type MonitoringConfig struct {
	WebhookURL         string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	ErrorRateThreshold float64 `yaml:"error_rate_threshold" mapstructure:"error_rate_threshold"`
	CostThresholdUSD   float64 `yaml:"cost_threshold_usd" mapstructure:"cost_threshold_usd"`
}

// ServerConfig configures the preview server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RECAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("channel.lookback_days", 14)
	v.SetDefault("channel.max_videos", 25)
	v.SetDefault("youtube.token_file", "token.json")
	v.SetDefault("transcript.min_chars", 200)
	v.SetDefault("transcript.max_chars", 60000)
	v.SetDefault("transcript.locales", []string{"en", "en-US", "en-GB"})
	v.SetDefault("transcript.stage_timeout_secs", 120)
	v.SetDefault("transcript.breaker_failure_threshold", 5)
	v.SetDefault("transcript.breaker_reset_secs", 30)
	v.SetDefault("http.retry_max_attempts", 3)
	v.SetDefault("http.retry_initial_backoff_ms", 500)
	v.SetDefault("http.retry_max_backoff_ms", 10000)
	v.SetDefault("stt.whisper_bin", "whisper-cli")
	v.SetDefault("stt.ytdlp_bin", "yt-dlp")
	v.SetDefault("stt.threads", 4)
	v.SetDefault("stt.language", "en")
	v.SetDefault("summarizer.mode", ModeExtractive)
	v.SetDefault("summarizer.min_transcript_chars", 200)
	v.SetDefault("summarizer.max_run_cost_usd", 1.00)
	v.SetDefault("grounding.tolerance", 0.01)
	v.SetDefault("grounding.redaction_marker", "[redacted]")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 1200)
	v.SetDefault("openai.temperature", 0.2)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1200)
	v.SetDefault("anthropic.temperature", 0.2)
	v.SetDefault("prices.enabled", false)
	v.SetDefault("prices.currency", "usd")
	v.SetDefault("output.dir", "site")
	v.SetDefault("output.site_title", "Video Recaps")
	v.SetDefault("batch.max_concurrent_videos", 1)
	v.SetDefault("monitoring.error_rate_threshold", 0.25)
	v.SetDefault("monitoring.cost_threshold_usd", 0)

	// Keys without defaults are invisible to AutomaticEnv during Unmarshal.
	for _, key := range []string{
		"channel.id", "channel.playlist",
		"youtube.api_key", "youtube.oauth_client_file",
		"stt.model_path", "stt.scratch_dir",
		"openai.api_key", "openai.base_url",
		"anthropic.api_key", "anthropic.base_url",
		"prices.api_key", "prices.base_url",
		"vocab.file",
		"monitoring.webhook_url",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	cfg.Pricing = withDefaultRates(cfg.Pricing)

	return &cfg, nil
}

// withDefaultRates fills in built-in rates for models the config does not
// price. Model ids contain dots, which viper treats as key separators, so
// these defaults are merged after unmarshalling instead of via SetDefault.
func withDefaultRates(r cost.Rates) cost.Rates {
	def := cost.DefaultRates()
	r.OpenAI = mergeRates(r.OpenAI, def.OpenAI)
	r.Anthropic = mergeRates(r.Anthropic, def.Anthropic)
	return r
}

func mergeRates(have, def map[string]cost.ModelRate) map[string]cost.ModelRate {
	out := make(map[string]cost.ModelRate, len(have)+len(def))
	for k, v := range def {
		out[k] = v
	}
	for k, v := range have {
		out[k] = v
	}
	return out
}

// Validate checks the settings the given command depends on. Every
// problem is reported, not just the first.
func (c *Config) Validate(command string) error {
	var problems []string
	require := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	switch command {
	case "build":
		require(c.Channel.ID != "", "channel.id is required")
		require(c.Output.Dir != "", "output.dir is required")
		require(c.Batch.MaxConcurrentVideos > 0, "batch.max_concurrent_videos must be positive")
		require(c.Transcript.BreakerFailureThreshold >= 0, "transcript.breaker_failure_threshold must not be negative")
		require(c.Transcript.BreakerResetSecs >= 0, "transcript.breaker_reset_secs must not be negative")
		require(c.HTTP.RetryMaxAttempts >= 0, "http.retry_max_attempts must not be negative")
		problems = append(problems, c.summarizerProblems()...)
	case "summarize":
		problems = append(problems, c.summarizerProblems()...)
	case "auth":
		require(c.YouTube.OAuthClientFile != "", "youtube.oauth_client_file is required")
		require(c.YouTube.TokenFile != "", "youtube.token_file is required")
	case "serve":
		require(c.Output.Dir != "", "output.dir is required")
		require(c.Server.Port > 0 && c.Server.Port < 65536, "server.port must be between 1 and 65535")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) summarizerProblems() []string {
	var problems []string
	switch c.Summarizer.Mode {
	case ModeExtractive:
	case ModeOpenAI:
		if c.OpenAI.APIKey == "" {
			problems = append(problems, "openai.api_key is required for summarizer.mode openai")
		}
	case ModeAnthropic:
		if c.Anthropic.APIKey == "" {
			problems = append(problems, "anthropic.api_key is required for summarizer.mode anthropic")
		}
	default:
		problems = append(problems, "summarizer.mode must be one of extractive, openai, anthropic (got "+c.Summarizer.Mode+")")
	}
	if c.Grounding.Tolerance < 0 {
		problems = append(problems, "grounding.tolerance must not be negative")
	}
	return problems
}

// OAuthEnabled reports whether the official captions stage can run.
func (c *Config) OAuthEnabled() bool {
	return c.YouTube.OAuthClientFile != "" && c.YouTube.TokenFile != ""
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
