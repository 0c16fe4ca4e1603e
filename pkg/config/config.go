package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	xutil "github.com/dogmaai/magi-decision/pkg/util"

	"gopkg.in/yaml.v3"
)

// LLMConfig describes one vendor endpoint.
type LLMConfig struct {
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
	Retries     int           `yaml:"retries"`
}

// Enabled reports whether a credential is present.
func (c LLMConfig) Enabled() bool { return strings.TrimSpace(c.APIKey) != "" }

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		SlowThreshold   time.Duration `yaml:"slow_threshold"`
		CORSOrigins     []string      `yaml:"cors_origins"`
	} `yaml:"server"`
	Logger struct {
		Level     string `yaml:"level"`
		Format    string `yaml:"format"`
		Output    string `yaml:"output"`
		Collector struct {
			Enabled        bool          `yaml:"enabled"`
			Topic          string        `yaml:"topic"`
			Interval       time.Duration `yaml:"interval"`
			CountThreshold int           `yaml:"count_threshold"`
		} `yaml:"collector"`
	} `yaml:"logger"`
	Decision struct {
		UnanimousRequired bool          `yaml:"unanimous_required"`
		MinConfidence     float64       `yaml:"min_confidence"`
		TakeProfitPct     float64       `yaml:"take_profit_pct"`
		StopLossPct       float64       `yaml:"stop_loss_pct"`
		DefaultQty        int           `yaml:"default_qty"`
		SignalTopic       string        `yaml:"signal_topic"`
		RequestTimeout    time.Duration `yaml:"request_timeout"`
		BackgroundTimeout time.Duration `yaml:"background_timeout"`
		DefaultUnits      []string      `yaml:"default_units"`
	} `yaml:"decision"`
	Agents struct {
		Grok      LLMConfig `yaml:"grok"`
		Gemini    LLMConfig `yaml:"gemini"`
		Anthropic LLMConfig `yaml:"anthropic"`
		Mistral   LLMConfig `yaml:"mistral"`
		OpenAI    LLMConfig `yaml:"openai"`
		Isabel    struct {
			URL     string        `yaml:"url"`
			Token   string        `yaml:"token"`
			Limit   int           `yaml:"limit"`
			MaxDocs int           `yaml:"max_docs"`
			Timeout time.Duration `yaml:"timeout"`
		} `yaml:"isabel"`
	} `yaml:"agents"`
	Tools struct {
		MaxIterations int           `yaml:"max_iterations"`
		CacheTTL      time.Duration `yaml:"cache_ttl"`
		DefaultPeriod string        `yaml:"default_period"`
	} `yaml:"tools"`
	Market struct {
		YahooBaseURL string        `yaml:"yahoo_base_url"`
		Timeout      time.Duration `yaml:"timeout"`
	} `yaml:"market"`
	Alpaca struct {
		APIKey    string        `yaml:"api_key"`
		SecretKey string        `yaml:"secret_key"`
		BaseURL   string        `yaml:"base_url"`
		Timeout   time.Duration `yaml:"timeout"`
	} `yaml:"alpaca"`
	Finnhub struct {
		APIKey         string        `yaml:"api_key"`
		WebSocketURL   string        `yaml:"websocket_url"`
		Symbols        []string      `yaml:"symbols"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
		MaxQuoteAge    time.Duration `yaml:"max_quote_age"`
	} `yaml:"finnhub"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
			PriceTopic string        `yaml:"price_topic"`
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		Table            string        `yaml:"table"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	RateLimit struct {
		DecideCapacity float64 `yaml:"decide_capacity"`
		DecideRefill   float64 `yaml:"decide_refill_per_sec"`
	} `yaml:"ratelimit"`
	Profiling struct {
		Enabled       bool   `yaml:"enabled"`
		ServerAddress string `yaml:"server_address"`
		AppName       string `yaml:"app_name"`
	} `yaml:"profiling"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes, applies defaults and validates.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// Vendor credentials are expected to arrive through the environment.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.ApplyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides fields from the given lookup function.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Agents.Mistral.APIKey, "MISTRAL_API_KEY")
	set(&c.Agents.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	set(&c.Agents.OpenAI.APIKey, "OPENAI_API_KEY")
	set(&c.Agents.Gemini.APIKey, "GEMINI_API_KEY")
	set(&c.Agents.Grok.APIKey, "XAI_API_KEY")
	set(&c.Agents.Isabel.URL, "ISABEL_URL")
	set(&c.Agents.Isabel.Token, "ISABEL_TOKEN")
	set(&c.Alpaca.APIKey, "ALPACA_API_KEY")
	set(&c.Alpaca.SecretKey, "ALPACA_SECRET_KEY")
	set(&c.Finnhub.APIKey, "FINNHUB_API_KEY")
	set(&c.Redis.Addr, "REDIS_ADDR")
	set(&c.Decision.SignalTopic, "SIGNAL_TOPIC")

	if v := getenv("PORT"); v != "" {
		c.Server.Port = xutil.ParseIntDefault(v, c.Server.Port)
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = xutil.SplitCSV(v)
		c.Kafka.Enabled = len(c.Kafka.Brokers) > 0
	}
	if v := getenv("MIN_CONFIDENCE"); v != "" {
		c.Decision.MinConfidence = xutil.ParseFloatDefault(v, c.Decision.MinConfidence)
	}
	if v := getenv("FINNHUB_SYMBOLS"); v != "" {
		c.Finnhub.Symbols = xutil.SplitCSV(v)
	}
}

// ApplyDefaults fills zero values with the service defaults.
func (c *Config) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 5 * time.Minute
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Format == "" {
		c.Logger.Format = "json"
	}
	if c.Logger.Output == "" {
		c.Logger.Output = "stdout"
	}
	if c.Logger.Collector.Topic == "" {
		c.Logger.Collector.Topic = "magi-decision-logs"
	}

	d := &c.Decision
	if d.MinConfidence == 0 {
		d.MinConfidence = 0.70
	}
	if d.TakeProfitPct == 0 {
		d.TakeProfitPct = 5
	}
	if d.StopLossPct == 0 {
		d.StopLossPct = 3
	}
	if d.DefaultQty == 0 {
		d.DefaultQty = 1
	}
	if d.SignalTopic == "" {
		d.SignalTopic = "trade-signals"
	}
	if d.BackgroundTimeout == 0 {
		d.BackgroundTimeout = 5 * time.Minute
	}
	if len(d.DefaultUnits) == 0 {
		d.DefaultUnits = []string{"ISABEL", "B2", "M1", "C3", "R4"}
	}

	llmDefaults(&c.Agents.Grok, "https://api.x.ai/v1", "grok-2-latest", 0.7)
	llmDefaults(&c.Agents.Gemini, "https://generativelanguage.googleapis.com/v1beta", "gemini-1.5-flash-latest", 0.7)
	llmDefaults(&c.Agents.Anthropic, "https://api.anthropic.com/v1", "claude-sonnet-4-20250514", 0.7)
	llmDefaults(&c.Agents.Mistral, "https://api.mistral.ai/v1", "mistral-large-latest", 0.3)
	llmDefaults(&c.Agents.OpenAI, "https://api.openai.com/v1", "gpt-4o-mini", 0.3)
	if c.Agents.Anthropic.MaxTokens == 0 {
		c.Agents.Anthropic.MaxTokens = 4096
	}
	if c.Agents.Isabel.Limit == 0 {
		c.Agents.Isabel.Limit = 10
	}
	if c.Agents.Isabel.MaxDocs == 0 {
		c.Agents.Isabel.MaxDocs = 15
	}
	if c.Agents.Isabel.Timeout == 0 {
		c.Agents.Isabel.Timeout = 20 * time.Second
	}

	if c.Tools.MaxIterations == 0 {
		c.Tools.MaxIterations = 3
	}
	if c.Tools.CacheTTL == 0 {
		c.Tools.CacheTTL = time.Minute
	}
	if c.Tools.DefaultPeriod == "" {
		c.Tools.DefaultPeriod = "3mo"
	}
	if c.Market.YahooBaseURL == "" {
		c.Market.YahooBaseURL = "https://query1.finance.yahoo.com"
	}
	if c.Market.Timeout == 0 {
		c.Market.Timeout = 10 * time.Second
	}
	if c.Alpaca.BaseURL == "" {
		c.Alpaca.BaseURL = "https://paper-api.alpaca.markets"
	}
	if c.Alpaca.Timeout == 0 {
		c.Alpaca.Timeout = 10 * time.Second
	}
	if c.Finnhub.WebSocketURL == "" {
		c.Finnhub.WebSocketURL = "wss://ws.finnhub.io"
	}
	if c.Finnhub.ReconnectDelay == 0 {
		c.Finnhub.ReconnectDelay = 5 * time.Second
	}
	if c.Finnhub.PingInterval == 0 {
		c.Finnhub.PingInterval = 30 * time.Second
	}
	if c.Finnhub.MaxQuoteAge == 0 {
		c.Finnhub.MaxQuoteAge = 5 * time.Minute
	}
	if c.Kafka.Consumer.PriceTopic == "" {
		c.Kafka.Consumer.PriceTopic = "price-updates"
	}
	if c.Kafka.Consumer.GroupID == "" {
		c.Kafka.Consumer.GroupID = "magi-decision"
	}
	if c.ClickHouse.Table == "" {
		c.ClickHouse.Table = "daily_candles"
	}
	if c.RateLimit.DecideCapacity == 0 {
		c.RateLimit.DecideCapacity = 5
	}
	if c.RateLimit.DecideRefill == 0 {
		c.RateLimit.DecideRefill = 0.2
	}
	if c.Profiling.AppName == "" {
		c.Profiling.AppName = "magi-decision"
	}
}

func llmDefaults(c *LLMConfig, baseURL, model string, temperature float64) {
	if c.BaseURL == "" {
		c.BaseURL = baseURL
	}
	if c.Model == "" {
		c.Model = model
	}
	if c.Temperature == 0 {
		c.Temperature = temperature
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 2048
	}
	if c.Timeout == 0 {
		c.Timeout = 90 * time.Second
	}
	if c.Retries == 0 {
		c.Retries = 2
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Decision.MinConfidence < 0 || c.Decision.MinConfidence > 1 {
		return fmt.Errorf("decision.min_confidence must be within [0,1], got %v", c.Decision.MinConfidence)
	}
	if c.Decision.DefaultQty <= 0 {
		return fmt.Errorf("decision.default_qty must be positive")
	}
	if c.Tools.MaxIterations <= 0 {
		return fmt.Errorf("tools.max_iterations must be positive")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	if c.Profiling.Enabled && c.Profiling.ServerAddress == "" {
		return fmt.Errorf("profiling.server_address is required when profiling is enabled")
	}
	return nil
}
