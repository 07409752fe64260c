package config

import (
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"EthNews/internal/domain"
	"EthNews/pkg/logger"
)

const (
	defaultTimezone   = "UTC"
	EnvConfigPath     = "ETHNEWS_CONFIG"
	dotenvPathEnv     = "ETHNEWS_DOTENV"
	databaseDriverEnv = "DATABASE_DRIVER"
	databaseDSNEnv    = "DATABASE_DSN"
	chatGPTAPIKeyEnv  = "CHATGPT_API_KEY"
	chatGPTModelEnv   = "CHATGPT_MODEL"
	summarizerEnv     = "SUMMARIZER_PROVIDER"
	ollamaURLEnv      = "OLLAMA_BASE_URL"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	logLevelEnv       = "LOG_LEVEL"
	portEnv           = "PORT"
	maxArticlesEnv    = "RETENTION_MAX_ARTICLES"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	ProviderExtractive = "extractive"
	ProviderChatGPT    = "chatgpt"
	ProviderOllama     = "ollama"
)

var log = logger.New("config")

// Config holds high-level settings required across the application.
type Config struct {
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Fetch         FetchConfig        `yaml:"fetch"`
	Filter        FilterConfig       `yaml:"filter"`
	Retention     RetentionConfig    `yaml:"retention"`
	Summarizer    SummarizerConfig   `yaml:"summarizer"`
	ChatGPT       ChatGPTConfig      `yaml:"chatgpt"`
	Ollama        OllamaConfig       `yaml:"ollama"`
	Notifications NotificationConfig `yaml:"notifications"`
	Server        ServerConfig       `yaml:"server"`
	Logging       LoggingConfig      `yaml:"logging"`
	Sources       []SourceConfig     `yaml:"sources"`
}

// DatabaseConfig selects the SQL dialect and its connection string.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// SchedulerConfig defines how often ingestion runs.
type SchedulerConfig struct {
	Interval   time.Duration  `yaml:"interval"`
	Timezone   string         `yaml:"timezone"`
	RunOnStart *bool          `yaml:"runOnStart"`
	location   *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// ShouldRunOnStart reports whether a cycle fires right after startup.
func (s SchedulerConfig) ShouldRunOnStart() bool {
	return s.RunOnStart == nil || *s.RunOnStart
}

// FetchConfig bounds every feed request.
type FetchConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	UserAgent    string        `yaml:"userAgent"`
	Concurrency  int           `yaml:"concurrency"`
	MaxBodyBytes int64         `yaml:"maxBodyBytes"`
}

// FilterConfig lists the keywords that make an entry relevant.
type FilterConfig struct {
	Keywords []string `yaml:"keywords"`
}

// RetentionConfig caps the number of stored articles; zero keeps everything.
type RetentionConfig struct {
	MaxArticles *int `yaml:"maxArticles"`
}

// Ceiling returns the article cap, 0 when retention is disabled.
func (r RetentionConfig) Ceiling() int {
	if r.MaxArticles == nil || *r.MaxArticles < 0 {
		return 0
	}
	return *r.MaxArticles
}

// SummarizerConfig picks the summary strategy and its guard rails.
type SummarizerConfig struct {
	Provider          string        `yaml:"provider"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxInputChars     int           `yaml:"maxInputChars"`
	Language          string        `yaml:"language"`
	RequestsPerMinute int           `yaml:"requestsPerMinute"`
	Disabled          bool          `yaml:"disabled"`
}

// ChatGPTConfig defines how to contact the ChatGPT API.
type ChatGPTConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// OllamaConfig points at a local Ollama server.
type OllamaConfig struct {
	BaseURL string `yaml:"baseUrl"`
	Model   string `yaml:"model"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// ServerConfig configures the JSON HTTP surface.
type ServerConfig struct {
	Port        string   `yaml:"port"`
	CorsOrigins []string `yaml:"corsOrigins"`
}

// LoggingConfig sets the slog level and output format (text or json).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SourceConfig describes a single feed to poll.
type SourceConfig struct {
	Name        string `yaml:"name"`
	URL         string `yaml:"url"`
	Parser      string `yaml:"parser"`
	TopicScoped bool   `yaml:"topicScoped"`
}

// DomainSources converts configured feeds into pipeline sources.
func (c Config) DomainSources() []domain.Source {
	sources := make([]domain.Source, 0, len(c.Sources))
	for _, s := range c.Sources {
		sources = append(sources, domain.Source{
			Name:        s.Name,
			URL:         s.URL,
			Parser:      s.Parser,
			TopicScoped: s.TopicScoped,
		})
	}
	return sources
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	dotenv := os.Getenv(dotenvPathEnv)
	if dotenv == "" {
		dotenv = ".env"
	}
	if err := godotenv.Load(dotenv); err != nil && !os.IsNotExist(err) {
		log.Printf("cannot load %s: %v", dotenv, err)
	}

	cfg := defaultConfig()

	if path := os.Getenv(EnvConfigPath); path != "" {
		if fileCfg, err := ReadFile(path); err != nil {
			log.Printf("%v (falling back to defaults)", err)
		} else {
			cfg = mergeConfig(cfg, fileCfg)
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Sources) == 0 {
		cfg.Sources = defaultConfig().Sources
	}

	return cfg
}

// ReadFile parses a YAML config file without merging defaults.
func ReadFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &fileError{path: path, op: "read", err: err}
	}
	var fileCfg Config
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return Config{}, &fileError{path: path, op: "parse", err: err}
	}
	return fileCfg, nil
}

type fileError struct {
	path string
	op   string
	err  error
}

func (e *fileError) Error() string {
	return "cannot " + e.op + " " + e.path + ": " + e.err.Error()
}

func (e *fileError) Unwrap() error { return e.err }

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(chatGPTAPIKeyEnv); v != "" {
		c.ChatGPT.APIKey = v
	}
	if v := os.Getenv(chatGPTModelEnv); v != "" {
		c.ChatGPT.Model = v
	}
	if v := os.Getenv(summarizerEnv); v != "" {
		c.Summarizer.Provider = v
	}
	if v := os.Getenv(ollamaURLEnv); v != "" {
		c.Ollama.BaseURL = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(portEnv); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv(maxArticlesEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Retention.MaxArticles = &n
		} else {
			log.Printf("ignoring %s=%q: not a non-negative integer", maxArticlesEnv, v)
		}
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}

	if override.Scheduler.Interval > 0 {
		base.Scheduler.Interval = override.Scheduler.Interval
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}
	if override.Scheduler.RunOnStart != nil {
		base.Scheduler.RunOnStart = override.Scheduler.RunOnStart
	}

	if override.Fetch.Timeout > 0 {
		base.Fetch.Timeout = override.Fetch.Timeout
	}
	if override.Fetch.UserAgent != "" {
		base.Fetch.UserAgent = override.Fetch.UserAgent
	}
	if override.Fetch.Concurrency > 0 {
		base.Fetch.Concurrency = override.Fetch.Concurrency
	}
	if override.Fetch.MaxBodyBytes > 0 {
		base.Fetch.MaxBodyBytes = override.Fetch.MaxBodyBytes
	}

	if len(override.Filter.Keywords) > 0 {
		base.Filter.Keywords = override.Filter.Keywords
	}

	if override.Retention.MaxArticles != nil {
		base.Retention.MaxArticles = override.Retention.MaxArticles
	}

	if override.Summarizer.Provider != "" {
		base.Summarizer.Provider = override.Summarizer.Provider
	}
	if override.Summarizer.Timeout > 0 {
		base.Summarizer.Timeout = override.Summarizer.Timeout
	}
	if override.Summarizer.MaxInputChars > 0 {
		base.Summarizer.MaxInputChars = override.Summarizer.MaxInputChars
	}
	if override.Summarizer.Language != "" {
		base.Summarizer.Language = override.Summarizer.Language
	}
	if override.Summarizer.RequestsPerMinute > 0 {
		base.Summarizer.RequestsPerMinute = override.Summarizer.RequestsPerMinute
	}
	if override.Summarizer.Disabled {
		base.Summarizer.Disabled = true
	}

	if override.ChatGPT.Endpoint != "" {
		base.ChatGPT.Endpoint = override.ChatGPT.Endpoint
	}
	if override.ChatGPT.Model != "" {
		base.ChatGPT.Model = override.ChatGPT.Model
	}
	if override.ChatGPT.APIKey != "" {
		base.ChatGPT.APIKey = override.ChatGPT.APIKey
	}
	if override.ChatGPT.SystemPrompt != "" {
		base.ChatGPT.SystemPrompt = override.ChatGPT.SystemPrompt
	}

	if override.Ollama.BaseURL != "" {
		base.Ollama.BaseURL = override.Ollama.BaseURL
	}
	if override.Ollama.Model != "" {
		base.Ollama.Model = override.Ollama.Model
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Server.Port != "" {
		base.Server.Port = override.Server.Port
	}
	if len(override.Server.CorsOrigins) > 0 {
		base.Server.CorsOrigins = override.Server.CorsOrigins
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Database: DatabaseConfig{Driver: DriverSQLite, DSN: "ethnews.db"},
		Scheduler: SchedulerConfig{
			Interval: 30 * time.Minute,
			Timezone: defaultTimezone,
			location: tz,
		},
		Fetch: FetchConfig{
			Timeout:      8 * time.Second,
			UserAgent:    "Mozilla/5.0 (compatible; EthNews/1.0)",
			Concurrency:  4,
			MaxBodyBytes: 5 << 20,
		},
		Filter: FilterConfig{
			Keywords: []string{"ethereum", "eth", "ether", "vitalik", "이더리움", "以太坊"},
		},
		Retention: RetentionConfig{MaxArticles: intPtr(5000)},
		Summarizer: SummarizerConfig{
			Provider:          ProviderExtractive,
			Timeout:           12 * time.Second,
			MaxInputChars:     1500,
			Language:          "Korean",
			RequestsPerMinute: 20,
		},
		ChatGPT: ChatGPTConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			SystemPrompt: "You summarize cryptocurrency news for busy readers.",
		},
		Ollama:        OllamaConfig{BaseURL: "http://localhost:11434", Model: "llama3.2"},
		Notifications: NotificationConfig{},
		Server:        ServerConfig{Port: "8000", CorsOrigins: []string{"*"}},
		Logging:       LoggingConfig{Level: "info", Format: "text"},
		Sources: []SourceConfig{
			{
				Name:        "coindesk-ethereum",
				URL:         "https://www.coindesk.com/arc/outboundfeeds/rss/?outputType=xml&tag=Ethereum",
				TopicScoped: true,
			},
			{Name: "decrypt", URL: "https://decrypt.co/feed"},
			{Name: "cointelegraph", URL: "https://cointelegraph.com/rss"},
		},
	}
}

func intPtr(n int) *int { return &n }
