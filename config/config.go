// Package config loads process configuration from the environment (and an
// optional .env file) and the agent catalog from YAML.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"
)

// ProviderConfig holds the credentials of one model provider.
type ProviderConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Config is the process configuration.
type Config struct {
	Cerebras struct {
		APIKey  string `envconfig:"CEREBRAS_API_KEY"`
		BaseURL string `envconfig:"CEREBRAS_BASE_URL" default:"https://api.cerebras.ai/v1"`
		Model   string `envconfig:"CEREBRAS_MODEL" default:"llama-3.3-70b"`
	}
	OpenAI struct {
		APIKey  string `envconfig:"OPENAI_API_KEY"`
		BaseURL string `envconfig:"OPENAI_BASE_URL"`
		Model   string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	}
	Anthropic struct {
		APIKey string `envconfig:"ANTHROPIC_API_KEY"`
		Model  string `envconfig:"ANTHROPIC_MODEL" default:"claude-3-5-sonnet-20241022"`
	}
	Gemini struct {
		APIKey  string `envconfig:"GEMINI_API_KEY"`
		BaseURL string `envconfig:"GEMINI_BASE_URL"`
		Model   string `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`
	}
	OpenRouter struct {
		APIKey  string `envconfig:"OPENROUTER_API_KEY"`
		BaseURL string `envconfig:"OPENROUTER_BASE_URL" default:"https://openrouter.ai/api/v1"`
		Model   string `envconfig:"OPENROUTER_MODEL" default:"meta-llama/llama-3.3-70b-instruct"`
	}

	Tools struct {
		TavilyAPIKey    string `envconfig:"TAVILY_API_KEY"`
		ComposioAPIKey  string `envconfig:"COMPOSIO_API_KEY"`
		ComposioBaseURL string `envconfig:"COMPOSIO_BASE_URL" default:"https://backend.composio.dev"`
		GitHubToken     string `envconfig:"GITHUB_TOKEN"`
		GitHubBaseURL   string `envconfig:"GITHUB_BASE_URL" default:"https://api.github.com"`
		RPCURL          string `envconfig:"RPC_URL"`
		ChainName       string `envconfig:"CHAIN_NAME" default:"Ethereum"`
	}

	Log struct {
		Level  string `envconfig:"LOG_LEVEL" default:"info"`
		Format string `envconfig:"LOG_FORMAT" default:"json"`
	}

	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	ModelTimeout time.Duration `envconfig:"MODEL_TIMEOUT" default:"60s"`
	ToolTimeout  time.Duration `envconfig:"TOOL_TIMEOUT" default:"30s"`
	RunTimeout   time.Duration `envconfig:"RUN_TIMEOUT" default:"5m"`

	MaxSteps        int `envconfig:"MAX_STEPS" default:"25"`
	MaxToolRounds   int `envconfig:"MAX_TOOL_ROUNDS" default:"10"`
	ToolParallelism int `envconfig:"TOOL_PARALLELISM" default:"4"`

	HistoryBackend string        `envconfig:"HISTORY_BACKEND" default:"memory"`
	HistoryTTL     time.Duration `envconfig:"HISTORY_TTL" default:"24h"`
	HistoryLimit   int           `envconfig:"HISTORY_LIMIT" default:"50"`
	RunStore       string        `envconfig:"RUN_STORE" default:"memory"`
	MySQLDSN       string        `envconfig:"MYSQL_DSN"`
	QueueBackend   string        `envconfig:"QUEUE_BACKEND" default:"memory"`
	QueueName      string        `envconfig:"QUEUE_NAME" default:"agentgraph.jobs"`
	QueueWorkers   int           `envconfig:"QUEUE_WORKERS" default:"4"`
	RabbitMQURL    string        `envconfig:"RABBITMQ_URL"`

	Redis RedisConfig

	AgentsFile string `envconfig:"AGENTS_FILE"`
}

// RedisConfig describes the Redis connection shared by the history store
// and the Redis queue.
type RedisConfig struct {
	URL          string        `envconfig:"REDIS_URL"`
	ReadTimeout  time.Duration `envconfig:"REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"REDIS_WRITE_TIMEOUT" default:"3s"`
	DialTimeout  time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"5s"`
}

// New parses the URL, applies the timeouts and pings the server.
func (r RedisConfig) New(ctx context.Context) (*redis.Client, error) {
	if r.URL == "" {
		return nil, errors.New("REDIS_URL is not set")
	}

	opts, err := redis.ParseURL(r.URL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}

	opts.ReadTimeout = r.ReadTimeout
	opts.WriteTimeout = r.WriteTimeout
	opts.DialTimeout = r.DialTimeout

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

// Load reads .env files (missing files are ignored) and then the
// environment. With no arguments ".env" is tried.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}

	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks backend selections and their required settings.
func (c *Config) Validate() error {
	var errs []error

	switch c.HistoryBackend {
	case "memory":
	case "redis":
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("HISTORY_BACKEND=redis requires REDIS_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown HISTORY_BACKEND %q", c.HistoryBackend))
	}

	switch c.RunStore {
	case "memory":
	case "mysql":
		if c.MySQLDSN == "" {
			errs = append(errs, errors.New("RUN_STORE=mysql requires MYSQL_DSN"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown RUN_STORE %q", c.RunStore))
	}

	switch c.QueueBackend {
	case "memory":
	case "redis":
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("QUEUE_BACKEND=redis requires REDIS_URL"))
		}
	case "rabbitmq":
		if c.RabbitMQURL == "" {
			errs = append(errs, errors.New("QUEUE_BACKEND=rabbitmq requires RABBITMQ_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown QUEUE_BACKEND %q", c.QueueBackend))
	}

	if c.MaxToolRounds <= 0 {
		errs = append(errs, errors.New("MAX_TOOL_ROUNDS must be positive"))
	}

	return errors.Join(errs...)
}

// Provider returns the credentials of a named provider.
func (c *Config) Provider(name string) (ProviderConfig, error) {
	switch name {
	case "cerebras":
		return ProviderConfig{APIKey: c.Cerebras.APIKey, BaseURL: c.Cerebras.BaseURL, Model: c.Cerebras.Model}, nil
	case "openai":
		return ProviderConfig{APIKey: c.OpenAI.APIKey, BaseURL: c.OpenAI.BaseURL, Model: c.OpenAI.Model}, nil
	case "anthropic":
		return ProviderConfig{APIKey: c.Anthropic.APIKey, Model: c.Anthropic.Model}, nil
	case "gemini":
		return ProviderConfig{APIKey: c.Gemini.APIKey, BaseURL: c.Gemini.BaseURL, Model: c.Gemini.Model}, nil
	case "openrouter":
		return ProviderConfig{APIKey: c.OpenRouter.APIKey, BaseURL: c.OpenRouter.BaseURL, Model: c.OpenRouter.Model}, nil
	default:
		return ProviderConfig{}, fmt.Errorf("unknown provider %q", name)
	}
}

// Catalog loads AgentsFile, or returns DefaultCatalog when it is empty.
func (c *Config) Catalog() (*Catalog, error) {
	if c.AgentsFile == "" {
		return DefaultCatalog(), nil
	}

	data, err := os.ReadFile(c.AgentsFile)
	if err != nil {
		return nil, fmt.Errorf("read agents file: %w", err)
	}

	return ParseCatalog(data)
}
