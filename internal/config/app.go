package config

import (
	"context"
	"path/filepath"

	"github.com/caarlos0/env/v9"
	"github.com/sandevgo/recall/pkg/log"
)

type AppConfig struct {
	RuntimePath string `env:"RECALL_RUNTIME_PATH" envDefault:".recall"`

	// Storage backend: "sqlite" (default), "memory", or "postgres" when
	// DATABASE_URL is set.
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"sqlite"`

	// Transport flags
	EnableHTTP     bool `env:"ENABLE_HTTP" envDefault:"true"`
	EnableTelegram bool `env:"ENABLE_TELEGRAM" envDefault:"false"`
	EnableCLI      bool `env:"ENABLE_CLI" envDefault:"true"`

	// Context management
	MaxContextTokens        int `env:"MAX_CONTEXT_TOKENS" envDefault:"4000"`
	MaxContextLength        int `env:"MAX_CONTEXT_LENGTH" envDefault:"10"`
	ContextSummaryThreshold int `env:"CONTEXT_SUMMARY_THRESHOLD" envDefault:"5"`
	MemoryLimit             int `env:"MEMORY_LIMIT" envDefault:"5"`
	ContextWindow           int `env:"CONTEXT_WINDOW" envDefault:"10"`

	// Token estimator: "heuristic" (default) or "tiktoken".
	TokenEstimator string `env:"TOKEN_ESTIMATOR" envDefault:"heuristic"`

	// Repetition detection
	RepetitionThreshold  float64 `env:"REPETITION_THRESHOLD" envDefault:"0.8"`
	RepetitionTimeWindow int     `env:"REPETITION_TIME_WINDOW" envDefault:"30"`

	// Conversation retention for the janitor, in days. 0 disables purging.
	ConversationRetentionDays int `env:"CONVERSATION_RETENTION_DAYS" envDefault:"30"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse App config")
	}
	// Relative runtime paths resolve under the home directory.
	c.RuntimePath = GetRuntimePath()
	return c
}

func (c AppConfig) GetRuntimePath() string {
	return c.RuntimePath
}

func (c AppConfig) GetSystemPromptPath() string {
	return filepath.Join(c.RuntimePath, "SYSTEM.md")
}

func (c AppConfig) GetDatabasePath() string {
	return filepath.Join(c.RuntimePath, "recall.db")
}
