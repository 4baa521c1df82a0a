package core

import "time"

const (
	AppName          = "Recall"
	AppUserAgent     = "Recall-Bot/0.1"
	AppRepositoryURL = "https://github.com/sandevgo/recall"
	AppVersion       = "0.1.0"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single role-tagged entry of an LLM request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type GenerateOptions struct {
	Model       string
	Temperature float64
}

type GenerateResult struct {
	Content      string
	Usage        Usage
	FinishReason string
}

// User is created lazily on first message. Preferences are mutated only
// through preference-update operations.
type User struct {
	ID          string            `json:"id"`
	CreatedAt   time.Time         `json:"created_at"`
	LastActive  time.Time         `json:"last_active"`
	Preferences map[string]string `json:"preferences,omitempty"`
}

const (
	PrefLanguage = "preferred_language"
	PrefTopics   = "conversation_topics"
)

// ConversationTurn is one user message paired with its generated response.
// Immutable once written; only read or purged by age.
type ConversationTurn struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	Language  string    `json:"language"`
	Embedding []float32 `json:"-"`
	Topic     string    `json:"topic,omitempty"`
	NumTokens int       `json:"num_tokens,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type MemoryKind string

const (
	MemoryPreference    MemoryKind = "preference"
	MemoryFact          MemoryKind = "fact"
	MemoryInteraction   MemoryKind = "interaction"
	MemorySummarization MemoryKind = "summarization"
)

// Memory is a durable, importance-weighted fact retained beyond the rolling
// context window. Soft-deleted via the Active flag.
type Memory struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	Kind         MemoryKind `json:"kind"`
	Content      string     `json:"content"`
	Importance   float64    `json:"importance"`
	Embedding    []float32  `json:"-"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"created_at"`
	LastAccessed time.Time  `json:"last_accessed"`
}

// ContextEntry is one element of a user's rolling context cache.
type ContextEntry struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
