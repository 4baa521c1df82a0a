package chat

import (
	"os"

	"github.com/sandevgo/recall/internal/core"
)

const defaultSystemPrompt = "You are a helpful AI assistant. Respond in the same language as the user's message."

// SysPrompt holds the system prompt, loaded once at startup from the runtime
// directory with a built-in fallback.
type SysPrompt struct {
	content string
}

func LoadSysPrompt(path string) *SysPrompt {
	content, err := os.ReadFile(path)
	if err != nil || len(content) == 0 {
		return &SysPrompt{content: defaultSystemPrompt}
	}
	return &SysPrompt{content: string(content)}
}

func NewSysPrompt(content string) *SysPrompt {
	return &SysPrompt{content: content}
}

func (p *SysPrompt) Message() core.Message {
	return core.Message{Role: core.RoleSystem, Content: p.content}
}
