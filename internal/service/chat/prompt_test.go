package chat

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandevgo/recall/internal/core"
)

func TestLoadSysPrompt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "SYSTEM.md")
	require.NoError(t, os.WriteFile(path, []byte("You are a pirate."), 0o644))

	p := LoadSysPrompt(path)
	assert.Equal(t, core.Message{Role: core.RoleSystem, Content: "You are a pirate."}, p.Message())
}

func TestLoadSysPrompt_Fallback(t *testing.T) {
	p := LoadSysPrompt(filepath.Join(t.TempDir(), "missing.md"))
	assert.Equal(t, defaultSystemPrompt, p.Message().Content)

	empty := filepath.Join(t.TempDir(), "SYSTEM.md")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	p = LoadSysPrompt(empty)
	assert.Equal(t, defaultSystemPrompt, p.Message().Content)
}
