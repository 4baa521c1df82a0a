package telegram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitHTML(t *testing.T) {
	t.Run("fits in one chunk", func(t *testing.T) {
		chunks := splitHTML("hello", 100)
		assert.Equal(t, []string{"hello"}, chunks)
	})

	t.Run("splits at newline", func(t *testing.T) {
		text := strings.Repeat("a", 80) + "\n" + strings.Repeat("b", 50)
		chunks := splitHTML(text, 100)
		require.Len(t, chunks, 2)
		assert.Equal(t, strings.Repeat("a", 80), chunks[0])
		assert.Equal(t, strings.Repeat("b", 50), chunks[1])
	})

	t.Run("hard split without newline", func(t *testing.T) {
		text := strings.Repeat("x", 250)
		chunks := splitHTML(text, 100)
		require.Len(t, chunks, 3)
		assert.Len(t, chunks[0], 100)
		assert.Len(t, chunks[1], 100)
		assert.Len(t, chunks[2], 50)
	})
}
