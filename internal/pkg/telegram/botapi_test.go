package telegram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitMessageShortTextUntouched(t *testing.T) {
	chunks := SplitMessage("короткий текст", 100)
	assert.Equal(t, []string{"короткий текст"}, chunks)
}

func TestSplitMessagePrefersNewlineBoundary(t *testing.T) {
	text := strings.Repeat("а", 50) + "\n" + strings.Repeat("б", 50)
	chunks := SplitMessage(text, 60)

	assert.Len(t, chunks, 2)
	assert.Equal(t, strings.Repeat("а", 50)+"\n", chunks[0])
	assert.Equal(t, strings.Repeat("б", 50), chunks[1])
}

func TestSplitMessageHardCutWithoutNewline(t *testing.T) {
	text := strings.Repeat("я", 150)
	chunks := SplitMessage(text, 100)

	assert.Len(t, chunks, 2)
	assert.Equal(t, 100, len([]rune(chunks[0])))
	assert.Equal(t, 50, len([]rune(chunks[1])))
}

func TestSplitMessageReassembles(t *testing.T) {
	text := strings.Repeat("Разбор Луны.\n", 800)
	chunks := SplitMessage(text, MaxMessageLength)

	assert.Greater(t, len(chunks), 1)
	assert.Equal(t, text, strings.Join(chunks, ""))
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len([]rune(chunk)), MaxMessageLength)
	}
}
