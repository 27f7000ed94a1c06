package tokencount

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCount_EmptyTextIsZero(t *testing.T) {
	assert.Equal(t, 0, Count("", "claude-3-5-sonnet"))
}

func TestCount_NonEmptyTextIsPositive(t *testing.T) {
	n := Count("hello, world! this is a test sentence.", "gpt-4o")
	assert.Greater(t, n, 0)
}

func TestCount_NeverNegative(t *testing.T) {
	models := []string{"claude-3-opus", "gpt-4o-mini", "o1-preview", "", "some-unknown-model"}
	for _, m := range models {
		n := Count("some text to count tokens for", m)
		assert.GreaterOrEqual(t, n, 0, m)
	}
}

func TestNormalizeModel_MapsClaudeAndOpenAIFamilies(t *testing.T) {
	assert.Equal(t, "gpt-4", normalizeModel("claude-3-5-sonnet-20241022"))
	assert.Equal(t, "cl100k_base", normalizeModel("gpt-4o"))
	assert.Equal(t, "cl100k_base", normalizeModel("o1-preview"))
	assert.Equal(t, "cl100k_base", normalizeModel(""))
	assert.Equal(t, "gpt-3.5-turbo", normalizeModel("gpt-3.5-turbo"))
}

func TestFallbackEstimate_RoundsUpQuarterLength(t *testing.T) {
	assert.Equal(t, 3, fallbackEstimate("12345678901"))
	assert.Equal(t, 0, fallbackEstimate(""))
}

func TestCount_FallsBackGracefullyAfterShutdown(t *testing.T) {
	Shutdown()
	n := Count("still countable after shutdown", "gpt-4o")
	assert.Greater(t, n, 0)
}
