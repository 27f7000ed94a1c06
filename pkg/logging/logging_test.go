package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestString_RedactsSensitiveKeys(t *testing.T) {
	cases := []struct {
		key      string
		redacted bool
	}{
		{"api_key", true},
		{"apiKey", true},
		{"Authorization", true},
		{"password", true},
		{"secret_token", true},
		{"user_id", false},
		{"request_id", false},
	}
	for _, c := range cases {
		f := String(c.key, "super-secret-value")
		if c.redacted {
			assert.Equal(t, "[redacted]", f.String, c.key)
		} else {
			assert.Equal(t, "super-secret-value", f.String, c.key)
		}
	}
}

func TestRedactFields_StripsSensitiveStringFields(t *testing.T) {
	fields := []zapcore.Field{
		zap.String("api_key", "sk-live-123"),
		zap.String("username", "alice"),
	}
	out := redactFields(fields)
	require := assert.New(t)
	require.Equal("[redacted]", out[0].String)
	require.Equal("alice", out[1].String)
}

func TestInit_DisabledBuildsNopLogger(t *testing.T) {
	err := Init(false, "", true)
	assert.NoError(t, err)
	// Should not panic even though the underlying logger is a no-op.
	Info("hello", String("api_key", "should-not-appear"))
	Close()
}
