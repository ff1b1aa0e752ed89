package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFieldConstructors 测试字段构造函数
func TestFieldConstructors(t *testing.T) {
	assert.Equal(t, Field{Key: "family", Value: "invoice"}, String("family", "invoice"))
	assert.Equal(t, Field{Key: "count", Value: 3}, Int("count", 3))
	assert.Equal(t, Field{Key: "id", Value: int64(7)}, Int64("id", 7))
	assert.Equal(t, Field{Key: "component", Value: "trash"}, Component("trash"))
	assert.Equal(t, "error", Error(errors.New("x")).Key)
}

// TestSlogLogger_JSON JSON 输出包含消息和字段
func TestSlogLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "debug", Format: "json", Output: &buf})

	l.WithFields(Component("trash")).Info(context.Background(), "archived",
		Int64("record_id", 42), Error(errors.New("boom")))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "archived", line["msg"])
	assert.Equal(t, "trash", line["component"])
	assert.Equal(t, float64(42), line["record_id"])
	assert.Equal(t, "boom", line["error"])
}

// TestSlogLogger_Level 低于级别的日志被丢弃
func TestSlogLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "warn", Format: "text", Output: &buf})

	l.Info(context.Background(), "hidden")
	l.Warn(context.Background(), "shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.Contains(out, "shown"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", ParseLevel("debug").String())
	assert.Equal(t, "WARN", ParseLevel("WARNING").String())
	assert.Equal(t, "INFO", ParseLevel("bogus").String())
}

// TestGlobalLogger 全局 Logger 替换与回退
func TestGlobalLogger(t *testing.T) {
	prev := GetLogger()
	defer SetLogger(prev)

	noop := NewNoopLogger()
	SetLogger(noop)
	assert.Same(t, noop, GetLogger())

	SetLogger(nil)
	_, ok := GetLogger().(*NoopLogger)
	assert.True(t, ok)
	assert.NotNil(t, Named("cache"))
}
