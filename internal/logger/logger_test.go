package logger_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nikbrunner/gamecrate/internal/logger"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"nonsense", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Check(t, is.Equal(logger.ParseLevel(tt.in), tt.want), tt.in)
	}
	assert.Check(t, logger.ValidLevel("Warn"))
	assert.Check(t, !logger.ValidLevel("trace"))
}

func TestNew_JSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Writer: &buf, Format: logger.FormatJSON, Level: "warn"})

	log.Info("hidden")
	log.Warn("import failed", "gameId", "70010000000025")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, len(lines), 1)

	var rec map[string]any
	assert.NilError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, rec["msg"], "import failed")
	assert.Equal(t, rec["gameId"], "70010000000025")
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Writer: &buf, Level: "debug"})

	log.Debug("folder created", "name", "Wishlist")
	assert.Check(t, is.Contains(buf.String(), "msg=\"folder created\""))
	assert.Check(t, is.Contains(buf.String(), "name=Wishlist"))
}

func TestOpen_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "gamecrate.log")

	log, closer, err := logger.Open(logger.Config{File: path})
	assert.NilError(t, err)
	log.Info("hello")
	assert.NilError(t, closer.Close())

	data, err := os.ReadFile(path)
	assert.NilError(t, err)
	assert.Check(t, is.Contains(string(data), "msg=hello"))
}
