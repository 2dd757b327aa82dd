package obslog

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesJSONToConsoleSink(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "debug", Format: "json", ToConsole: true, Console: &buf})
	if err != nil { t.Fatalf("New: %v", err) }
	logger.Debug("session_ply")
	_ = logger.Sync()
	if !strings.Contains(buf.String(), `"msg":"session_ply"`) { t.Fatalf("unexpected output: %q", buf.String()) }
}

func TestNewFileSinkCreatesDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "chess.log")
	logger, err := New(Options{Level: "info", ToFile: true, FilePath: path})
	if err != nil { t.Fatalf("New: %v", err) }
	logger.Info("session_start")
	_ = logger.Sync()
	data, err := os.ReadFile(path)
	if err != nil { t.Fatalf("ReadFile: %v", err) }
	if !strings.Contains(string(data), "session_start") || !strings.Contains(string(data), " | ") {
		t.Fatalf("unexpected file content: %q", data)
	}
}

func TestOptionsFromEnvDefaults(t *testing.T) {
	t.Setenv("LOG_TO_CONSOLE", "")
	t.Setenv("LOG_FILE", "")
	opts := OptionsFromEnv("x.log")
	if opts.ToConsole || !opts.ToFile || opts.FilePath != filepath.Join("logs", "x.log") {
		t.Fatalf("unexpected defaults: %+v", opts)
	}
}

func TestNewWithoutSinksIsNop(t *testing.T) {
	logger, err := New(Options{})
	if err != nil { t.Fatalf("New: %v", err) }
	logger.Info("ignored")
}
