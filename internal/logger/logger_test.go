package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"qrscanner/internal/config"
)

func TestWriterLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf)

	l.Info("hello %s", "info")
	l.Warning("hello %s", "warning")
	l.Error("hello %s", "error")

	out := buf.String()
	for _, want := range []string{"INFO", "hello info", "WARNING", "hello warning", "ERROR", "hello error"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got: %s", want, out)
		}
	}
	if !strings.Contains(out, "logger_test.go") {
		t.Errorf("Expected caller file in output, got: %s", out)
	}
}

func TestNewLogger_CreatesFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	l, err := NewLogger(&config.Config{LogDirectory: dir})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	defer l.Close()

	l.Info("written to file")

	for _, name := range []string{InfoFile, WarningFile, ErrorFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("Expected %s to exist: %v", name, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, InfoFile))
	if err != nil {
		t.Fatalf("Failed to read info log: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("Expected info log to contain entry, got: %s", data)
	}
}

func TestCleanLogs_Truncates(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(&config.Config{LogDirectory: dir})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	defer l.Close()

	l.Warning("something odd")
	if err := l.CleanLogs(WarningFile); err != nil {
		t.Fatalf("CleanLogs failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, WarningFile))
	if err != nil {
		t.Fatalf("Failed to read warning log: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("Expected empty warning log, got: %s", data)
	}
}
