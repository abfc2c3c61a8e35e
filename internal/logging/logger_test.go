package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/Leiden-Cell-Observatory/wellstitch/internal/config"
)

func TestNewLogger_NoFile(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LogFile = ""
	l, err := NewLogger(&cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	l.Info("test message")
}

func TestNewLogger_WithFile(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.LogFile = filepath.Join(dir, "wellstitch.log")
	l, err := NewLogger(&cfg)
	if err != nil {
		t.Fatal(err)
	}
	l.Info("to file")
	l.Outlier("flagged well")
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	b, _ := os.ReadFile(cfg.LogFile)
	if !bytes.Contains(b, []byte("INFO")) || !bytes.Contains(b, []byte("to file")) {
		t.Errorf("log file content: %s", string(b))
	}
	if !bytes.Contains(b, []byte("OUTLIER")) {
		t.Errorf("log file should carry OUTLIER lines: %s", string(b))
	}
}

func TestNewLogger_CreatesLogDir(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.LogFile = filepath.Join(dir, "logs", "runs", "wellstitch.log")
	l, err := NewLogger(&cfg)
	if err != nil {
		t.Fatal(err)
	}
	l.Info("nested")
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(cfg.LogFile); err != nil {
		t.Errorf("log file not created: %v", err)
	}
}
