package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesFile(t *testing.T) {
	path := DefaultPath(t.TempDir())
	logger, closer, err := New(Options{Path: path, Debug: true})
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("hello", "k", "v")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "msg=hello") || !strings.Contains(string(data), "k=v") {
		t.Errorf("log = %q", data)
	}
}

func TestDefaultPath(t *testing.T) {
	got := DefaultPath("/vault")
	want := filepath.Join("/vault", ".bmo", "logs", "bmo.log")
	if got != want {
		t.Errorf("DefaultPath = %q, want %q", got, want)
	}
}

func TestInfoLevelDropsDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.log")
	logger, closer, err := New(Options{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("quiet")
	logger.Info("loud")
	closer.Close()

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "quiet") || !strings.Contains(string(data), "loud") {
		t.Errorf("log = %q", data)
	}
}
