package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Valid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gns3_proxy_config.ini")
	if err := os.WriteFile(path, []byte(sampleINI), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	snap, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if snap.BindPort != 14080 {
		t.Errorf("BindPort = %d, want 14080", snap.BindPort)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.ini"))
	if err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoad_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.ini")
	// No [servers] entries: fails validation.
	if err := os.WriteFile(path, []byte("[proxy]\nbind_port = 14080\n"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Error("expected error for config with no servers")
	}
}
