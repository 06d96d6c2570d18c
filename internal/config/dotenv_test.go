package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Clive-Nyaga/Fund-Connect/internal/config"
)

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := `
# local dev backend
FUNDCONNECT_API_URL=http://localhost:5000
CACHE_TTL="90s"
LOG_LEVEL='debug'
not-a-pair
PRESET_VAR=from-file
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PRESET_VAR", "from-env")
	t.Setenv("FUNDCONNECT_API_URL", "")
	t.Setenv("CACHE_TTL", "")
	t.Setenv("LOG_LEVEL", "")

	if err := config.LoadDotEnv(path); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if got := os.Getenv("FUNDCONNECT_API_URL"); got != "http://localhost:5000" {
		t.Errorf("expected file value, got %q", got)
	}
	// Surrounding quotes are stripped.
	if got := os.Getenv("CACHE_TTL"); got != "90s" {
		t.Errorf("expected unquoted '90s', got %q", got)
	}
	if got := os.Getenv("LOG_LEVEL"); got != "debug" {
		t.Errorf("expected unquoted 'debug', got %q", got)
	}
	// Environment wins over the file.
	if got := os.Getenv("PRESET_VAR"); got != "from-env" {
		t.Errorf("existing env var must not be overridden, got %q", got)
	}
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	if err := config.LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
