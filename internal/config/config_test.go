package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sparc.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `{"server": {}, "coordination": {}}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Coordination.Stream != "sparc:coordination" {
		t.Errorf("expected default stream name, got %q", cfg.Coordination.Stream)
	}
}

func TestLoadEnvSubstitution(t *testing.T) {
	t.Setenv("SPARC_TEST_DSN", "postgres://real")
	path := writeConfig(t, `{
		"server": {"port": ${SPARC_TEST_PORT:9090}},
		"database": {"postgres": {"dsn": "${SPARC_TEST_DSN:fallback}"}}
	}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected default-substituted port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Database.Postgres.DSN != "postgres://real" {
		t.Errorf("expected env-substituted dsn, got %q", cfg.Database.Postgres.DSN)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadBadJSON(t *testing.T) {
	path := writeConfig(t, `{not json`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
