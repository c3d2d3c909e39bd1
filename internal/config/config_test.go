package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"TIMETRACK_CONFIG", "HTTP_ADDR", "STORE_DRIVER", "MYSQL_DSN", "TASKS_BASE_URL", "TASKS_API_TOKEN", "RATE_CURRENCY"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("MYSQL_DSN", "u:p@tcp(db:3306)/tt?parseTime=true")
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HTTP.Addr != ":8080" || cfg.Store.Driver != DriverMySQL || cfg.Billing.Currency != "USD" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadRequiresDSN(t *testing.T) {
	clearEnv(t)
	if _, err := Load(); err == nil {
		t.Fatal("expected error without MYSQL_DSN")
	}
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("MYSQL_DSN", "x")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestLoadYAMLWithEnvOverride(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "timetrack.yaml")
	yaml := `
http:
  addr: ":9000"
store:
  driver: memory
tasks:
  base_url: "http://tasks.internal/"
  api_token: "${TASK_TOKEN}"
billing:
  currency: EUR
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TIMETRACK_CONFIG", path)
	t.Setenv("TASK_TOKEN", "tok")
	t.Setenv("HTTP_ADDR", ":7000")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HTTP.Addr != ":7000" {
		t.Fatalf("env should override file, got %q", cfg.HTTP.Addr)
	}
	if cfg.Store.Driver != DriverMemory || cfg.Tasks.BaseURL != "http://tasks.internal" || cfg.Tasks.APIToken != "tok" || cfg.Billing.Currency != "EUR" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}
