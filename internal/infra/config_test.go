package infra

import (
	"os"
	"path/filepath"
	"testing"
)

const testYAML = `
app:
  name: "Exchange Go"
  version: "test"
database:
  driver: "sqlite"
  dsn: "data/test.db"
engine:
  queue_size: 64
  submit_timeout_ms: 1000
logging:
  level: "debug"
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, testYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Engine.QueueSize != 64 {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("EXCHANGE_DB_DSN", "host=db user=x dbname=x")
	t.Setenv("EXCHANGE_DB_DRIVER", "postgres")

	cfg, err := LoadConfig(writeConfig(t, testYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Database.Driver != "postgres" || cfg.Database.DSN != "host=db user=x dbname=x" {
		t.Errorf("env override not applied: %+v", cfg.Database)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := map[string]string{
		"bad driver":   `{database: {driver: "oracle", dsn: "x"}, engine: {queue_size: 1, submit_timeout_ms: 1}}`,
		"empty dsn":    `{database: {driver: "sqlite", dsn: ""}, engine: {queue_size: 1, submit_timeout_ms: 1}}`,
		"zero queue":   `{database: {driver: "sqlite", dsn: "x"}, engine: {queue_size: 0, submit_timeout_ms: 1}}`,
		"zero timeout": `{database: {driver: "sqlite", dsn: "x"}, engine: {queue_size: 1, submit_timeout_ms: 0}}`,
	}
	for name, yaml := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, yaml)); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}
