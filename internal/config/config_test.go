package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TICKETING_CONFIG", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Bus.Driver != BusRedis || cfg.Store.Driver != StoreMongo {
		t.Errorf("drivers = %s/%s", cfg.Bus.Driver, cfg.Store.Driver)
	}
	if cfg.Projection.Dedup {
		t.Error("dedup enabled by default")
	}
	if want := "host=localhost port=5432 user=postgres password=postgres dbname=ticketing sslmode=disable"; cfg.Postgres.DSN() != want {
		t.Errorf("DSN = %q", cfg.Postgres.DSN())
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeFile(t, `
http:
  addr: ":9000"
bus:
  driver: memory
  block: 2s
store:
  driver: memory
postgres:
  host: db.internal
`)
	t.Setenv("DB_HOST", "override.internal")
	t.Setenv("PROJECTION_DEDUP", "true")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != ":9000" || cfg.Bus.Driver != BusMemory || cfg.Bus.Block != 2*time.Second {
		t.Errorf("file values not applied: %+v %+v", cfg.HTTP, cfg.Bus)
	}
	if cfg.Bus.MaxDeliveries != 5 {
		t.Errorf("unset field lost its default: %d", cfg.Bus.MaxDeliveries)
	}
	if cfg.Postgres.Host != "override.internal" {
		t.Errorf("env did not win: %s", cfg.Postgres.Host)
	}
	if !cfg.Projection.Dedup || cfg.Redis.DB != 3 {
		t.Errorf("dedup=%v redis db=%d", cfg.Projection.Dedup, cfg.Redis.DB)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("LOG_LEVEL=debug\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	// Register a restore, then clear it so godotenv may set it.
	t.Setenv("LOG_LEVEL", "")
	os.Unsetenv("LOG_LEVEL")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
		want string
	}{
		{"unknown field", "bus:\n  drivr: redis\n", nil, "drivr"},
		{"bad bus", "bus:\n  driver: kafka\n", nil, "bus.driver"},
		{"bad store", "store:\n  driver: sqlite\n", nil, "store.driver"},
		{"zero deliveries", "bus:\n  max_deliveries: -1\n", nil, "max_deliveries"},
		{"bad dedup env", "", map[string]string{"PROJECTION_DEDUP": "maybe"}, "PROJECTION_DEDUP"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeFile(t, tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}
