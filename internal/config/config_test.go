package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
		Database: DatabaseConfig{
			Addrs: []string{"localhost:6379"},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidDriver(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Driver = "memcached"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}

	expected := `database.driver must be "redis" or "goredis", got "memcached"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_ValidDrivers(t *testing.T) {
	for _, driver := range []string{"redis", "goredis"} {
		t.Run("driver="+driver, func(t *testing.T) {
			cfg := validConfig()
			cfg.Database.Driver = driver
			if err := cfg.Validate(); err != nil {
				t.Fatalf("unexpected error for driver %q: %v", driver, err)
			}
		})
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing addrs")
	}
}

func TestValidate_PageSizes(t *testing.T) {
	cfg := validConfig()
	cfg.Search.DefaultPageSize = 200
	cfg.Search.MaxPageSize = 100

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when default page size exceeds max")
	}
}

func TestValidate_NegativeFlushRate(t *testing.T) {
	cfg := validConfig()
	cfg.Batch.FlushesPerSec = -1

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative flush rate")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 30 {
		t.Errorf("expected WriteTimeoutSec=30, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Database.Driver != "redis" {
		t.Errorf("expected Driver=redis, got %q", cfg.Database.Driver)
	}
	if cfg.Database.ReadinessTimeout != 10 {
		t.Errorf("expected ReadinessTimeout=10, got %d", cfg.Database.ReadinessTimeout)
	}
	if cfg.Search.DefaultPageSize != 10 {
		t.Errorf("expected DefaultPageSize=10, got %d", cfg.Search.DefaultPageSize)
	}
	if cfg.Search.MaxPageSize != 100 {
		t.Errorf("expected MaxPageSize=100, got %d", cfg.Search.MaxPageSize)
	}
	if cfg.Search.MaxSnippetSize != 2000 {
		t.Errorf("expected MaxSnippetSize=2000, got %d", cfg.Search.MaxSnippetSize)
	}
	if cfg.Batch.ChunkSize != 1000 {
		t.Errorf("expected ChunkSize=1000, got %d", cfg.Batch.ChunkSize)
	}
	if cfg.Batch.Concurrency != 0 {
		t.Errorf("expected Concurrency=0, got %d", cfg.Batch.Concurrency)
	}
	if cfg.Batch.MaxDocuments != 10000 {
		t.Errorf("expected MaxDocuments=10000, got %d", cfg.Batch.MaxDocuments)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Database: DatabaseConfig{Driver: "goredis", ReadinessTimeout: 15},
		Search:   SearchConfig{DefaultPageSize: 50, MaxPageSize: 500},
		Batch:    BatchConfig{ChunkSize: 200, Concurrency: 4},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Database.Driver != "goredis" {
		t.Errorf("expected Driver=goredis, got %q", cfg.Database.Driver)
	}
	if cfg.Search.MaxPageSize != 500 {
		t.Errorf("expected MaxPageSize=500, got %d", cfg.Search.MaxPageSize)
	}
	if cfg.Batch.ChunkSize != 200 || cfg.Batch.Concurrency != 4 {
		t.Errorf("unexpected batch config: %+v", cfg.Batch)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("FTSEARCH_TEST_ADDR", "redis:6379")

	got := string(expandEnvVars([]byte("a: ${FTSEARCH_TEST_ADDR}\nb: ${FTSEARCH_TEST_UNSET:-fallback}\nc: ${FTSEARCH_TEST_UNSET}")))
	want := "a: redis:6379\nb: fallback\nc: "
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatal(err)
	}
	yaml := "http:\n  port: ${FTSEARCH_TEST_PORT:-9090}\ndatabase:\n  addrs: [\"localhost:6379\"]\n"
	if err := os.WriteFile(filepath.Join(dir, "config", "testenv.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	cfg, err := Load("testenv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.HTTP.Port)
	}
	if cfg.Database.Driver != "redis" {
		t.Errorf("expected default driver, got %q", cfg.Database.Driver)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("ENV", "")
	if got := GetEnv(); got != "local" {
		t.Errorf("expected local, got %q", got)
	}
	t.Setenv("ENV", "prod")
	if got := GetEnv(); got != "prod" {
		t.Errorf("expected prod, got %q", got)
	}
}
