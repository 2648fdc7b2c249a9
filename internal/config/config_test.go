package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()
	if cfg.Port != "8082" {
		t.Errorf("Port = %s, want 8082", cfg.Port)
	}
	if cfg.DataBackend != "memory" {
		t.Errorf("DataBackend = %s, want memory", cfg.DataBackend)
	}
	if cfg.SyncInterval != 30*time.Second {
		t.Errorf("SyncInterval = %s, want 30s", cfg.SyncInterval)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("SQLITE_DB_PATH", t.TempDir()+"/saldo.db")
	t.Setenv("SYNC_INTERVAL", "2m")

	cfg := Load()
	if cfg.Port != "9000" {
		t.Errorf("Port = %s, want 9000", cfg.Port)
	}
	if cfg.DataBackend != "sqlite" {
		t.Errorf("DataBackend = %s, want sqlite", cfg.DataBackend)
	}
	if cfg.SyncInterval != 2*time.Minute {
		t.Errorf("SyncInterval = %s, want 2m", cfg.SyncInterval)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"bad port", func(c *Config) { c.Port = "nope" }, true},
		{"port out of range", func(c *Config) { c.Port = "70000" }, true},
		{"unknown backend", func(c *Config) { c.DataBackend = "redis" }, true},
		{"sqlite without path", func(c *Config) { c.DataBackend = "sqlite"; c.SQLiteDBPath = "" }, true},
		{"sync interval too short", func(c *Config) { c.SyncInterval = 100 * time.Millisecond }, true},
		{"zero cache size", func(c *Config) { c.ProjectionCacheSize = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
