package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadServiceConfigOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
host = "0.0.0.0"
port = 9000
read_timeout = "45s"
concurrent = true
log_file = "/var/log/reliefd.log"
admin_listen_addr = "127.0.0.1:8080"
output_dir = "/srv/stl"
cors_origins = ["http://localhost:5173"]
`)

	cfg, err := loadServiceConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Channel.Host != "0.0.0.0" || cfg.Channel.Port != 9000 {
		t.Fatalf("endpoint not overlaid: %+v", cfg.Channel)
	}
	if cfg.Channel.Backlog != 5 {
		t.Fatalf("backlog default lost: %d", cfg.Channel.Backlog)
	}
	if cfg.Channel.ReadTimeout != 45*time.Second {
		t.Fatalf("read timeout not parsed: %v", cfg.Channel.ReadTimeout)
	}
	if !cfg.Channel.Concurrent {
		t.Fatalf("concurrent flag not overlaid")
	}
	if cfg.Logging.Path != "/var/log/reliefd.log" {
		t.Fatalf("log file not overlaid: %q", cfg.Logging.Path)
	}
	if cfg.AdminListenAddr != "127.0.0.1:8080" || cfg.OutputDir != "/srv/stl" {
		t.Fatalf("daemon settings not overlaid: %+v", cfg)
	}
	if len(cfg.CorsOrigins) != 1 || cfg.CorsOrigins[0] != "http://localhost:5173" {
		t.Fatalf("cors origins not overlaid: %q", cfg.CorsOrigins)
	}
}

func TestLoadServiceConfigEmptyFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "")
	cfg, err := loadServiceConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	def := defaultServiceConfig()
	if cfg.Channel != def.Channel {
		t.Fatalf("expected default channel config, got %+v", cfg.Channel)
	}
	if cfg.AdminListenAddr != "" || cfg.OutputDir != "" {
		t.Fatalf("expected empty daemon settings, got %+v", cfg)
	}
}

func TestLoadServiceConfigRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"bad port", `port = 70000`},
		{"zero port", `port = -1`},
		{"bad backlog", `backlog = 0`},
		{"empty host", `host = "  "`},
		{"bad read timeout", `read_timeout = "soon"`},
		{"malformed toml", `port = `},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := loadServiceConfig(writeConfig(t, tc.body)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadServiceConfigMissingFile(t *testing.T) {
	if _, err := loadServiceConfig(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
