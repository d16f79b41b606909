package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "uoproxy.toml")
	body := `
listen_address = "0.0.0.0:7775"
upstream_address = "uo.example.com:2593"
username = "tester"
password = "secret"
server_index = 1
character_index = 0
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddress != "0.0.0.0:7775" {
		t.Fatalf("unexpected listen address: %q", cfg.ListenAddress)
	}
	if cfg.ClientRevision != 7 {
		t.Fatalf("expected default client revision 7, got %d", cfg.ClientRevision)
	}
	if !cfg.AutoReconnect {
		t.Fatal("expected default auto_reconnect true")
	}
}

func TestValidateRejectsMissingFields(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for missing upstream/username")
	}
	cfg.UpstreamAddress = "host:1"
	cfg.Username = "u"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsBadClientRevision(t *testing.T) {
	cfg := Default()
	cfg.UpstreamAddress = "host:1"
	cfg.Username = "u"
	cfg.ClientRevision = 8
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid client_revision")
	}
}
