package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadReadsYAML(t *testing.T) {
	path := writeConfig(t, `
chain:
  rpc_url: "https://rpc.example"
  chain_id: 8453
market:
  base: "0x01"
  quote: "0x02"
  tick_spacing: 1
store_path: "somewhere"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Chain.RPCURL != "https://rpc.example" {
		t.Fatalf("rpc_url = %q", cfg.Chain.RPCURL)
	}
	if cfg.Chain.ChainID != 8453 {
		t.Fatalf("chain_id = %d", cfg.Chain.ChainID)
	}
	if cfg.StorePath != "somewhere" {
		t.Fatalf("store_path = %q", cfg.StorePath)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("default log level = %q", cfg.Log.Level)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
chain:
  rpc_url: "https://rpc.example"
  chain_id: 1
`)
	t.Setenv("KANDEL_RPC_URL", "https://other.example")
	t.Setenv("KANDEL_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Chain.RPCURL != "https://other.example" {
		t.Fatalf("rpc_url = %q, env override lost", cfg.Chain.RPCURL)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("log level = %q, env override lost", cfg.Log.Level)
	}
}

func TestLoadRequiresRPCURL(t *testing.T) {
	path := writeConfig(t, `
chain:
  chain_id: 1
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted a config without an rpc url")
	}
}
