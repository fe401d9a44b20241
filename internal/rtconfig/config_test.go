package rtconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleTOML = `
subgraph_name = "pool-indexer"
manifest = "subgraph.yaml"

[source]
kind = "readdir"
dir = "./blocks"

[valve]
allowed_lag = 50
wait_time = "500ms"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runtime.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesFileValues(t *testing.T) {
	path := writeConfig(t, sampleTOML)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SubgraphName != "pool-indexer" {
		t.Fatalf("got subgraph_name %q", cfg.SubgraphName)
	}
	if cfg.Source.Kind != "readdir" || cfg.Source.Dir != "./blocks" {
		t.Fatalf("got source %+v", cfg.Source)
	}
	if cfg.Valve.AllowedLag != 50 {
		t.Fatalf("got allowed_lag %d, want 50", cfg.Valve.AllowedLag)
	}
	if cfg.Valve.WaitTime != 500*time.Millisecond {
		t.Fatalf("got wait_time %v, want 500ms", cfg.Valve.WaitTime)
	}
}

func TestLoadAppliesDefaultsForUnsetSections(t *testing.T) {
	path := writeConfig(t, `
subgraph_name = "minimal"
manifest = "subgraph.yaml"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.MemoryEntries != 10_000 {
		t.Fatalf("got memory_entries %d, want default 10000", cfg.Database.MemoryEntries)
	}
	if cfg.Metrics.Addr != ":9184" {
		t.Fatalf("got metrics addr %q", cfg.Metrics.Addr)
	}
}

func TestLoadRequiresManifestPath(t *testing.T) {
	path := writeConfig(t, `subgraph_name = "no-manifest"`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing manifest path")
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
