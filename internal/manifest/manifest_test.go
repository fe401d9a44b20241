package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validYAML = `
dataSources:
  - kind: ethereum
    name: Pool
    network: mainnet
    source:
      address: "0x0000000000000000000000000000000000000001"
      abi: Pool
      startBlock: 100
    mapping:
      kind: ethereum/events
      apiVersion: 0.0.5
      file: pool.wasm
      entities:
        - Swap
      abis:
        - name: Pool
          file: Pool.json
      eventHandlers:
        - event: "Transfer(indexed address,indexed address,uint256)"
          handler: handleTransfer
`

func writeManifest(t *testing.T, dir, yamlBody string) string {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "Pool.json"), []byte("[]"), 0o644); err != nil {
		t.Fatalf("write abi: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "pool.wasm"), []byte{0}, 0o644); err != nil {
		t.Fatalf("write wasm: %v", err)
	}
	path := filepath.Join(dir, "subgraph.yaml")
	if err := os.WriteFile(path, []byte(yamlBody), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoadValidManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, validYAML)
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(m.DataSources) != 1 {
		t.Fatalf("got %d datasources, want 1", len(m.DataSources))
	}
	ds := m.DataSources[0]
	if ds.ResolvedAddress == nil {
		t.Fatal("expected resolved address")
	}
	if got := ds.HandlerNames(); len(got) != 1 || got[0] != "handleTransfer" {
		t.Fatalf("got handlers %v", got)
	}
}

func TestLoadRejectsBadAddress(t *testing.T) {
	dir := t.TempDir()
	bad := strings.Replace(validYAML, `"0x0000000000000000000000000000000000000001"`, `"not-an-address"`, 1)
	path := writeManifest(t, dir, bad)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for bad address")
	}
}

func TestLoadRejectsMissingABIFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subgraph.yaml")
	if err := os.WriteFile(path, []byte(validYAML), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "pool.wasm"), []byte{0}, 0o644); err != nil {
		t.Fatalf("write wasm: %v", err)
	}
	// Deliberately skip writing Pool.json.
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for missing abi file")
	}
}

func TestLoadRejectsDuplicateNames(t *testing.T) {
	dir := t.TempDir()
	doubled := validYAML + `  - kind: ethereum
    name: Pool
    network: mainnet
    source:
      abi: Pool
    mapping:
      kind: ethereum/events
      apiVersion: 0.0.5
      blockHandlers:
        - handler: handleBlock
`
	path := writeManifest(t, dir, doubled)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for duplicate datasource name")
	}
}

