// Package manifest loads the YAML subgraph manifest described in spec.md
// §6: one or more datasources, each pairing a chain source (address, ABI,
// start block) with a set of event/block handler declarations. Address
// and ABI-path validation happens here, at load time, so a malformed
// manifest is a fatal startup error rather than a runtime surprise
// (spec.md §4.5 "unparseable addresses cause a parse error at manifest
// load, not at runtime").
package manifest

import (
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// Manifest is the decoded, validated subgraph manifest.
type Manifest struct {
	DataSources []DataSource `yaml:"dataSources"`
}

// DataSource is one manifest entry: a named chain source plus its mapping
// declaration (spec.md §6).
type DataSource struct {
	Kind    string  `yaml:"kind"`
	Name    string  `yaml:"name"`
	Network string  `yaml:"network"`
	Source  Source  `yaml:"source"`
	Mapping Mapping `yaml:"mapping"`

	// ResolvedAddress is Source.Address parsed to a common.Address at
	// load time, nil if Source.Address was empty (an address-less
	// datasource matches on block handlers only).
	ResolvedAddress *common.Address `yaml:"-"`
	// ResolvedWasmFile is Mapping.File resolved against the manifest's
	// own directory, ready to pass to os.ReadFile.
	ResolvedWasmFile string `yaml:"-"`
}

// Source names the on-chain contract and starting point a datasource
// tracks.
type Source struct {
	Address    string `yaml:"address"`
	ABI        string `yaml:"abi"`
	StartBlock uint64 `yaml:"startBlock"`
}

// Mapping declares the handler exports a datasource's sandbox module
// provides and the entity types it writes.
type Mapping struct {
	Kind          string         `yaml:"kind"`
	APIVersion    string         `yaml:"apiVersion"`
	File          string         `yaml:"file"`
	Entities      []string       `yaml:"entities"`
	ABIs          []ABIRef       `yaml:"abis"`
	EventHandlers []EventHandler `yaml:"eventHandlers"`
	BlockHandlers []BlockHandler `yaml:"blockHandlers"`
}

// ABIRef names one ABI file a mapping's handlers decode events against.
type ABIRef struct {
	Name string `yaml:"name"`
	File string `yaml:"file"`
}

// EventHandler pairs a (possibly "indexed"-annotated) event signature with
// the guest export that handles it (spec.md §4.5 step 2).
type EventHandler struct {
	Event   string `yaml:"event"`
	Handler string `yaml:"handler"`
}

// BlockHandler pairs an optional filter with a guest export. A handler
// without a Filter is called for every block; the Data Filter never
// matches a handler that declares a Filter.
type BlockHandler struct {
	Filter  string `yaml:"filter,omitempty"`
	Handler string `yaml:"handler"`
}

// Load reads and validates the manifest at path. ABI file paths are
// resolved relative to the manifest's own directory.
func Load(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrLoad{Path: path, Cause: err}
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, ErrLoad{Path: path, Cause: err}
	}
	base := filepath.Dir(path)
	if err := m.validate(base); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) validate(baseDir string) error {
	seen := make(map[string]bool, len(m.DataSources))
	for i := range m.DataSources {
		ds := &m.DataSources[i]
		if ds.Name == "" {
			return ErrValidate{Reason: "datasource missing name"}
		}
		if seen[ds.Name] {
			return ErrValidate{Reason: "duplicate datasource name " + ds.Name}
		}
		seen[ds.Name] = true

		if ds.Source.Address != "" {
			if !common.IsHexAddress(ds.Source.Address) {
				return ErrValidate{Reason: "datasource " + ds.Name + ": invalid address " + ds.Source.Address}
			}
			addr := common.HexToAddress(ds.Source.Address)
			ds.ResolvedAddress = &addr
		}

		if ds.Mapping.File != "" {
			p := ds.Mapping.File
			if !filepath.IsAbs(p) {
				p = filepath.Join(baseDir, p)
			}
			if _, err := os.Stat(p); err != nil {
				return ErrValidate{Reason: "datasource " + ds.Name + ": mapping file " + ds.Mapping.File + " unreadable: " + err.Error()}
			}
			ds.ResolvedWasmFile = p
		}

		for _, abi := range ds.Mapping.ABIs {
			p := abi.File
			if !filepath.IsAbs(p) {
				p = filepath.Join(baseDir, p)
			}
			if _, err := os.Stat(p); err != nil {
				return ErrValidate{Reason: "datasource " + ds.Name + ": abi file " + abi.File + " unreadable: " + err.Error()}
			}
		}

		if len(ds.Mapping.EventHandlers) == 0 && len(ds.Mapping.BlockHandlers) == 0 {
			return ErrValidate{Reason: "datasource " + ds.Name + ": declares no handlers"}
		}
	}
	return nil
}

// HandlerNames returns every handler export this datasource's mapping
// declares, in manifest order — the set sandbox.New must resolve exports
// for at load time.
func (d DataSource) HandlerNames() []string {
	names := make([]string, 0, len(d.Mapping.EventHandlers)+len(d.Mapping.BlockHandlers))
	for _, h := range d.Mapping.EventHandlers {
		names = append(names, h.Handler)
	}
	for _, h := range d.Mapping.BlockHandlers {
		names = append(names, h.Handler)
	}
	return names
}
