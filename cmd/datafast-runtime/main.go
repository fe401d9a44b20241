// Command datafast-runtime runs a subgraph manifest against a block
// stream: it loads a manifest and a runtime config, wires the five-stage
// pipeline (spec.md §4), and runs it to completion or until signalled.
// Grounded on cmd/synnergy/main.go's cobra root/subcommand layout and
// core/virtual_machine.go's logrus JSON bootstrap/graceful-shutdown
// pattern.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"datafast-runtime/internal/asc"
	"datafast-runtime/internal/blocksource"
	"datafast-runtime/internal/database"
	"datafast-runtime/internal/datafilter"
	"datafast-runtime/internal/manifest"
	"datafast-runtime/internal/metrics"
	"datafast-runtime/internal/model"
	"datafast-runtime/internal/pipeline"
	"datafast-runtime/internal/rtconfig"
	"datafast-runtime/internal/sandbox"
	"datafast-runtime/internal/serializer"
	"datafast-runtime/internal/subgraph"
	"datafast-runtime/internal/valve"
)

func main() {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	root := &cobra.Command{Use: "datafast-runtime"}
	var configPath string
	root.PersistentFlags().StringVar(&configPath, "config", "runtime.toml", "path to the runtime TOML config")

	root.AddCommand(runCmd(&configPath))
	root.AddCommand(validateManifestCmd(&configPath))

	if err := root.Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps a terminal error to the process exit code spec.md §7's
// severity classes imply: a pipeline.FatalError (a stage failed) is 1, any
// other startup failure (bad config, bad manifest) is 2.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	var fatal pipeline.FatalError
	if errors.As(err, &fatal) {
		return 1
	}
	return 2
}

func runCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "run the indexing pipeline against the configured block source",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(*configPath)
		},
	}
}

func validateManifestCmd(configPath *string) *cobra.Command {
	var manifestPath string
	cmd := &cobra.Command{
		Use:   "validate-manifest",
		Short: "load and validate a subgraph manifest without running the pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := manifestPath
			if path == "" {
				cfg, err := rtconfig.Load(*configPath)
				if err != nil {
					return err
				}
				path = cfg.Manifest
			}
			m, err := manifest.Load(path)
			if err != nil {
				return err
			}
			logrus.Infof("manifest %s: %d datasource(s) validated", path, len(m.DataSources))
			return nil
		},
	}
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "manifest path; defaults to the config's manifest field")
	return cmd
}

func runPipeline(configPath string) error {
	cfg, err := rtconfig.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	m, err := manifest.Load(cfg.Manifest)
	if err != nil {
		return fmt.Errorf("load manifest: %w", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	extern, err := database.Open(cfg.Database.DurableDir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer extern.Close()
	db := database.New(extern, schemaFromManifest(m), database.Config{MemoryEntries: cfg.Database.MemoryEntries})

	v := valve.New(cfg.Valve.AllowedLag, cfg.Valve.WaitTime)

	adapter := subgraph.NewStoreAdapter(db)
	dispatcher, err := subgraph.New(m.DataSources, wasmLoader, adapter, logger, networkOf(m))
	if err != nil {
		return fmt.Errorf("build subgraph dispatcher: %w", err)
	}
	defer dispatcher.Close()

	src, err := buildSource(cfg, v)
	if err != nil {
		return fmt.Errorf("build source: %w", err)
	}

	ser, err := buildSerializer(cfg, adapter, logger)
	if err != nil {
		return fmt.Errorf("build serializer: %w", err)
	}

	reg := metrics.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logrus.Info("received shutdown signal, draining pipeline")
			cancel()
		case <-ctx.Done():
		}
	}()

	p := &pipeline.Pipeline{
		Source:        src,
		Serializer:    ser,
		Filter:        datafilter.New(m.DataSources),
		Dispatcher:    dispatcher,
		DB:            db,
		Valve:         v,
		Metrics:       reg,
		ChannelBuffer: cfg.Pipeline.ChannelBuffer,
		Logger:        logger,
	}

	metricsErrCh := make(chan error, 1)
	go func() { metricsErrCh <- reg.Serve(ctx, cfg.Metrics.Addr) }()

	err = p.Run(ctx)
	cancel()
	if metricsErr := <-metricsErrCh; metricsErr != nil {
		logrus.Warnf("metrics server: %v", metricsErr)
	}
	return err
}

// schemaFromManifest builds a permissive model.Schema naming every entity
// type any datasource's mapping declares, with no field constraints: field
// level validation happens inside model.Entity.Validate's own invariants
// (spec.md §3), not against a declared GraphQL schema.
func schemaFromManifest(m *manifest.Manifest) model.Schema {
	schema := make(model.Schema)
	for _, ds := range m.DataSources {
		for _, typ := range ds.Mapping.Entities {
			if _, ok := schema[typ]; !ok {
				schema[typ] = nil
			}
		}
	}
	return schema
}

// networkOf returns the network every datasource in the manifest declares;
// manifests mix datasources from one chain, so the first entry's value
// names it for the whole Dispatcher.
func networkOf(m *manifest.Manifest) string {
	if len(m.DataSources) == 0 {
		return ""
	}
	return m.DataSources[0].Network
}

func wasmLoader(ds manifest.DataSource) ([]byte, asc.Version, error) {
	bytes, err := os.ReadFile(ds.ResolvedWasmFile)
	if err != nil {
		return nil, asc.Version{}, err
	}
	version, err := asc.ParseVersion(ds.Mapping.APIVersion)
	if err != nil {
		return nil, asc.Version{}, err
	}
	return bytes, version, nil
}

func buildSource(cfg *rtconfig.Config, v *valve.Valve) (blocksource.Source, error) {
	mode := blocksource.ModeBlock
	if len(cfg.Transform) > 0 {
		mode = blocksource.ModeJSON
	}
	switch cfg.Source.Kind {
	case "readdir":
		if cfg.Source.Dir == "" {
			return nil, fmt.Errorf("source.dir is required for kind=readdir")
		}
		return blocksource.NewReadDirSource(cfg.Source.Dir, mode, v, rate.Limit(10), 3), nil
	case "readline", "":
		return blocksource.NewReadLineSource(os.Stdin, mode, v), nil
	default:
		return nil, fmt.Errorf("unknown source.kind %q", cfg.Source.Kind)
	}
}

// buildSerializer wires a transform-mode Serializer to the same
// StoreAdapter the Subgraph Dispatcher uses, so the writes a raw-payload
// mapping handler performs land in the same Database. Those writes are
// versioned against whatever block the adapter was last set to; a
// transform handler that needs accurate versioning for its own writes
// should confine itself to decoding the header and leave entity writes to
// the per-datasource handlers the Dispatcher drives with a known block.
func buildSerializer(cfg *rtconfig.Config, adapter *subgraph.StoreAdapter, logger *zap.Logger) (*serializer.Serializer, error) {
	target, ok := firstTransformTarget(cfg.Transform)
	if !ok {
		return serializer.NewDirect(), nil
	}
	wasmBytes, err := os.ReadFile(target.WasmFile)
	if err != nil {
		return nil, fmt.Errorf("read transform wasm %s: %w", target.WasmFile, err)
	}
	inst, err := sandbox.New("serializer", wasmBytes, asc.V005, adapter, logger, []string{target.FuncName})
	if err != nil {
		return nil, fmt.Errorf("instantiate transform sandbox: %w", err)
	}
	return serializer.NewTransform(inst, target.FuncName), nil
}

// firstTransformTarget picks the (only meaningful) transform target from
// the config map; see rtconfig.TransformTarget's doc comment.
func firstTransformTarget(m map[string]rtconfig.TransformTarget) (rtconfig.TransformTarget, bool) {
	for _, t := range m {
		return t, true
	}
	return rtconfig.TransformTarget{}, false
}
