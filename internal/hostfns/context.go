package hostfns

import (
	"os"

	"go.uber.org/zap"

	"datafast-runtime/internal/asc"
	"datafast-runtime/internal/model"
)

// StoreOps is the subset of the Database component (spec.md §4.7) the
// store.get/store.set host functions dispatch to. internal/subgraph
// supplies the concrete implementation backed by internal/database.
type StoreOps interface {
	Get(entityType, id string) (model.Entity, bool, error)
	Set(entityType string, e model.Entity) error
}

// DataSourceInfo is the per-invocation context the dataSource.* host
// functions read (spec.md §4.2, §4.6 step 1).
type DataSourceInfo struct {
	Address string
	Network string
	Context model.Entity
}

// AllowCriticalLogEnv is the documented test escape hatch: when set to any
// non-empty value, a critical (level 0) log.log call is tolerated instead
// of being treated as fatal (spec.md §4.2).
const AllowCriticalLogEnv = "DATAFAST_ALLOW_CRITICAL_LOG"

// Context bundles everything a registered host function needs: the Asc
// bridge bound to the calling instance's memory/allocator/type-ids, the
// store dispatch target, structured logging, and the current
// datasource/block invocation context. One Context is created per sandbox
// Instance; internal/subgraph sets its DataSource before a datasource's
// handlers run, and internal/sandbox clears Err at the start of each
// handler call.
type Context struct {
	Asc        *asc.Host
	Store      StoreOps
	Logger     *zap.Logger
	DataSource DataSourceInfo

	// Err captures a fatal error raised from within a host function call
	// (e.g. a critical log, a failed store write) so the caller can
	// surface it after the guest export returns, since wasmer swallows a
	// Go error returned mid-callback only as a generic trap.
	Err error
}

func allowCriticalLog() bool {
	return os.Getenv(AllowCriticalLogEnv) != ""
}
