// Package datafilter implements the Data Filter stage (spec.md §4.5):
// per-datasource matching of a block's logs/events (and unconditional
// block handlers) against the manifest's handler declarations.
//
// Open question resolved: when two datasources declare overlapping event
// signatures at the same address, this Filter calls all matching
// handlers, in manifest-declared order, rather than stopping at the
// first match. Manifest order is the order DataSources (and, within one
// datasource, EventHandlers) appear in the loaded manifest.DataSource
// slice, so deterministic dispatch order falls out of iterating it
// top to bottom with no further sorting needed.
package datafilter
