// Package resolver locates the calibrated data directory of each observation
// target under a raw-data root. It contains:
//
//   - Resolver: the single-child tree descent performed per target
//   - Outcome: the tagged result of one target's search
//   - Report: the ordered outcomes of a full run
//
// Searches are read-only and sequential. Unresolved targets are logged and
// kept in the Report so callers can tell which ones were dropped.
package resolver
