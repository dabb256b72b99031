// Package preflight runs readiness checks before a long enrichment run: the
// state and log directories must be writable and every configured lookup
// backend must answer an authenticated probe.
//
// "coverfill config validate --check" prints the results. Backends without
// credentials are reported as skipped rather than failed.
package preflight
