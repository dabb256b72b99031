// Package services defines shared utilities consumed by the enrichment engine
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, item names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent item statuses (no_results vs errored).
package services
