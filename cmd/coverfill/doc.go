// Package main implements the coverfill command-line interface.
//
// The CLI reads a CSV list of games, looks each one up against the configured
// cover-art and metadata providers, asks the operator to disambiguate when a
// lookup returns several candidates, and exports the enriched list. Runs are
// checkpointed in a SQLite store under the state directory so an interrupted
// run can be resumed, inspected, exported, or announced over ntfy later.
//
// Commands load configuration lazily through commandContext; those that must
// work without a config file opt out with the skipConfigLoad annotation.
package main
