// Package notifications publishes enrichment events to ntfy.
//
// NewService returns an ntfy-backed Service when a topic URL is configured
// and a no-op otherwise. Dispatcher sends one message per completed item,
// spaced by the configured delay; delivery is best effort and a failed
// message never stops the rest.
package notifications
