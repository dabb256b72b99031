// Package provider defines the lookup gateway the enrichment engine talks to
// and the ordered fallback chain that fronts the concrete backends.
//
// A lookup resolves to exactly one Result kind: an exact match (optionally
// carrying a cover and metadata), a bounded list of suggestions that needs a
// human decision, not found, or a failure. The chain consults the next backend
// only when the previous one found nothing or is not configured; failures are
// returned immediately.
package provider
