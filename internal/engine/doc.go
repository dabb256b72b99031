// Package engine drives an enrichment run over an ordered input list.
//
// An Engine owns one State: the input, a cursor, the accumulated results, and
// a mode. Run steps the cursor forward at a paced rate, folding every lookup
// outcome into an item status. When a provider returns near matches the
// engine parks in ModeAwaiting until Resolve applies a human decision.
//
// Control calls (Start, Pause, Resume, Stop, Reset) are safe from any
// goroutine. Lookups run outside the engine lock; a second Step while one is
// in flight returns ErrBusy.
package engine
