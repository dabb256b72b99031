// Package logs reads the per-run JSON logs written under the log directory.
//
// Tail returns the last lines of a file with bounded memory and Follow polls
// for lines appended after an offset until its context ends. ParseRecord
// turns a JSON line into a Record that Filter can match and Format can render
// for a terminal.
package logs
