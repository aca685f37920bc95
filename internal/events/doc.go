// Package events implements the asynchronous session event pipeline.
//
// The dispatcher decouples emitters from sinks with a buffered channel so a
// slow sink can never stall a login or refresh. When DropIfFull is set the
// dispatcher sheds events instead of blocking; Dropped reports how many.
//
// # What this package must NOT do
//
//   - Perform network I/O of its own.
//   - Import the root sessionkit package (no import cycles).
package events
