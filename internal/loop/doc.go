// Package loop provides the single-threaded run-to-completion loop that
// the editor, its plugins and any remote bridge share.
//
// Everything that touches editor state runs on the loop goroutine: host
// interactions submitted with Post or Do, timer callbacks scheduled by
// plugins, and messages arriving from remote clients. A timer that fires
// does not run its callback directly; it enqueues the callback, so timer
// work never overlaps an in-flight dispatch.
//
// Manual implements the same Scheduler interface with a virtual clock that
// only moves when Advance is called. Tests use it to drive timers
// deterministically.
package loop
