// Package dispatch runs callbacks at an isolation boundary.
//
// Every callback the editor does not own (event listeners, plugin timer
// callbacks, plugin cleanup hooks) goes through an Executor so that a
// returned error or a panic is captured in a Result instead of unwinding
// the caller. The package has no knowledge of events or plugins.
package dispatch
