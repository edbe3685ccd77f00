package logging

import "sync"

// DefaultHistory is how many reports a Diagnostics keeps for inspection.
const DefaultHistory = 64

// Reporter receives failures that were caught at an isolation boundary and
// must not propagate to the caller.
type Reporter interface {
	Report(err error)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(err error)

// Report implements Reporter.
func (f ReporterFunc) Report(err error) {
	f(err)
}

// Fielder is implemented by errors that carry structured context for logs.
type Fielder interface {
	LogFields() map[string]any
}

// Discard is a Reporter that drops every report.
var Discard Reporter = ReporterFunc(func(error) {})

// Diagnostics logs each report and keeps a bounded history of recent ones.
type Diagnostics struct {
	mu     sync.Mutex
	log    *Logger
	recent []error
	limit  int
	total  uint64
}

// NewDiagnostics creates a Diagnostics writing to log. A limit <= 0 uses
// DefaultHistory.
func NewDiagnostics(log *Logger, limit int) *Diagnostics {
	if limit <= 0 {
		limit = DefaultHistory
	}
	return &Diagnostics{
		log:   log.WithComponent("diagnostics"),
		limit: limit,
	}
}

// Report implements Reporter.
func (d *Diagnostics) Report(err error) {
	if err == nil {
		return
	}

	d.mu.Lock()
	d.total++
	if len(d.recent) == d.limit {
		copy(d.recent, d.recent[1:])
		d.recent = d.recent[:d.limit-1]
	}
	d.recent = append(d.recent, err)
	d.mu.Unlock()

	log := d.log
	if f, ok := err.(Fielder); ok {
		log = log.WithFields(f.LogFields())
	}
	log.Error(err, "isolated failure")
}

// Recent returns the retained reports, oldest first.
func (d *Diagnostics) Recent() []error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]error(nil), d.recent...)
}

// Total returns how many errors were reported since creation.
func (d *Diagnostics) Total() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.total
}

// Reset clears the retained history and counter.
func (d *Diagnostics) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recent = nil
	d.total = 0
}
