package content

import "github.com/dshills/inkwell/internal/text"

// Snapshot is an immutable capture of editor content.
type Snapshot struct {
	html string
}

// NewSnapshot captures html.
func NewSnapshot(html string) Snapshot {
	return Snapshot{html: html}
}

// HTML returns the captured markup.
func (s Snapshot) HTML() string {
	return s.html
}

// Text derives the plain text of the snapshot.
func (s Snapshot) Text() string {
	return text.Extract(s.html)
}

// Equal reports whether two snapshots hold the same markup.
func (s Snapshot) Equal(other Snapshot) bool {
	return s.html == other.html
}

// State is the dirty state of the engine.
type State int

// Engine states.
const (
	// StateClean means no mutation happened since the last commit.
	StateClean State = iota

	// StateDirty means content changed since the last commit.
	StateDirty
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateClean:
		return "clean"
	case StateDirty:
		return "dirty"
	default:
		return "unknown"
	}
}
