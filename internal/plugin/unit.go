package plugin

import "strings"

// Unit is compiled plugin code.
type Unit interface {
	// Activate runs the plugin against ctx. An error leaves the plugin
	// Disabled.
	Activate(ctx *Context) error

	// Deactivate runs the plugin's own teardown hook, if it has one.
	Deactivate() error
}

// Closer is implemented by units that hold runtime resources. Close runs
// after every tracked handle has been released.
type Closer interface {
	Close() error
}

// Compiler turns source text for one runtime into a Unit.
type Compiler interface {
	// Runtime returns the runtime name, e.g. "js".
	Runtime() string

	// Compile parses source. It must not run any plugin code.
	Compile(id ID, source string) (Unit, error)
}

// ID is the unique registry key of a plugin, derived from its name.
type ID string

// String implements fmt.Stringer.
func (id ID) String() string {
	return string(id)
}

// DeriveID converts a display name into an ID: lower case ASCII letters and
// digits, with every other run of characters collapsed to a single '-'.
func DeriveID(name string) ID {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		default:
			pendingDash = true
		}
	}
	return ID(b.String())
}

// Info is a read-only view of a registered plugin.
type Info struct {
	ID          ID
	Name        string
	Description string
	Runtime     string
	State       State
	LastError   error
	Handles     int
}
