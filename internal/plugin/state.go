package plugin

// State represents the lifecycle state of a plugin.
type State int

// Plugin states.
const (
	// StateRegistered - code stored, never enabled.
	StateRegistered State = iota

	// StateEnabled - activated and holding a live Context.
	StateEnabled

	// StateDisabled - deactivated, or activation failed.
	StateDisabled
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateRegistered:
		return "registered"
	case StateEnabled:
		return "enabled"
	case StateDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}
