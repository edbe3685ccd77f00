package event

import (
	"context"
	"strconv"
)

// Name identifies one of the fixed lifecycle events.
type Name string

// Lifecycle events.
const (
	Load   Name = "load"
	Focus  Name = "focus"
	Blur   Name = "blur"
	Change Name = "change"
	Input  Name = "input"
)

var knownNames = map[Name]struct{}{
	Load:   {},
	Focus:  {},
	Blur:   {},
	Change: {},
	Input:  {},
}

// Names returns every valid event name in a stable order.
func Names() []Name {
	return []Name{Load, Focus, Blur, Change, Input}
}

// ParseName converts s into a Name, failing with ErrInvalidEventName.
func ParseName(s string) (Name, error) {
	n := Name(s)
	if !n.Valid() {
		return "", invalidName(s)
	}
	return n, nil
}

// Valid reports whether n is one of the fixed event names.
func (n Name) Valid() bool {
	_, ok := knownNames[n]
	return ok
}

// String implements fmt.Stringer.
func (n Name) String() string {
	return string(n)
}

// Event is a published lifecycle event. Content fields are copies taken at
// publish time; mutating them has no effect on the editor.
type Event struct {
	Name            Name
	Content         string
	PreviousContent string
}

// NewLoad returns a load event.
func NewLoad() Event { return Event{Name: Load} }

// NewFocus returns a focus event.
func NewFocus() Event { return Event{Name: Focus} }

// NewBlur returns a blur event.
func NewBlur() Event { return Event{Name: Blur} }

// NewInput returns an input event carrying the post-interaction content.
func NewInput(content string) Event {
	return Event{Name: Input, Content: content}
}

// NewChange returns a change event carrying the committed and prior content.
func NewChange(content, previous string) Event {
	return Event{Name: Change, Content: content, PreviousContent: previous}
}

// Payload returns the payload shape documented for the event name.
func (e Event) Payload() map[string]any {
	switch e.Name {
	case Input:
		return map[string]any{"content": e.Content}
	case Change:
		return map[string]any{"content": e.Content, "previousContent": e.PreviousContent}
	default:
		return map[string]any{}
	}
}

// Handler is the interface for event handlers.
type Handler interface {
	Handle(ctx context.Context, evt Event) error
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(ctx context.Context, evt Event) error

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}

// Handle identifies one registration. The zero Handle is never issued.
type Handle uint64

// String implements fmt.Stringer.
func (h Handle) String() string {
	return "sub-" + strconv.FormatUint(uint64(h), 10)
}

// Stats contains bus statistics.
type Stats struct {
	EventsPublished   uint64
	HandlersExecuted  uint64
	HandlerErrors     uint64
	HandlerPanics     uint64
	ActiveSubscribers int
}
