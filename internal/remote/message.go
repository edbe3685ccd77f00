package remote

import "github.com/dshills/inkwell/internal/event"

// Op names an interaction a client can request.
type Op string

// Client operations.
const (
	OpInput  Op = "input"
	OpSet    Op = "set"
	OpFocus  Op = "focus"
	OpBlur   Op = "blur"
	OpClear  Op = "clear"
	OpSubmit Op = "submit"
	OpSync   Op = "sync"
)

// Request is a client-to-server message.
type Request struct {
	Op      Op     `json:"op"`
	Content string `json:"content,omitempty"`
}

// Frame is a server-to-client message: an event or an error. Event frames
// always carry a payload object, empty for load, focus and blur.
type Frame struct {
	Event   event.Name     `json:"event,omitempty"`
	Payload map[string]any `json:"payload"`
	Error   string         `json:"error,omitempty"`
}

func eventFrame(evt event.Event) Frame {
	return Frame{Event: evt.Name, Payload: evt.Payload()}
}
