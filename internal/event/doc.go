// Package event provides the editor's lifecycle event bus.
//
// The bus carries a fixed, small vocabulary of events:
//
//	load    - the editor finished initializing     payload {}
//	focus   - the editing surface gained focus    payload {}
//	blur    - the editing surface lost focus      payload {}
//	input   - content was modified                payload {content}
//	change  - a modification was committed        payload {content, previousContent}
//
// Dispatch is synchronous and ordered: Publish invokes every handler that was
// registered for the event at the moment Publish started, in registration
// order, on the calling goroutine. Handlers may subscribe or unsubscribe
// from inside a dispatch; the change takes effect from the next Publish.
//
// A handler that returns an error or panics is wrapped in a *HandlerError and
// handed to the bus Reporter. Dispatch then continues with the next handler.
//
// # Basic Usage
//
//	bus := event.NewBus(event.WithReporter(diagnostics))
//
//	h, err := bus.Subscribe(event.Input, event.HandlerFunc(func(ctx context.Context, evt event.Event) error {
//	    fmt.Println("content is now", evt.Content)
//	    return nil
//	}))
//
//	bus.Publish(ctx, event.NewInput("<p>Hi</p>"))
//	bus.Unsubscribe(event.Input, h)
//
// Registering the same handler twice yields two handles and two deliveries
// per publish. Removal is by handle, never by handler value.
package event
