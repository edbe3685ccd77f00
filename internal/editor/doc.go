// Package editor provides the Editor facade: one instance per document,
// composing the event bus, the content engine, the persisted field and the
// plugin host.
//
// An Editor is confined to the goroutine of its scheduler. Code running on
// other goroutines reaches it through loop.Loop.Do:
//
//	ed, err := editor.New(lp, editor.WithContent("<p>Hi</p>"))
//	if err != nil {
//	    return err
//	}
//	_, _ = ed.On("change", func(ctx context.Context, evt event.Event) error {
//	    return save(evt.Content)
//	})
//	err = lp.Do(ctx, func() error { return ed.Load(ctx) })
package editor
