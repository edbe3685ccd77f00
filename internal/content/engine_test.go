package content

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/inkwell/internal/event"
	"github.com/dshills/inkwell/internal/field"
)

type capture struct {
	events []event.Event
}

func (c *capture) names() []event.Name {
	out := make([]event.Name, len(c.events))
	for i, e := range c.events {
		out[i] = e.Name
	}
	return out
}

func (c *capture) last(name event.Name) (event.Event, bool) {
	for i := len(c.events) - 1; i >= 0; i-- {
		if c.events[i].Name == name {
			return c.events[i], true
		}
	}
	return event.Event{}, false
}

func newEngine(t *testing.T, initial string) (*Engine, *capture, *field.Memory, *event.Bus) {
	t.Helper()
	bus := event.NewBus()
	rec := &capture{}
	for _, n := range event.Names() {
		_, err := bus.SubscribeFunc(n, func(ctx context.Context, evt event.Event) error {
			rec.events = append(rec.events, evt)
			return nil
		})
		require.NoError(t, err)
	}
	f, err := field.NewMemory("content")
	require.NoError(t, err)

	e := NewEngine(initial, bus, f)
	require.NoError(t, e.Load(context.Background()))
	return e, rec, f, bus
}

type failingField struct{ err error }

func (f failingField) Name() string       { return "broken" }
func (f failingField) Value() string      { return "" }
func (f failingField) Write(string) error { return f.err }

type reportSink struct{ errs []error }

func (r *reportSink) Report(err error) { r.errs = append(r.errs, err) }

func TestEngine_LoadPublishesOnceAndSyncs(t *testing.T) {
	e, rec, f, _ := newEngine(t, "<p>Hi</p>")

	assert.Equal(t, []event.Name{event.Load}, rec.names())
	assert.Equal(t, "<p>Hi</p>", f.Value())
	assert.Equal(t, StateClean, e.State())

	require.NoError(t, e.Load(context.Background()))
	assert.Len(t, rec.events, 1)
}

func TestEngine_MutationBeforeLoad(t *testing.T) {
	e := NewEngine("", event.NewBus(), nil)
	assert.ErrorIs(t, e.Input(context.Background(), "x"), ErrNotLoaded)
	assert.ErrorIs(t, e.SetContent(context.Background(), "x"), ErrNotLoaded)
}

func TestEngine_SetContentScenario(t *testing.T) {
	ctx := context.Background()
	e, rec, f, _ := newEngine(t, "<p>Hi</p>")

	require.NoError(t, e.SetContent(ctx, "<h1>T</h1>"))
	input, ok := rec.last(event.Input)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"content": "<h1>T</h1>"}, input.Payload())
	assert.True(t, e.Dirty())
	assert.Equal(t, "<h1>T</h1>", f.Value())
	assert.Equal(t, "<h1>T</h1>", e.Content().HTML())

	require.NoError(t, e.Blur(ctx))
	change, ok := rec.last(event.Change)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"content": "<h1>T</h1>", "previousContent": "<p>Hi</p>"}, change.Payload())
	assert.False(t, e.Dirty())
	assert.Equal(t, "<h1>T</h1>", e.Previous().HTML())
	assert.Equal(t, []event.Name{event.Load, event.Input, event.Change, event.Blur}, rec.names())
}

func TestEngine_BlurWhileCleanPublishesBlurOnly(t *testing.T) {
	e, rec, _, _ := newEngine(t, "")
	require.NoError(t, e.Focus(context.Background()))
	assert.True(t, e.Focused())
	require.NoError(t, e.Blur(context.Background()))
	assert.False(t, e.Focused())
	assert.Equal(t, []event.Name{event.Load, event.Focus, event.Blur}, rec.names())
}

func TestEngine_ChangeNeverFiresTwiceWithoutMutation(t *testing.T) {
	ctx := context.Background()
	e, rec, _, _ := newEngine(t, "")

	require.NoError(t, e.Input(ctx, "a"))
	require.NoError(t, e.Blur(ctx))
	require.NoError(t, e.Focus(ctx))
	require.NoError(t, e.Blur(ctx))
	require.NoError(t, e.Blur(ctx))

	changes := 0
	for _, evt := range rec.events {
		if evt.Name == event.Change {
			changes++
		}
	}
	assert.Equal(t, 1, changes)
}

func TestEngine_InputFiresOncePerInteraction(t *testing.T) {
	ctx := context.Background()
	e, rec, _, _ := newEngine(t, "")

	steps := []string{"a", "ab", "ab", "abc", ""}
	for _, s := range steps {
		require.NoError(t, e.Input(ctx, s))
	}

	var inputs []string
	for _, evt := range rec.events {
		if evt.Name == event.Input {
			inputs = append(inputs, evt.Content)
		}
	}
	assert.Equal(t, steps, inputs)
	assert.True(t, e.Dirty())
}

func TestEngine_PreviousContentTracksLastCommit(t *testing.T) {
	ctx := context.Background()
	e, rec, _, _ := newEngine(t, "v0")

	require.NoError(t, e.Input(ctx, "v1"))
	require.NoError(t, e.Blur(ctx))
	require.NoError(t, e.Input(ctx, "v2"))
	require.NoError(t, e.Input(ctx, "v3"))
	require.NoError(t, e.Blur(ctx))

	var pairs [][2]string
	for _, evt := range rec.events {
		if evt.Name == event.Change {
			pairs = append(pairs, [2]string{evt.Content, evt.PreviousContent})
		}
	}
	assert.Equal(t, [][2]string{{"v1", "v0"}, {"v3", "v1"}}, pairs)
}

func TestEngine_SetContentToCommittedValueStaysClean(t *testing.T) {
	ctx := context.Background()
	e, rec, _, _ := newEngine(t, "<p>same</p>")

	require.NoError(t, e.SetContent(ctx, "<p>same</p>"))
	assert.False(t, e.Dirty())
	_, ok := rec.last(event.Input)
	assert.True(t, ok, "input fires even when content is unchanged")

	require.NoError(t, e.Clear(ctx))
	assert.True(t, e.Dirty())
	assert.Equal(t, "", e.Content().HTML())
}

func TestEngine_SetContentRevertToCommittedIsClean(t *testing.T) {
	ctx := context.Background()
	e, rec, _, _ := newEngine(t, "<p>Hi</p>")

	require.NoError(t, e.Input(ctx, "<p>Hi!</p>"))
	require.True(t, e.Dirty())
	require.NoError(t, e.SetContent(ctx, "<p>Hi</p>"))
	assert.False(t, e.Dirty())

	require.NoError(t, e.Blur(ctx))
	_, changed := rec.last(event.Change)
	assert.False(t, changed, "no change when content matches the last commit")
}

func TestEngine_BlurWithDoneContextStillDeliversChange(t *testing.T) {
	e, rec, _, _ := newEngine(t, "<p>Hi</p>")
	require.NoError(t, e.SetContent(context.Background(), "<h1>T</h1>"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, e.Blur(ctx))

	evt, ok := rec.last(event.Change)
	require.True(t, ok)
	assert.Equal(t, "<h1>T</h1>", evt.Content)
	assert.Equal(t, "<p>Hi</p>", evt.PreviousContent)
	assert.False(t, e.Dirty())
	assert.Equal(t, []event.Name{event.Load, event.Input, event.Change, event.Blur}, rec.names())
}

func TestEngine_SyncIsIdempotentAndLeavesDirtyAlone(t *testing.T) {
	ctx := context.Background()
	e, _, f, _ := newEngine(t, "")

	require.NoError(t, e.Input(ctx, "x"))
	writes := f.Writes()
	require.NoError(t, e.Sync())
	require.NoError(t, e.Sync())
	assert.Equal(t, "x", f.Value())
	assert.Equal(t, writes+2, f.Writes())
	assert.True(t, e.Dirty())
}

func TestEngine_FieldFailureIsReportedAndReturned(t *testing.T) {
	ctx := context.Background()
	sink := &reportSink{}
	cause := errors.New("disk full")
	bus := event.NewBus()
	inputs := 0
	_, _ = bus.SubscribeFunc(event.Input, func(context.Context, event.Event) error {
		inputs++
		return nil
	})

	e := NewEngine("", bus, failingField{err: cause}, WithReporter(sink))
	err := e.Load(ctx)
	var syncErr *SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, "broken", syncErr.Field)

	err = e.Input(ctx, "x")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1, inputs)
	assert.True(t, e.Dirty())
	assert.Len(t, sink.errs, 2)
}

func TestEngine_ListenerMutationDuringChangeKeepsDirty(t *testing.T) {
	ctx := context.Background()
	e, _, _, bus := newEngine(t, "a")

	_, err := bus.SubscribeFunc(event.Change, func(ctx context.Context, evt event.Event) error {
		return e.SetContent(ctx, evt.Content+"!")
	})
	require.NoError(t, err)

	require.NoError(t, e.Input(ctx, "b"))
	require.NoError(t, e.Blur(ctx))

	assert.Equal(t, "b!", e.Content().HTML())
	assert.Equal(t, "b", e.Previous().HTML())
	assert.True(t, e.Dirty())
}

func TestSnapshot_Text(t *testing.T) {
	s := NewSnapshot("<p>one <b>two</b></p>")
	assert.Equal(t, "one two", s.Text())
	assert.Equal(t, "clean", StateClean.String())
	assert.Equal(t, "dirty", StateDirty.String())
}
