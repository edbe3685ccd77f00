package js

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/inkwell/internal/event"
	"github.com/dshills/inkwell/internal/logging"
	"github.com/dshills/inkwell/internal/loop"
	"github.com/dshills/inkwell/internal/plugin"
)

type memDoc struct {
	content string
}

func (d *memDoc) Content() string { return d.content }
func (d *memDoc) Text() string    { return d.content }

func (d *memDoc) SetContent(_ context.Context, html string) error {
	d.content = html
	return nil
}

type fixture struct {
	host  *plugin.Host
	doc   *memDoc
	clock *loop.Manual
	bus   *event.Bus
	diag  *logging.Diagnostics
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		doc:   &memDoc{content: "<p>start</p>"},
		clock: loop.NewManual(),
		bus:   event.NewBus(),
		diag:  logging.NewDiagnostics(logging.Nop(), 0),
	}
	f.host = plugin.NewHost(f.doc, f.clock,
		plugin.WithCompiler(NewCompiler(opts...)),
		plugin.WithReporter(f.diag),
		plugin.WithEvents(f.bus),
	)
	t.Cleanup(func() { _ = f.host.Close() })
	return f
}

func (f *fixture) enable(t *testing.T, name, source string) plugin.ID {
	t.Helper()
	id, err := f.host.Register(name, "", source)
	require.NoError(t, err)
	require.NoError(t, f.host.Enable(id))
	return id
}

func TestCompile_SyntaxErrorRunsNothing(t *testing.T) {
	c := NewCompiler()
	_, err := c.Compile("bad", "function (")
	assert.Error(t, err)

	_, err = c.Compile("ok", `throw new Error("must not run")`)
	assert.NoError(t, err)
}

func TestJS_ReadsAndWritesContent(t *testing.T) {
	f := newFixture(t)
	f.enable(t, "Upper", `editor.setContent(editor.getContent().toUpperCase())`)

	assert.Equal(t, "<P>START</P>", f.doc.content)
}

func TestJS_OnlyEditorAndConsoleAreExposed(t *testing.T) {
	f := newFixture(t)
	f.enable(t, "Probe", `
		const names = ["require", "setTimeout", "setInterval", "process", "module", "fetch"];
		editor.setContent(names.filter(n => typeof globalThis[n] !== "undefined").join(","));
		console.log("probe", typeof editor);
	`)

	assert.Equal(t, "", f.doc.content)
}

func TestJS_TimersStopOnDisable(t *testing.T) {
	f := newFixture(t)
	id := f.enable(t, "Ticker", `
		let count = 0;
		editor.setInterval(() => {
			count++;
			editor.setContent(String(count));
		}, 10);
		editor.setTimeout(() => editor.setContent("late"), 500);
	`)

	f.clock.Advance(35 * time.Millisecond)
	assert.Equal(t, "3", f.doc.content)

	require.NoError(t, f.host.Disable(id))
	f.clock.Advance(time.Second)
	assert.Equal(t, "3", f.doc.content)
	assert.Zero(t, f.clock.Pending())
}

func TestJS_InfiniteIntervalIsClamped(t *testing.T) {
	f := newFixture(t)
	f.enable(t, "Forever", `
		let count = 0;
		editor.setInterval(() => editor.setContent(String(++count)), Infinity);
	`)

	f.clock.Advance(time.Hour)
	assert.Equal(t, "<p>start</p>", f.doc.content)
	f.clock.Advance(plugin.MaxDelay)
	assert.Equal(t, "1", f.doc.content)
}

func TestJS_ClearTimer(t *testing.T) {
	f := newFixture(t)
	f.enable(t, "Once", `
		const h = editor.setInterval(() => editor.setContent("interval"), 5);
		if (!editor.clearTimer(h)) throw new Error("clear failed");
		if (editor.clearTimer(h)) throw new Error("double clear");
		editor.setTimeout(() => editor.setContent("timeout"), 20);
	`)

	f.clock.Advance(10 * time.Millisecond)
	assert.Equal(t, "<p>start</p>", f.doc.content)
	f.clock.Advance(10 * time.Millisecond)
	assert.Equal(t, "timeout", f.doc.content)
}

func TestJS_DeactivateThenCleanupsInReverse(t *testing.T) {
	f := newFixture(t)
	id := f.enable(t, "Order", `
		editor.onCleanup(() => editor.setContent(editor.getContent() + "a"));
		editor.onCleanup(() => editor.setContent(editor.getContent() + "b"));
		function deactivate() {
			editor.setContent("d");
		}
	`)

	require.NoError(t, f.host.Disable(id))
	assert.Equal(t, "dba", f.doc.content)
}

func TestJS_TimerExceptionIsReportedAndTimerStaysCancellable(t *testing.T) {
	f := newFixture(t)
	id := f.enable(t, "Faulty", `
		editor.setInterval(() => { throw new Error("tick failed"); }, 10);
	`)

	f.clock.Advance(25 * time.Millisecond)
	recent := f.diag.Recent()
	require.Len(t, recent, 2)
	var execErr *plugin.ExecutionError
	require.ErrorAs(t, recent[0], &execErr)
	assert.Equal(t, plugin.PhaseTimer, execErr.Phase)
	assert.Contains(t, execErr.Error(), "tick failed")

	require.NoError(t, f.host.Disable(id))
	assert.Zero(t, f.clock.Pending())
}

func TestJS_ActivationErrorReleasesHandles(t *testing.T) {
	f := newFixture(t)
	id, err := f.host.Register("Broken", "", `
		editor.setInterval(() => editor.setContent("leak"), 1);
		throw new Error("boom");
	`)
	require.NoError(t, err)

	err = f.host.Enable(id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	f.clock.Advance(time.Second)
	assert.Equal(t, "<p>start</p>", f.doc.content)
	assert.Zero(t, f.clock.Pending())
}

func TestJS_CallsAfterTeardownThrow(t *testing.T) {
	f := newFixture(t)
	id := f.enable(t, "Late", `
		editor.onCleanup(() => {
			try {
				editor.setTimeout(() => {}, 1);
			} catch (e) {
				editor.setContent("rejected");
			}
		});
	`)

	require.NoError(t, f.host.Disable(id))
	assert.Equal(t, "rejected", f.doc.content)
	assert.Zero(t, f.clock.Pending())
}

func TestJS_WatchdogInterruptsRunawayCode(t *testing.T) {
	f := newFixture(t, WithExecutionTimeout(50*time.Millisecond))
	id, err := f.host.Register("Spin", "", `for (;;) {}`)
	require.NoError(t, err)

	err = f.host.Enable(id)
	assert.ErrorIs(t, err, ErrExecutionTimeout)

	info, err := f.host.Get(id)
	require.NoError(t, err)
	assert.Equal(t, plugin.StateDisabled, info.State)
}

func TestJS_EventSubscriptionEndsWithDisable(t *testing.T) {
	f := newFixture(t)
	id := f.enable(t, "Listener", `
		editor.on("change", p => editor.setContent(p.previousContent + "|" + p.content));
	`)
	assert.Equal(t, 1, f.bus.Count(event.Change))

	require.NoError(t, f.bus.Publish(context.Background(), event.NewChange("<p>b</p>", "<p>a</p>")))
	assert.Equal(t, "<p>a</p>|<p>b</p>", f.doc.content)

	require.NoError(t, f.host.Disable(id))
	assert.Zero(t, f.bus.Count(event.Change))
	require.NoError(t, f.bus.Publish(context.Background(), event.NewChange("<p>c</p>", "<p>b</p>")))
	assert.Equal(t, "<p>a</p>|<p>b</p>", f.doc.content)
}
