package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/inkwell/internal/logging"
)

type recorder struct {
	errs []error
}

func (r *recorder) Report(err error) { r.errs = append(r.errs, err) }

func TestBus_SubscribeRejectsUnknownName(t *testing.T) {
	bus := NewBus()

	_, err := bus.Subscribe(Name("keyup"), HandlerFunc(func(context.Context, Event) error { return nil }))
	require.ErrorIs(t, err, ErrInvalidEventName)

	_, err = bus.Subscribe(Input, nil)
	require.ErrorIs(t, err, ErrNilHandler)
}

func TestBus_PublishInRegistrationOrder(t *testing.T) {
	bus := NewBus()
	var order []string

	for _, tag := range []string{"a", "b", "c"} {
		tag := tag
		_, err := bus.SubscribeFunc(Input, func(ctx context.Context, evt Event) error {
			order = append(order, tag+":"+evt.Content)
			return nil
		})
		require.NoError(t, err)
	}

	require.NoError(t, bus.Publish(context.Background(), NewInput("x")))
	assert.Equal(t, []string{"a:x", "b:x", "c:x"}, order)
}

func TestBus_PublishOnlyMatchingName(t *testing.T) {
	bus := NewBus()
	calls := 0
	_, err := bus.SubscribeFunc(Focus, func(context.Context, Event) error {
		calls++
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), NewBlur()))
	assert.Zero(t, calls)

	require.ErrorIs(t, bus.Publish(context.Background(), Event{Name: "nope"}), ErrInvalidEventName)
}

func TestBus_DuplicateRegistrationIsAdditive(t *testing.T) {
	bus := NewBus()
	calls := 0
	handler := HandlerFunc(func(context.Context, Event) error {
		calls++
		return nil
	})

	h1, err := bus.Subscribe(Load, handler)
	require.NoError(t, err)
	h2, err := bus.Subscribe(Load, handler)
	require.NoError(t, err)
	require.NotEqual(t, h1, h2)

	require.NoError(t, bus.Publish(context.Background(), NewLoad()))
	assert.Equal(t, 2, calls)

	require.NoError(t, bus.Unsubscribe(Load, h1))
	require.NoError(t, bus.Publish(context.Background(), NewLoad()))
	assert.Equal(t, 3, calls)
}

func TestBus_UnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus()
	calls := 0
	h, err := bus.SubscribeFunc(Change, func(context.Context, Event) error {
		calls++
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Unsubscribe(Change, h))
	for i := 0; i < 3; i++ {
		require.NoError(t, bus.Publish(context.Background(), NewChange("a", "b")))
	}
	assert.Zero(t, calls)
	assert.Zero(t, bus.Count(Change))
}

func TestBus_UnsubscribeAbsentIsNoop(t *testing.T) {
	bus := NewBus()
	require.NoError(t, bus.Unsubscribe(Input, Handle(42)))
	require.ErrorIs(t, bus.Unsubscribe(Name("bogus"), Handle(1)), ErrInvalidEventName)
}

func TestBus_HandlerFailuresAreIsolated(t *testing.T) {
	rec := &recorder{}
	bus := NewBus(WithReporter(rec))
	boom := errors.New("boom")
	reached := false

	_, _ = bus.SubscribeFunc(Input, func(context.Context, Event) error { return boom })
	_, _ = bus.SubscribeFunc(Input, func(context.Context, Event) error { panic("listener bug") })
	_, _ = bus.SubscribeFunc(Input, func(context.Context, Event) error {
		reached = true
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), NewInput("x")))
	assert.True(t, reached)
	require.Len(t, rec.errs, 2)

	var he *HandlerError
	require.ErrorAs(t, rec.errs[0], &he)
	assert.ErrorIs(t, he, boom)
	assert.False(t, he.Panicked)
	assert.Equal(t, Input, he.Event)

	require.ErrorAs(t, rec.errs[1], &he)
	assert.True(t, he.Panicked)
	assert.NotEmpty(t, he.Stack)

	stats := bus.Stats()
	assert.Equal(t, uint64(1), stats.HandlerErrors)
	assert.Equal(t, uint64(1), stats.HandlerPanics)
	assert.Equal(t, uint64(3), stats.HandlersExecuted)
}

func TestBus_MutationDuringDispatchUsesSnapshot(t *testing.T) {
	bus := NewBus()
	var order []string
	var second Handle

	_, err := bus.SubscribeFunc(Input, func(context.Context, Event) error {
		order = append(order, "first")
		require.NoError(t, bus.Unsubscribe(Input, second))
		_, err := bus.SubscribeFunc(Input, func(context.Context, Event) error {
			order = append(order, "late")
			return nil
		})
		return err
	})
	require.NoError(t, err)
	second, err = bus.SubscribeFunc(Input, func(context.Context, Event) error {
		order = append(order, "second")
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), NewInput("")))
	assert.Equal(t, []string{"first", "second"}, order)

	order = nil
	require.NoError(t, bus.Publish(context.Background(), NewInput("")))
	assert.Equal(t, []string{"first", "late"}, order)
}

func TestBus_ClearDropsEverything(t *testing.T) {
	bus := NewBus(WithLogger(logging.Nop()))
	for _, n := range Names() {
		_, err := bus.SubscribeFunc(n, func(context.Context, Event) error { return nil })
		require.NoError(t, err)
	}
	assert.Equal(t, 5, bus.Stats().ActiveSubscribers)

	bus.Clear()
	assert.Zero(t, bus.Stats().ActiveSubscribers)
}

func TestBus_CancelledContextStillReachesEveryHandler(t *testing.T) {
	bus := NewBus()
	var seen []error
	for range 2 {
		_, _ = bus.SubscribeFunc(Focus, func(ctx context.Context, _ Event) error {
			seen = append(seen, ctx.Err())
			return nil
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, bus.Publish(ctx, NewFocus()))
	require.Len(t, seen, 2)
	assert.ErrorIs(t, seen[0], context.Canceled)
}

func TestBus_DeadlineDuringDispatchDoesNotSkipLaterHandlers(t *testing.T) {
	bus := NewBus()
	var delivered []string
	_, _ = bus.SubscribeFunc(Input, func(ctx context.Context, _ Event) error {
		<-ctx.Done()
		delivered = append(delivered, "slow")
		return nil
	})
	_, _ = bus.SubscribeFunc(Input, func(context.Context, Event) error {
		delivered = append(delivered, "fast")
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	require.NoError(t, bus.Publish(ctx, NewInput("x")))
	assert.Equal(t, []string{"slow", "fast"}, delivered)
}

func TestEvent_Payload(t *testing.T) {
	assert.Empty(t, NewLoad().Payload())
	assert.Empty(t, NewFocus().Payload())
	assert.Empty(t, NewBlur().Payload())
	assert.Equal(t, map[string]any{"content": "<p>a</p>"}, NewInput("<p>a</p>").Payload())
	assert.Equal(t,
		map[string]any{"content": "<h1>T</h1>", "previousContent": ""},
		NewChange("<h1>T</h1>", "").Payload(),
	)
}

func TestParseName(t *testing.T) {
	for _, n := range Names() {
		got, err := ParseName(string(n))
		require.NoError(t, err)
		assert.Equal(t, n, got)
	}
	_, err := ParseName("submit")
	assert.ErrorIs(t, err, ErrInvalidEventName)
}
