package events

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus() *Bus {
	return NewBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestEmit_FanOut(t *testing.T) {
	bus := newTestBus()
	first, cancelFirst := bus.Subscribe(1)
	defer cancelFirst()
	second, cancelSecond := bus.Subscribe(1)
	defer cancelSecond()

	bus.Emit(Event{Type: Refresh})

	assert.Equal(t, Event{Type: Refresh}, <-first)
	assert.Equal(t, Event{Type: Refresh}, <-second)
}

func TestEmit_DropsWhenFull(t *testing.T) {
	bus := newTestBus()
	ch, cancel := bus.Subscribe(1)
	defer cancel()

	bus.Emit(Event{Type: Refresh})
	bus.Emit(Event{Type: Refresh})

	assert.Len(t, ch, 1)
}

func TestSubscribe_Cancel(t *testing.T) {
	bus := newTestBus()
	ch, cancel := bus.Subscribe(1)

	cancel()
	cancel()
	bus.Emit(Event{Type: Refresh})

	_, ok := <-ch
	require.False(t, ok)
}

func TestEmit_NoSubscribers(t *testing.T) {
	assert.NotPanics(t, func() { newTestBus().Emit(Event{Type: Refresh}) })
}

func TestCount(t *testing.T) {
	bus := newTestBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	counter := bus.Count(ctx, Refresh)
	bus.Emit(Event{Type: Refresh})
	bus.Emit(Event{Type: "other"})
	bus.Emit(Event{Type: Refresh})

	assert.Eventually(t, func() bool { return counter.Value() == 2 }, time.Second, 5*time.Millisecond)
}
