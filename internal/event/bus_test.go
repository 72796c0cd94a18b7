package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memtrace/memtrace/internal/core/models"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(4)
	defer cancel()

	sent := models.NewEvent(models.EventAnomaly, time.Now())
	bus.Publish(sent)

	select {
	case got := <-ch:
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, models.EventAnomaly, got.Kind)
	default:
		t.Fatal("expected a buffered event")
	}
}

func TestBusFanout(t *testing.T) {
	bus := NewBus()
	a, cancelA := bus.Subscribe(1)
	b, cancelB := bus.Subscribe(1)
	defer cancelA()
	defer cancelB()

	bus.Publish(models.NewEvent(models.EventSuggestions, time.Now()))
	assert.Len(t, a, 1)
	assert.Len(t, b, 1)
}

func TestBusDropsForSlowSubscribers(t *testing.T) {
	bus := NewBus()
	_, cancel := bus.Subscribe(1)
	defer cancel()

	bus.Publish(models.NewEvent(models.EventAnomaly, time.Now()))
	bus.Publish(models.NewEvent(models.EventAnomaly, time.Now()))
	bus.Publish(models.NewEvent(models.EventAnomaly, time.Now()))

	assert.Equal(t, uint64(2), bus.Dropped())
}

func TestBusCancel(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(1)

	cancel()
	cancel() // safe twice

	_, open := <-ch
	assert.False(t, open)

	// Publishing after cancel reaches nobody and drops nothing.
	bus.Publish(models.NewEvent(models.EventAnomaly, time.Now()))
	assert.Zero(t, bus.Dropped())
}

func TestBusClose(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(1)
	defer cancel()

	bus.Close()

	_, open := <-ch
	require.False(t, open, "close must close subscriber channels")

	// Subscribe after close yields a closed channel.
	late, _ := bus.Subscribe(1)
	_, open = <-late
	assert.False(t, open)

	bus.Publish(models.NewEvent(models.EventAnomaly, time.Now())) // no panic
}
