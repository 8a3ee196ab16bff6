package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToTypedSubscriber(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch, unsub := Subscribe[DocumentLoaded](bus, 1)
	defer unsub()

	require.NoError(t, bus.Publish(context.Background(), DocumentLoaded{Path: "/tmp/main.tex"}))

	select {
	case got := <-ch:
		require.Equal(t, "/tmp/main.tex", got.Path)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestPublishSkipsOtherTypes(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch, unsub := Subscribe[DocumentClosed](bus, 1)
	defer unsub()

	require.NoError(t, bus.Publish(context.Background(), DocumentLoaded{Path: "x"}))

	select {
	case <-ch:
		t.Fatal("received event of wrong type")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch, unsub := Subscribe[DocumentLoaded](bus, 1)
	unsub()

	require.NoError(t, bus.Publish(context.Background(), DocumentLoaded{Path: "x"}))

	_, open := <-ch
	require.False(t, open)
}

func TestPublishAfterCloseFails(t *testing.T) {
	bus := NewBus()
	bus.Close()

	err := bus.Publish(context.Background(), DocumentLoaded{})
	require.ErrorIs(t, err, ErrClosed)
}

func TestCloseClosesSubscriberChannels(t *testing.T) {
	bus := NewBus()
	ch, _ := Subscribe[PipelineTriggered](bus, 1)

	bus.Close()

	_, open := <-ch
	require.False(t, open)
}
