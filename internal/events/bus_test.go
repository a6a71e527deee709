package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/alsad"
	"github.com/gen2brain/alsad/internal/system"
	"github.com/gen2brain/alsad/iodev"
)

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()

	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	var zero T

	return zero
}

func TestBusPublishSubscribe(t *testing.T) {
	bus := New()
	defer bus.Close()

	received := make(chan CardAddedEvent, 1)
	unsub := bus.Subscribe(func(e CardAddedEvent) { received <- e })
	defer unsub()

	bus.Publish(CardAddedEvent{Card: 1, Name: "USB Audio", USB: true, Devices: 2})

	got := receive(t, received)
	assert.Equal(t, CardAddedEvent{Card: 1, Name: "USB Audio", USB: true, Devices: 2}, got)
}

func TestBusMultipleSubscribers(t *testing.T) {
	bus := New()
	defer bus.Close()

	r1 := make(chan CardRemovedEvent, 1)
	r2 := make(chan CardRemovedEvent, 1)
	defer bus.Subscribe(func(e CardRemovedEvent) { r1 <- e })()
	defer bus.Subscribe(func(e CardRemovedEvent) { r2 <- e })()

	bus.Publish(CardRemovedEvent{Card: 3})

	assert.EqualValues(t, 3, receive(t, r1).Card)
	assert.EqualValues(t, 3, receive(t, r2).Card)
}

func TestBusUnsubscribe(t *testing.T) {
	bus := New()
	defer bus.Close()

	received := make(chan SevereUnderrunEvent, 1)
	unsub := bus.Subscribe(func(e SevereUnderrunEvent) { received <- e })
	unsub()

	bus.Publish(SevereUnderrunEvent{Device: "x"})

	select {
	case <-received:
		t.Fatal("received after unsubscribe")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBusUnknownHandler(t *testing.T) {
	bus := New()
	defer bus.Close()

	unsub := bus.Subscribe(func(string) {})
	assert.NotPanics(t, unsub)
}

func TestNotifier(t *testing.T) {
	bus := New()
	defer bus.Close()

	nodes := make(chan NodesChangedEvent, 4)
	active := make(chan ActiveNodeChangedEvent, 4)
	defer bus.Subscribe(func(e NodesChangedEvent) { nodes <- e })()
	defer bus.Subscribe(func(e ActiveNodeChangedEvent) { active <- e })()

	d, err := iodev.New(iodev.Params{
		Card:      alsad.CardInfo{Index: 1, Type: alsad.CardTypeInternal, Name: "HDA Intel PCH"},
		PCMName:   "ALC3246 Analog",
		Direction: alsad.Output,
		First:     true,
		System:    system.New(),
		Notifier:  NewNotifier(bus),
	})
	require.NoError(t, err)
	require.NoError(t, d.LegacyCompleteInit())

	ev := receive(t, nodes)
	assert.EqualValues(t, 1, ev.Card)
	assert.Equal(t, d.Name(), ev.Device)
	assert.Equal(t, 1, ev.Nodes)

	a := receive(t, active)
	speaker := d.ActiveNode()
	assert.Equal(t, NodeRef{Card: 1, Device: d.Name(), Node: iodev.InternalSpeaker, Index: speaker.Index(), StableID: speaker.StableID()}, a.NodeRef)
}
