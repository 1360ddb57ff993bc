package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"xauengine/internal/events"
)

func TestCanTradeInitiallyTrue(t *testing.T) {
	b := NewBreaker(5*time.Second, events.NewEventBus())
	assert.True(t, b.CanTrade())
}

func TestThreeConsecutiveOfflineCyclesHalts(t *testing.T) {
	b := NewBreaker(5*time.Second, events.NewEventBus())
	b.RecordCycle(1, time.Second, false)
	b.RecordCycle(2, time.Second, false)
	assert.True(t, b.CanTrade())
	b.RecordCycle(3, time.Second, false)
	assert.False(t, b.CanTrade())
	assert.Equal(t, StateHaltedOffline, b.State())
}

func TestReconnectionResumesTrading(t *testing.T) {
	b := NewBreaker(5*time.Second, events.NewEventBus())
	for i := int64(1); i <= 3; i++ {
		b.RecordCycle(i, time.Second, false)
	}
	require := assert.New(t)
	require.False(b.CanTrade())
	b.RecordCycle(4, time.Second, true)
	require.True(b.CanTrade())
	require.Equal(0, b.ConsecutiveOffline())
}

func TestOverrunWidensIntervalAndEmitsSlowCycle(t *testing.T) {
	bus := events.NewEventBus()
	fired := make(chan events.Event, 1)
	bus.Subscribe(events.EventSlowCycle, func(e events.Event) { fired <- e })

	b := NewBreaker(1*time.Second, bus)
	next := b.RecordCycle(1, 3*time.Second, true)
	assert.Equal(t, 3*time.Second, next)

	select {
	case e := <-fired:
		assert.Equal(t, events.EventSlowCycle, e.Type)
	case <-time.After(time.Second):
		t.Fatal("expected SlowCycle event")
	}
}

func TestEmergencyStopLatchRequiresExplicitResume(t *testing.T) {
	b := NewBreaker(5*time.Second, events.NewEventBus())
	b.TripEmergencyStop()
	assert.False(t, b.CanTrade())
	b.RecordCycle(1, time.Second, true)
	assert.False(t, b.CanTrade(), "only explicit resume clears emergency halt")
	b.ResumeFromEmergencyStop()
	assert.True(t, b.CanTrade())
}

func TestNotConnectedBacksOffInterval(t *testing.T) {
	b := NewBreaker(5*time.Second, events.NewEventBus())
	next := b.RecordCycle(1, 100*time.Millisecond, false)
	assert.Equal(t, backoffInterval, next)
}
