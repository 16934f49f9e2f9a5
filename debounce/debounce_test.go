package debounce

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestTrigger_OnlyLastCallFires(t *testing.T) {
	d := New(30 * time.Millisecond)

	var calls atomic.Int32
	var last atomic.Value
	fired := make(chan struct{}, 1)
	for _, q := range []string{"d", "du", "dun", "dune"} {
		d.Trigger(func() {
			calls.Add(1)
			last.Store(q)
			fired <- struct{}{}
		})
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("debounced call never fired")
	}
	// Give a stray timer the chance to fire.
	time.Sleep(60 * time.Millisecond)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "dune", last.Load())
	assert.False(t, d.Pending())
}

func TestStop_CancelsPendingCall(t *testing.T) {
	d := New(20 * time.Millisecond)

	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })
	assert.True(t, d.Pending())
	d.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, calls.Load())
	assert.False(t, d.Pending())
}

func TestTrigger_SpacedCallsEachFire(t *testing.T) {
	d := New(5 * time.Millisecond)

	done := make(chan struct{}, 2)
	d.Trigger(func() { done <- struct{}{} })
	<-done
	d.Trigger(func() { done <- struct{}{} })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second call never fired")
	}
}
