package sessiondriver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualScheduler_FiresInOrder(t *testing.T) {
	s := NewManualScheduler()
	var got []string
	s.Every(time.Second, func() { got = append(got, "tick") })
	cancel := s.Every(3*time.Second, func() { got = append(got, "save") })

	s.Advance(3 * time.Second)
	assert.Equal(t, []string{"tick", "tick", "tick", "save"}, got)

	cancel()
	got = nil
	s.Advance(3 * time.Second)
	assert.Equal(t, []string{"tick", "tick", "tick"}, got)
	assert.Equal(t, 1, s.Active())
}

func TestTickerScheduler_Cancel(t *testing.T) {
	fired := make(chan struct{}, 10)
	cancel := TickerScheduler{}.Every(5*time.Millisecond, func() { fired <- struct{}{} })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("ticker never fired")
	}
	cancel()
	cancel()
}

func TestTimer(t *testing.T) {
	tm := Timer{Remaining: 2}
	assert.False(t, tm.IsOverdue())
	tm.Tick()
	tm.Tick()
	assert.True(t, tm.IsOverdue())
	assert.Equal(t, 0, tm.Overdue)
	tm.Tick()
	assert.Equal(t, 1, tm.Overdue)
	assert.Equal(t, 0, tm.Remaining)
}
