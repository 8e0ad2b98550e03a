package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	assert.NotNil(t, New())
}

func TestNow(t *testing.T) {
	before := time.Now()
	assert.False(t, New().Now().Before(before))
}

func TestTimer(t *testing.T) {
	t.Run("fires", func(t *testing.T) {
		timer := New().NewTimer(time.Millisecond)
		select {
		case <-timer.C():
		case <-time.After(time.Second):
			t.Fatal("timer did not fire")
		}
	})

	t.Run("stop", func(t *testing.T) {
		timer := New().NewTimer(time.Hour)
		assert.True(t, timer.Stop())
	})
}

func TestTicker(t *testing.T) {
	ticker := New().NewTicker(time.Millisecond)
	defer ticker.Stop()
	for i := 0; i < 2; i++ {
		select {
		case <-ticker.C():
		case <-time.After(time.Second):
			t.Fatal("ticker did not tick")
		}
	}
}
