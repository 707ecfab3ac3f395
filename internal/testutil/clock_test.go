package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeClock_Frozen(t *testing.T) {
	c := NewFakeClock(Morning)
	assert.Equal(t, Morning, c.Now())
	assert.Equal(t, Morning, c.Now(), "does not move by itself")
}

func TestFakeClock_AdvanceAndSet(t *testing.T) {
	c := NewFakeClock(Morning)

	got := c.Advance(time.Hour)
	assert.Equal(t, Morning.Add(time.Hour), got)
	assert.Equal(t, got, c.Now())

	c.Set(Deadline)
	assert.Equal(t, Deadline, c.Now())

	c.Set(Morning)
	assert.Equal(t, Morning, c.Now(), "can go backwards")
}

func TestFakeClock_ThreadSafe(t *testing.T) {
	c := NewFakeClock(Morning)
	const goroutines = 50

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Advance(time.Second)
			_ = c.Now()
		}()
	}
	wg.Wait()

	assert.Equal(t, Morning.Add(goroutines*time.Second), c.Now())
}

func TestMenu_IndependentCopies(t *testing.T) {
	a := Menu()
	b := Menu()
	a.SideDishes[0] = "Rice"
	assert.Equal(t, "Fries", b.SideDishes[0])
}
