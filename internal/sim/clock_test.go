package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClock_StepsFor_Discrete(t *testing.T) {
	c := newClock(100, false, "", 1)

	assert.Equal(t, int64(100), c.StepsFor(1))
	assert.Equal(t, int64(2), c.StepsFor(0.015), "partial steps round up")
	assert.Equal(t, int64(1), c.StepsFor(0.0001), "a positive delta always advances")
	assert.Equal(t, int64(0), c.StepsFor(0))
	assert.Equal(t, int64(0), c.StepsFor(-1))
}

func TestClock_StepsFor_ContinuousMean(t *testing.T) {
	c := newClock(1000, true, "", 7)

	const draws = 2000
	var total int64
	for i := 0; i < draws; i++ {
		total += c.StepsFor(1)
	}
	mean := float64(total) / draws

	// The draw count is Poisson with mean 1000; the sample mean over 2000
	// draws is within a fraction of a standard deviation of that.
	assert.InDelta(t, 1000, mean, 50)
}

func TestClock_StepsFor_ContinuousVaries(t *testing.T) {
	c := newClock(1000, true, "", 7)

	first := c.StepsFor(1)
	varied := false
	for i := 0; i < 50; i++ {
		if c.StepsFor(1) != first {
			varied = true
			break
		}
	}
	assert.True(t, varied, "Poisson draws should not be constant")
}

func TestClock_StepsFor_ContinuousZeroDelta(t *testing.T) {
	c := newClock(1000, true, "", 7)
	assert.Equal(t, int64(0), c.StepsFor(0))
}
