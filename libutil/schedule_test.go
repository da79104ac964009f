package libutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSchedulerRunsDueJobs(t *testing.T) {
	start := time.Unix(1000, 0)
	s := &Scheduler{now: func() time.Time { return start }}

	var sweeps, stats int
	s.Every(10*time.Second, func() { sweeps++ })
	s.Every(2*time.Second, func() { stats++ })

	assert.Equal(t, 0, s.Run(start.Add(time.Second)))
	assert.Equal(t, 1, s.Run(start.Add(2*time.Second)))
	assert.Equal(t, 0, sweeps)
	assert.Equal(t, 1, stats)

	for sec := 3; sec <= 10; sec++ {
		s.Run(start.Add(time.Duration(sec) * time.Second))
	}
	assert.Equal(t, 1, sweeps)
	assert.Equal(t, 5, stats)
}

func TestSchedulerCatchUpRunsOnce(t *testing.T) {
	start := time.Unix(0, 0)
	s := &Scheduler{now: func() time.Time { return start }}

	n := 0
	s.Every(time.Second, func() { n++ })

	s.Run(start.Add(time.Minute))
	assert.Equal(t, 1, n)
	s.Run(start.Add(time.Minute + 500*time.Millisecond))
	assert.Equal(t, 1, n)
	s.Run(start.Add(time.Minute + time.Second))
	assert.Equal(t, 2, n)
}

func TestCleanupRunsInReverse(t *testing.T) {
	var order []int
	var c Cleanup
	c.Add(func() { order = append(order, 1) })
	c.Add(func() { order = append(order, 2) })
	c.Run()
	assert.Equal(t, []int{2, 1}, order)
	assert.Empty(t, c)
}

func TestSphericalDirection(t *testing.T) {
	up := SphericalDirection(0, 0)
	assert.InDelta(t, 1, up.Y(), 1e-6)

	horizon := SphericalDirection(90*Deg2Rad, 0)
	assert.InDelta(t, 1, horizon.X(), 1e-6)
	assert.InDelta(t, 0, horizon.Y(), 1e-6)
}
