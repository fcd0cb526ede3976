package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clock is a manually-advanced fake clock for deterministic scheduler tests.
type clock struct{ ms int64 }

func (c *clock) now() int64  { return c.ms }
func (c *clock) advance(d int64) { c.ms += d }

func TestSpecScenario4OrderingAndExactlyOnce(t *testing.T) {
	// scheduleAfter(3ms, A) then scheduleAfter(2ms, B); after advancing
	// 5ms and calling Run, both run exactly once, in order B then A.
	c := &clock{}
	s := New(c.now)

	var order []string
	runCounts := map[string]int{}

	s.ScheduleAfter("A", 3, High, func(ctx interface{}) (int64, bool) {
		name := ctx.(string)
		order = append(order, name)
		runCounts[name]++
		return 0, false
	}, nil)
	s.ScheduleAfter("B", 2, High, func(ctx interface{}) (int64, bool) {
		name := ctx.(string)
		order = append(order, name)
		runCounts[name]++
		return 0, false
	}, nil)

	c.advance(5)
	s.Run()

	require.Equal(t, []string{"B", "A"}, order)
	assert.Equal(t, 1, runCounts["A"])
	assert.Equal(t, 1, runCounts["B"])
	assert.Equal(t, 0, s.Len())
}

func TestRunDoesNothingBeforeDeadline(t *testing.T) {
	c := &clock{}
	s := New(c.now)
	ran := false
	s.ScheduleAfter(nil, 10, High, func(interface{}) (int64, bool) {
		ran = true
		return 0, false
	}, nil)

	c.advance(5)
	s.Run()
	assert.False(t, ran)
	assert.Equal(t, 1, s.Len())

	c.advance(10)
	s.Run()
	assert.True(t, ran)
}

func TestLowDrainedBeforeHigh(t *testing.T) {
	c := &clock{}
	s := New(c.now)
	var order []string
	s.ScheduleOnce("high", High, func(ctx interface{}) (int64, bool) {
		order = append(order, ctx.(string))
		return 0, false
	}, nil)
	s.ScheduleOnce("low", Low, func(ctx interface{}) (int64, bool) {
		order = append(order, ctx.(string))
		return 0, false
	}, nil)

	s.Run()
	assert.Equal(t, []string{"low", "high"}, order)
}

func TestRepeatingTaskAlwaysGoesToLow(t *testing.T) {
	// Even a High-priority task that requests a repeat is re-queued into
	// Low, per spec.md's flagged (and preserved) quirk.
	c := &clock{}
	s := New(c.now)
	runs := 0
	s.ScheduleOnce("tick", High, func(ctx interface{}) (int64, bool) {
		runs++
		if runs < 2 {
			return 1, true
		}
		return 0, false
	}, nil)

	s.Run() // first run happens from High, reschedules into Low at +1ms
	assert.Equal(t, 1, runs)
	require.Equal(t, 1, s.Len())
	assert.Equal(t, 0, s.high.Len())
	assert.Equal(t, 1, s.low.Len())

	c.advance(1)
	s.Run()
	assert.Equal(t, 2, runs)
	assert.Equal(t, 0, s.Len())
}

func TestRepeatWithNonPositiveDelayPanics(t *testing.T) {
	c := &clock{}
	s := New(c.now)
	s.ScheduleOnce(nil, High, func(interface{}) (int64, bool) {
		return 0, true
	}, nil)

	assert.PanicsWithValue(t, ErrRepeatDelayMustBePositive, func() {
		s.Run()
	})
}

func TestCloseInvokesFinalizerExactlyOnceForPendingTasks(t *testing.T) {
	c := &clock{}
	s := New(c.now)
	finalized := map[string]int{}

	s.ScheduleAfter("a", 100, High, func(interface{}) (int64, bool) { return 0, false }, func(ctx interface{}) {
		finalized[ctx.(string)]++
	})
	s.ScheduleAfter("b", 50, Low, func(interface{}) (int64, bool) { return 0, false }, func(ctx interface{}) {
		finalized[ctx.(string)]++
	})

	require.Equal(t, 2, s.Len())
	s.Close()
	assert.Equal(t, 1, finalized["a"])
	assert.Equal(t, 1, finalized["b"])
	assert.Equal(t, 0, s.Len())

	// Close is idempotent: a second call must not re-invoke finalizers.
	s.Close()
	assert.Equal(t, 1, finalized["a"])
	assert.Equal(t, 1, finalized["b"])
}

func TestRunReturnsEarliestPendingHighDeadline(t *testing.T) {
	c := &clock{}
	s := New(c.now)
	s.ScheduleAfter("later", 100, High, func(interface{}) (int64, bool) { return 0, false }, nil)

	next := s.Run()
	require.NotNil(t, next)
	assert.Equal(t, int64(100), *next)
}

func TestRunReturnsNilWhenHighEmpty(t *testing.T) {
	c := &clock{}
	s := New(c.now)
	next := s.Run()
	assert.Nil(t, next)
}
