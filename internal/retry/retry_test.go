package retry

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithBackoff(t *testing.T) {
	t.Run("succeeds after failures", func(t *testing.T) {
		calls := 0
		err := withBackoff("launch", 3, time.Millisecond, func() error {
			calls++
			if calls < 3 {
				return errors.New("not yet")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("wraps last error", func(t *testing.T) {
		sentinel := errors.New("refused")
		err := withBackoff("launch", 2, time.Millisecond, func() error { return sentinel })
		require.Error(t, err)
		assert.ErrorIs(t, err, sentinel)
		assert.Contains(t, err.Error(), "launch failed after 2 retries")
	})
}

func TestPoll(t *testing.T) {
	t.Run("done on third call", func(t *testing.T) {
		calls := 0
		ok, err := Poll(time.Second, time.Millisecond, func() (bool, error) {
			calls++
			return calls == 3, nil
		})
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 3, calls)
	})

	t.Run("error stops polling", func(t *testing.T) {
		sentinel := errors.New("boom")
		calls := 0
		ok, err := Poll(time.Second, time.Millisecond, func() (bool, error) {
			calls++
			return false, sentinel
		})
		assert.ErrorIs(t, err, sentinel)
		assert.False(t, ok)
		assert.Equal(t, 1, calls)
	})

	t.Run("times out without overrunning", func(t *testing.T) {
		timeout := 120 * time.Millisecond
		interval := 50 * time.Millisecond
		start := time.Now()
		ok, err := Poll(timeout, interval, func() (bool, error) { return false, nil })
		elapsed := time.Since(start)

		require.NoError(t, err)
		assert.False(t, ok)
		assert.GreaterOrEqual(t, elapsed, timeout)
		assert.Less(t, elapsed, timeout+interval+50*time.Millisecond)
	})

	t.Run("zero timeout still checks once", func(t *testing.T) {
		calls := 0
		ok, err := Poll(0, time.Second, func() (bool, error) {
			calls++
			return true, nil
		})
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 1, calls)
	})
}
