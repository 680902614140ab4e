package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker_Acquire(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLocker()

	release, ok, err := l.Acquire(ctx, "booking-run", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.Acquire(ctx, "booking-run", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "lock should be held")

	_, ok, _ = l.Acquire(ctx, "other", time.Minute)
	assert.True(t, ok, "keys are independent")

	release()
	release2, ok, err := l.Acquire(ctx, "booking-run", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	// A stale release must not drop the new holder's lock.
	release()
	_, ok, _ = l.Acquire(ctx, "booking-run", time.Minute)
	assert.False(t, ok)
	release2()
}

func TestMemoryLocker_Expires(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLocker()

	_, ok, _ := l.Acquire(ctx, "booking-run", 20*time.Millisecond)
	require.True(t, ok)
	time.Sleep(40 * time.Millisecond)
	_, ok, _ = l.Acquire(ctx, "booking-run", time.Minute)
	assert.True(t, ok)
}

func TestMemoryLocker_MarkSeen(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLocker()

	seen, err := l.Seen(ctx, "booked:2025-01-15")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, l.Mark(ctx, "booked:2025-01-15", time.Hour))
	seen, err = l.Seen(ctx, "booked:2025-01-15")
	require.NoError(t, err)
	assert.True(t, seen)

	// Marks and locks live in separate namespaces.
	_, ok, _ := l.Acquire(ctx, "booked:2025-01-15", time.Minute)
	assert.True(t, ok)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "roombooker:lock:booking-run", lockKey("booking-run"))
	assert.Equal(t, "roombooker:mark:booked:2025-01-15", markKey("booked:2025-01-15"))
}
