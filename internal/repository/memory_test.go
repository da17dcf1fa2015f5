package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySlotCache(t *testing.T) {
	cache := NewMemorySlotCache(time.Hour)
	ctx := context.Background()
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	got, err := cache.GetDay(ctx, 1, day)
	require.NoError(t, err)
	assert.Nil(t, got)

	slots := testSlots(day)
	require.NoError(t, cache.SetDay(ctx, 1, day, slots))

	got, err = cache.GetDay(ctx, 1, day)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "noon", got[1].Label)

	// Другой день того же поля кэшируется отдельно
	got, err = cache.GetDay(ctx, 1, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, cache.InvalidateDay(ctx, 1, day))
	got, err = cache.GetDay(ctx, 1, day)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemorySlotCacheTTL(t *testing.T) {
	cache := NewMemorySlotCache(time.Millisecond)
	ctx := context.Background()
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, cache.SetDay(ctx, 1, day, testSlots(day)))
	time.Sleep(5 * time.Millisecond)

	got, err := cache.GetDay(ctx, 1, day)
	require.NoError(t, err)
	assert.Nil(t, got, "expired entry must behave as a miss")
}
