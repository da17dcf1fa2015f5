package repository

import (
	"context"
	"sync"
	"time"

	"fieldbook/internal/models"
)

type MemorySlotCache struct {
	entries sync.Map
	ttl     time.Duration
}

type cacheEntry struct {
	slots     []models.SlotView
	expiresAt time.Time
}

func NewMemorySlotCache(ttl time.Duration) *MemorySlotCache {
	return &MemorySlotCache{
		ttl: ttl,
	}
}

func (r *MemorySlotCache) GetDay(ctx context.Context, fieldID int64, day time.Time) ([]models.SlotView, error) {
	val, ok := r.entries.Load(slotKey(fieldID, day))
	if !ok {
		return nil, nil
	}
	entry := val.(*cacheEntry)
	if time.Now().After(entry.expiresAt) {
		r.entries.Delete(slotKey(fieldID, day))
		return nil, nil
	}
	return entry.slots, nil
}

func (r *MemorySlotCache) SetDay(ctx context.Context, fieldID int64, day time.Time, slots []models.SlotView) error {
	r.entries.Store(slotKey(fieldID, day), &cacheEntry{
		slots:     slots,
		expiresAt: time.Now().Add(r.ttl),
	})
	return nil
}

func (r *MemorySlotCache) InvalidateDay(ctx context.Context, fieldID int64, day time.Time) error {
	r.entries.Delete(slotKey(fieldID, day))
	return nil
}
