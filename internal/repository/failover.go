package repository

import (
	"context"
	"sync/atomic"
	"time"

	"fieldbook/internal/domain"
	"fieldbook/internal/models"

	"github.com/rs/zerolog"
)

type FailoverSlotCache struct {
	primary   domain.SlotCache
	fallback  domain.SlotCache
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck time.Time
}

func NewFailoverSlotCache(primary, fallback domain.SlotCache, logger *zerolog.Logger) *FailoverSlotCache {
	return &FailoverSlotCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverSlotCache) GetDay(ctx context.Context, fieldID int64, day time.Time) ([]models.SlotView, error) {
	if !r.isDown.Load() {
		slots, err := r.primary.GetDay(ctx, fieldID, day)
		if err == nil {
			return slots, nil
		}
		r.logger.Error().Err(err).Msg("Primary slot cache failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	// Try to recover after 1 minute
	if r.isDown.Load() && time.Since(r.lastCheck) > time.Minute {
		slots, err := r.primary.GetDay(ctx, fieldID, day)
		if err == nil {
			r.isDown.Store(false)
			return slots, nil
		}
		r.lastCheck = time.Now()
	}

	return r.fallback.GetDay(ctx, fieldID, day)
}

func (r *FailoverSlotCache) SetDay(ctx context.Context, fieldID int64, day time.Time, slots []models.SlotView) error {
	if !r.isDown.Load() {
		err := r.primary.SetDay(ctx, fieldID, day, slots)
		if err == nil {
			return nil
		}
		r.logger.Error().Err(err).Msg("Primary slot cache failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	return r.fallback.SetDay(ctx, fieldID, day, slots)
}

func (r *FailoverSlotCache) InvalidateDay(ctx context.Context, fieldID int64, day time.Time) error {
	if !r.isDown.Load() {
		err := r.primary.InvalidateDay(ctx, fieldID, day)
		if err == nil {
			return nil
		}
		r.logger.Error().Err(err).Msg("Primary slot cache failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	return r.fallback.InvalidateDay(ctx, fieldID, day)
}
