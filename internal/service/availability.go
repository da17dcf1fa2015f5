package service

import (
	"context"
	"sort"
	"time"

	"fieldbook/internal/domain"
	"fieldbook/internal/metrics"
	"fieldbook/internal/models"

	"github.com/rs/zerolog"
)

// AvailabilityResolver builds the annotated slot list for a field's day.
// Writes never consult it; the booking path re-checks inside the transaction.
type AvailabilityResolver struct {
	repo   domain.Repository
	cache  domain.SlotCache
	shifts models.ShiftCatalog
	logger *zerolog.Logger
}

func NewAvailabilityResolver(repo domain.Repository, cache domain.SlotCache, shifts models.ShiftCatalog, logger *zerolog.Logger) *AvailabilityResolver {
	if len(shifts) == 0 {
		shifts = models.DefaultShiftCatalog()
	}
	return &AvailabilityResolver{
		repo:   repo,
		cache:  cache,
		shifts: shifts,
		logger: logger,
	}
}

// ResolveDay returns the field's slots for one calendar day, ascending by
// start time. Overrides for the day replace the default shift catalog; a slot
// that overlaps an active booking is unavailable in full.
func (r *AvailabilityResolver) ResolveDay(ctx context.Context, fieldID int64, day time.Time) ([]models.SlotView, error) {
	day = day.UTC().Truncate(24 * time.Hour)
	metrics.IncAvailability()

	if r.cache != nil {
		cached, err := r.cache.GetDay(ctx, fieldID, day)
		if err != nil {
			r.logger.Warn().Err(err).Int64("field_id", fieldID).Msg("slot cache read error")
		} else if cached != nil {
			return cached, nil
		}
	}

	field, err := r.repo.GetField(ctx, fieldID)
	if err != nil {
		return nil, err
	}

	dayEnd := day.AddDate(0, 0, 1)
	overrides, err := r.repo.OverridesForRange(ctx, fieldID, day, dayEnd)
	if err != nil {
		return nil, err
	}

	slots := r.baseSlots(day, overrides, field.BasePrice)

	bookings, err := r.repo.ActiveBookingsInRange(ctx, fieldID, day, dayEnd)
	if err != nil {
		return nil, err
	}

	for i := range slots {
		for _, b := range bookings {
			if slots[i].Interval.Overlaps(b.Interval()) {
				id := b.ID
				slots[i].Available = false
				slots[i].BookingID = &id
				break
			}
		}
	}

	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].Interval.Start.Before(slots[j].Interval.Start)
	})

	if r.cache != nil {
		if err := r.cache.SetDay(ctx, fieldID, day, slots); err != nil {
			r.logger.Warn().Err(err).Int64("field_id", fieldID).Msg("slot cache write error")
		}
	}

	return slots, nil
}

// baseSlots builds the unannotated slot skeleton: one slot per override when
// the day has overrides, otherwise one slot per default catalog shift.
func (r *AvailabilityResolver) baseSlots(day time.Time, overrides []*models.ScheduleOverride, basePrice float64) []models.SlotView {
	if len(overrides) > 0 {
		slots := make([]models.SlotView, 0, len(overrides))
		for _, ov := range overrides {
			iv := ov.Interval()
			slots = append(slots, models.SlotView{
				Interval:  iv,
				Label:     r.shifts.LabelFor(iv.Start),
				Available: ov.Available,
				Price:     basePrice * r.shifts.MultiplierFor(iv.Start),
			})
		}
		return slots
	}

	intervals := r.shifts.SlotsFor(day)
	slots := make([]models.SlotView, 0, len(intervals))
	for _, iv := range intervals {
		slots = append(slots, models.SlotView{
			Interval:  iv,
			Label:     r.shifts.LabelFor(iv.Start),
			Available: true,
			Price:     basePrice * r.shifts.MultiplierFor(iv.Start),
		})
	}
	return slots
}
