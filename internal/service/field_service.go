package service

import (
	"context"
	"fmt"
	"sync"

	"fieldbook/internal/domain"
	"fieldbook/internal/models"

	"github.com/rs/zerolog"
)

// FieldService keeps an in-memory view of the active field catalog on top of
// the repository. The catalog changes rarely, reads are frequent.
type FieldService struct {
	repo      domain.Repository
	logger    *zerolog.Logger
	fields    []*models.Field
	fieldsMap map[int64]*models.Field
	mu        sync.RWMutex
}

func NewFieldService(repo domain.Repository, logger *zerolog.Logger) *FieldService {
	return &FieldService{
		repo:      repo,
		logger:    logger,
		fieldsMap: make(map[int64]*models.Field),
	}
}

// Seed upserts configured fields into the store and loads the catalog.
func (s *FieldService) Seed(ctx context.Context, fields []models.Field) error {
	for i := range fields {
		if err := s.repo.UpsertField(ctx, &fields[i]); err != nil {
			return fmt.Errorf("failed to seed field %d: %w", fields[i].ID, err)
		}
	}
	return s.Refresh(ctx)
}

func (s *FieldService) GetActiveFields(ctx context.Context) ([]*models.Field, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fields, nil
}

func (s *FieldService) GetFieldByID(ctx context.Context, id int64) (*models.Field, error) {
	s.mu.RLock()
	field, ok := s.fieldsMap[id]
	s.mu.RUnlock()
	if ok {
		return field, nil
	}
	// Неактивные поля в кэш не попадают, читаем напрямую
	return s.repo.GetField(ctx, id)
}

func (s *FieldService) CreateField(ctx context.Context, field *models.Field) error {
	if err := s.repo.CreateField(ctx, field); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

func (s *FieldService) SetFieldStatus(ctx context.Context, id int64, status string) error {
	if err := s.repo.SetFieldStatus(ctx, id, status); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

func (s *FieldService) Refresh(ctx context.Context) error {
	fields, err := s.repo.GetActiveFields(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.fields = fields
	s.fieldsMap = make(map[int64]*models.Field, len(fields))
	for _, field := range fields {
		s.fieldsMap[field.ID] = field
	}
	return nil
}
