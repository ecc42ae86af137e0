package closing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lengolf-closing/internal/models"

	"gorm.io/gorm"
)

// Store is the persistence the closing service needs.
type Store interface {
	DaySales(ctx context.Context, day time.Time) ([]models.Sale, error)
	FindByDate(ctx context.Context, day time.Time) (*models.Reconciliation, error)
	FindByID(ctx context.Context, id uint) (*models.Reconciliation, error)
	History(ctx context.Context, from, to time.Time, limit int) ([]models.Reconciliation, error)
	Create(ctx context.Context, rec *models.Reconciliation) error
}

type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) DaySales(ctx context.Context, day time.Time) ([]models.Sale, error) {
	var sales []models.Sale
	if err := s.DB.WithContext(ctx).
		Where("sale_date = ?", day).
		Order("id asc").
		Find(&sales).Error; err != nil {
		return nil, fmt.Errorf("load sales for %s: %w", day.Format(DateLayout), err)
	}
	return sales, nil
}

// FindByDate returns nil, nil when the day has not been closed.
func (s *GormStore) FindByDate(ctx context.Context, day time.Time) (*models.Reconciliation, error) {
	var rec models.Reconciliation
	err := s.DB.WithContext(ctx).Where("closing_date = ?", day).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *GormStore) FindByID(ctx context.Context, id uint) (*models.Reconciliation, error) {
	var rec models.Reconciliation
	err := s.DB.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *GormStore) History(ctx context.Context, from, to time.Time, limit int) ([]models.Reconciliation, error) {
	var recs []models.Reconciliation
	if err := s.DB.WithContext(ctx).
		Where("closing_date >= ? AND closing_date <= ?", from, to).
		Order("closing_date desc").
		Limit(limit).
		Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// Create maps a unique-index violation on closing_date to ErrAlreadyClosed.
// The connection must be opened with TranslateError enabled.
func (s *GormStore) Create(ctx context.Context, rec *models.Reconciliation) error {
	err := s.DB.WithContext(ctx).Create(rec).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrAlreadyClosed
	}
	return err
}
