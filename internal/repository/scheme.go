package repository

import (
	"context"

	"farmlink/internal/models"

	"gorm.io/gorm"
)

// SchemeRepository persists government schemes.
type SchemeRepository interface {
	Create(ctx context.Context, scheme *models.GovernmentScheme) error
	GetByID(ctx context.Context, id uint) (*models.GovernmentScheme, error)
	List(ctx context.Context) ([]models.GovernmentScheme, error)
	Update(ctx context.Context, scheme *models.GovernmentScheme) error
	Delete(ctx context.Context, id uint) error
	// UpsertByName inserts or refreshes the scheme with the same name.
	UpsertByName(ctx context.Context, scheme *models.GovernmentScheme) error
}

type schemeRepository struct {
	db *gorm.DB
}

// NewSchemeRepository creates a new scheme repository
func NewSchemeRepository(db *gorm.DB) SchemeRepository {
	return &schemeRepository{db: db}
}

func (r *schemeRepository) Create(ctx context.Context, scheme *models.GovernmentScheme) error {
	return internal(r.db.WithContext(ctx).Create(scheme).Error)
}

func (r *schemeRepository) GetByID(ctx context.Context, id uint) (*models.GovernmentScheme, error) {
	var scheme models.GovernmentScheme
	if err := r.db.WithContext(ctx).First(&scheme, id).Error; err != nil {
		return nil, notFoundOr(err, "Scheme", id)
	}
	return &scheme, nil
}

func (r *schemeRepository) List(ctx context.Context) ([]models.GovernmentScheme, error) {
	var schemes []models.GovernmentScheme
	if err := r.db.WithContext(ctx).Order("name ASC, id ASC").Find(&schemes).Error; err != nil {
		return nil, internal(err)
	}
	return schemes, nil
}

func (r *schemeRepository) Update(ctx context.Context, scheme *models.GovernmentScheme) error {
	res := r.db.WithContext(ctx).Model(&models.GovernmentScheme{ID: scheme.ID}).
		Select("Name", "Benefit", "Eligibility", "RequiredDocuments", "ApplyURL").
		Updates(scheme)
	if res.Error != nil {
		return internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Scheme", scheme.ID)
	}
	return nil
}

func (r *schemeRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.GovernmentScheme{}, id)
	if res.Error != nil {
		return internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Scheme", id)
	}
	return nil
}

func (r *schemeRepository) UpsertByName(ctx context.Context, scheme *models.GovernmentScheme) error {
	var existing models.GovernmentScheme
	err := r.db.WithContext(ctx).Where("name = ?", scheme.Name).Take(&existing).Error
	switch {
	case err == nil:
		scheme.ID = existing.ID
		return r.Update(ctx, scheme)
	case isNotFound(err):
		return r.Create(ctx, scheme)
	default:
		return internal(err)
	}
}
