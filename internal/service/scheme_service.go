package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"farmlink/internal/cache"
	"farmlink/internal/models"
	"farmlink/internal/repository"
	"farmlink/internal/validation"
)

// SchemeService serves government schemes, cached in Redis.
type SchemeService struct {
	repo repository.SchemeRepository
}

// SchemeInput is the writable part of a scheme.
type SchemeInput struct {
	Name              string `json:"name"`
	Benefit           string `json:"benefit"`
	Eligibility       string `json:"eligibility"`
	RequiredDocuments string `json:"required_documents"`
	ApplyURL          string `json:"apply_url"`
}

func NewSchemeService(repo repository.SchemeRepository) *SchemeService {
	return &SchemeService{repo: repo}
}

func (s *SchemeService) List(ctx context.Context) ([]models.GovernmentScheme, error) {
	var schemes []models.GovernmentScheme
	err := cache.Aside(ctx, cache.SchemeListKey(), &schemes, cache.SchemeTTL, func() error {
		var err error
		schemes, err = s.repo.List(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if schemes == nil {
		schemes = []models.GovernmentScheme{}
	}
	return schemes, nil
}

func (s *SchemeService) Get(ctx context.Context, id uint) (*models.GovernmentScheme, error) {
	var scheme *models.GovernmentScheme
	err := cache.Aside(ctx, cache.SchemeKey(id), &scheme, cache.SchemeTTL, func() error {
		var err error
		scheme, err = s.repo.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return scheme, nil
}

func (s *SchemeService) Create(ctx context.Context, in SchemeInput) (*models.GovernmentScheme, error) {
	scheme, err := buildScheme(in)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, scheme); err != nil {
		return nil, err
	}
	cache.InvalidateSchemes(ctx, 0)
	return scheme, nil
}

func (s *SchemeService) Update(ctx context.Context, id uint, in SchemeInput) (*models.GovernmentScheme, error) {
	scheme, err := buildScheme(in)
	if err != nil {
		return nil, err
	}
	scheme.ID = id
	if err := s.repo.Update(ctx, scheme); err != nil {
		return nil, err
	}
	cache.InvalidateSchemes(ctx, id)
	return s.repo.GetByID(ctx, id)
}

func (s *SchemeService) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	cache.InvalidateSchemes(ctx, id)
	return nil
}

func buildScheme(in SchemeInput) (*models.GovernmentScheme, error) {
	fields := map[string]string{}
	name := strings.TrimSpace(in.Name)
	switch n := utf8.RuneCountInString(name); {
	case n == 0:
		fields["name"] = "is required"
	case n > 255:
		fields["name"] = "must be at most 255 characters"
	}
	applyURL := strings.TrimSpace(in.ApplyURL)
	if applyURL != "" {
		if err := validation.ValidateHTTPURL(applyURL); err != nil {
			fields["apply_url"] = err.Error()
		}
	}
	if len(fields) > 0 {
		return nil, models.NewFieldValidationError(fields)
	}
	return &models.GovernmentScheme{
		Name:              name,
		Benefit:           strings.TrimSpace(in.Benefit),
		Eligibility:       strings.TrimSpace(in.Eligibility),
		RequiredDocuments: strings.TrimSpace(in.RequiredDocuments),
		ApplyURL:          applyURL,
	}, nil
}
