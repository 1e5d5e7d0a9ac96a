package seed

import (
	"context"
	_ "embed"
	"fmt"

	"farmlink/internal/models"
	"farmlink/internal/repository"

	"gopkg.in/yaml.v3"
)

//go:embed schemes.yaml
var schemesYAML []byte

// LoadSchemes parses government schemes from YAML.
func LoadSchemes(data []byte) ([]models.GovernmentScheme, error) {
	var schemes []models.GovernmentScheme
	if err := yaml.Unmarshal(data, &schemes); err != nil {
		return nil, fmt.Errorf("parse schemes: %w", err)
	}
	for i, s := range schemes {
		if s.Name == "" {
			return nil, fmt.Errorf("scheme %d has no name", i)
		}
	}
	return schemes, nil
}

// DefaultSchemes returns the bundled scheme catalogue.
func DefaultSchemes() ([]models.GovernmentScheme, error) {
	return LoadSchemes(schemesYAML)
}

// UpsertSchemes writes schemes keyed by name, so re-running the seeder
// updates rows instead of duplicating them.
func UpsertSchemes(ctx context.Context, repo repository.SchemeRepository, schemes []models.GovernmentScheme) (int, error) {
	for i := range schemes {
		if err := repo.UpsertByName(ctx, &schemes[i]); err != nil {
			return i, fmt.Errorf("upsert scheme %q: %w", schemes[i].Name, err)
		}
	}
	return len(schemes), nil
}
