package repository

import (
	"context"
	"database/sql"

	"farmlink/internal/database"
	"farmlink/internal/models"

	"gorm.io/gorm"
)

// StatsRepository computes admin dashboard aggregates.
type StatsRepository interface {
	Snapshot(ctx context.Context) (*models.Stats, error)
}

type statsRepository struct {
	db *gorm.DB
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepository{db: db}
}

type roleCount struct {
	Role  string
	Total int64
}

// Snapshot counts accounts, posts and schemes inside one read-only
// transaction so every figure comes from the same committed state.
func (r *statsRepository) Snapshot(ctx context.Context) (*models.Stats, error) {
	stats := &models.Stats{UsersByRole: make(map[string]int64, len(models.Roles)+1)}
	stats.UsersByRole[models.UnassignedRoleKey] = 0
	for _, role := range models.Roles {
		stats.UsersByRole[string(role)] = 0
	}

	var opts []*sql.TxOptions
	if database.IsPostgres(r.db) {
		opts = append(opts, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Account{}).Count(&stats.TotalUsers).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Post{}).Count(&stats.TotalBlogs).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.GovernmentScheme{}).Count(&stats.TotalSchemes).Error; err != nil {
			return err
		}

		var rows []roleCount
		if err := tx.Model(&models.Account{}).
			Select("COALESCE(role, '') AS role, COUNT(*) AS total").
			Group("COALESCE(role, '')").
			Scan(&rows).Error; err != nil {
			return err
		}
		for _, row := range rows {
			key := row.Role
			if key == "" {
				key = models.UnassignedRoleKey
			}
			stats.UsersByRole[key] += row.Total
		}
		return nil
	}, opts...)
	if err != nil {
		return nil, internal(err)
	}
	return stats, nil
}
