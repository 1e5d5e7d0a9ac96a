package database

import "farmlink/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return models.PersistentModels()
}
