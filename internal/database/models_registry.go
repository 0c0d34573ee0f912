package database

import "catspot/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.Profile{},
		&models.Post{},
		&models.Comment{},
		&models.Favorite{},
		&models.CommentFavorite{},
	}
}
