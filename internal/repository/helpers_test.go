package repository

import (
	"testing"
	"time"

	"catspot/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	return gormDB, mock
}

// setupSQLiteDB returns an in-memory database with the full schema. A single
// connection keeps every query on the same in-memory database.
func setupSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.Profile{},
		&models.Post{},
		&models.Comment{},
		&models.Favorite{},
		&models.CommentFavorite{},
	))
	return db
}

const (
	aliceID = "0d6f2c1e-4b1a-4c55-9a3e-6f1f1b2a7c01"
	bobID   = "0d6f2c1e-4b1a-4c55-9a3e-6f1f1b2a7c02"
	carolID = "0d6f2c1e-4b1a-4c55-9a3e-6f1f1b2a7c03"
)

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func seedProfile(t *testing.T, db *gorm.DB, id string, name *string) {
	t.Helper()
	require.NoError(t, db.Create(&models.Profile{ID: id, Name: name}).Error)
}

func seedPost(t *testing.T, db *gorm.DB, userID string, at time.Time) *models.Post {
	t.Helper()
	p := &models.Post{UserID: userID, Caption: "cat at " + at.Format(time.Kitchen), ImageURL: "https://cdn.test/Images/x.jpg", CreatedAt: at}
	require.NoError(t, db.Create(p).Error)
	return p
}

func seedComment(t *testing.T, db *gorm.DB, postID uint, userID, text string, at time.Time) *models.Comment {
	t.Helper()
	c := &models.Comment{PostID: postID, UserID: userID, Content: text, CreatedAt: at}
	require.NoError(t, db.Create(c).Error)
	return c
}
