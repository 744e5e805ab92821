package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fanloremedia/fanlore/pkg/models"
)

// NewTestDB creates a new in-memory SQLite database for testing
func NewTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// Auto-migrate the schema
	err = db.AutoMigrate(
		&models.Celebrity{},
		&models.Episode{},
		&models.Location{},
		&models.Item{},
		&models.EpisodeLocationLink{},
		&models.EpisodeItemLink{},
		&models.SyncRun{},
	)
	require.NoError(t, err)

	return db
}

// CleanupDB cleans up the test database
func CleanupDB(t *testing.T, db *gorm.DB) {
	err := db.Migrator().DropTable(
		&models.SyncRun{},
		&models.EpisodeItemLink{},
		&models.EpisodeLocationLink{},
		&models.Item{},
		&models.Location{},
		&models.Episode{},
		&models.Celebrity{},
	)
	require.NoError(t, err)
}
