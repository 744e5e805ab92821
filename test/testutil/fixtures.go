package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/fanloremedia/fanlore/internal/catalog/domain"
	"github.com/fanloremedia/fanlore/pkg/models"
)

// CreateTestCelebrity creates a celebrity with default values.
func CreateTestCelebrity(name string) *models.Celebrity {
	return &models.Celebrity{
		ID:     uuid.New(),
		Name:   name,
		Slug:   domain.Slugify(name),
		Status: models.CelebrityStatusActive,
	}
}

// CreateTestEpisode creates an episode owned by the celebrity.
func CreateTestEpisode(celebrityID uuid.UUID, title, platform, externalRef string) *models.Episode {
	return &models.Episode{
		ID:               uuid.New(),
		CelebrityID:      celebrityID,
		Title:            title,
		NormalizedTitle:  domain.Normalize(title),
		ExternalPlatform: platform,
		ExternalRef:      externalRef,
	}
}

// CreateTestLocation creates a location in the celebrity scope.
func CreateTestLocation(celebrityID uuid.UUID, name string) *models.Location {
	return &models.Location{
		ID:             uuid.New(),
		CelebrityID:    celebrityID,
		Name:           name,
		NormalizedName: domain.Normalize(name),
		Slug:           domain.Slugify(name),
	}
}

// CreateTestItem creates an item in the celebrity scope.
func CreateTestItem(celebrityID uuid.UUID, name string) *models.Item {
	return &models.Item{
		ID:             uuid.New(),
		CelebrityID:    celebrityID,
		Name:           name,
		NormalizedName: domain.Normalize(name),
		Slug:           domain.Slugify(name),
	}
}

// AirDate returns a pointer to a date for episode fixtures.
func AirDate(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}
