package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/fanloremedia/fanlore/pkg/models"
)

// UpsertResult reports what an upsert did.
type UpsertResult struct {
	ID      uuid.UUID
	Created bool
	// SlugCollision is set when a different logical entity had already
	// taken the derived slug and the store persisted under a suffixed
	// one. Callers surface this to the run report.
	SlugCollision bool
	Slug          string
}

// CelebrityRepository manages the manually-curated celebrity list.
type CelebrityRepository interface {
	CreateCelebrity(ctx context.Context, celebrity *models.Celebrity) error
	GetCelebrity(ctx context.Context, id uuid.UUID) (*models.Celebrity, error)
	GetCelebrityBySlug(ctx context.Context, slug string) (*models.Celebrity, error)
	ListCelebrities(ctx context.Context, status *models.CelebrityStatus) ([]*models.Celebrity, error)
}

// UpsertStore persists entities with idempotent, merge-don't-clobber
// semantics. Concurrent upserts of the same logical key serialize so at
// most one row is ever created.
type UpsertStore interface {
	UpsertEpisode(ctx context.Context, episode *models.Episode, force bool) (*UpsertResult, error)
	UpsertLocation(ctx context.Context, location *models.Location, force bool) (*UpsertResult, error)
	UpsertItem(ctx context.Context, item *models.Item, force bool) (*UpsertResult, error)

	GetEpisode(ctx context.Context, id uuid.UUID) (*models.Episode, error)
	GetLocation(ctx context.Context, id uuid.UUID) (*models.Location, error)
	GetItem(ctx context.Context, id uuid.UUID) (*models.Item, error)

	ListEpisodesByCelebrity(ctx context.Context, celebrityID uuid.UUID) ([]*models.Episode, error)
	ListLocationsByCelebrity(ctx context.Context, celebrityID uuid.UUID) ([]*models.Location, error)
	ListItemsByCelebrity(ctx context.Context, celebrityID uuid.UUID) ([]*models.Item, error)

	// DeleteLocation and DeleteItem are soft deletes, permitted only
	// when no episode references the entity.
	DeleteLocation(ctx context.Context, id uuid.UUID) error
	DeleteItem(ctx context.Context, id uuid.UUID) error
}

// LinkStore maintains the junction tables and the orphan sweep.
type LinkStore interface {
	// LinkLocation and LinkItem are idempotent; created is false when
	// the pair already existed.
	LinkLocation(ctx context.Context, episodeID, locationID uuid.UUID) (created bool, err error)
	LinkItem(ctx context.Context, episodeID, itemID uuid.UUID) (created bool, err error)

	CountLocationLinks(ctx context.Context, locationID uuid.UUID) (int64, error)
	CountItemLinks(ctx context.Context, itemID uuid.UUID) (int64, error)
	ListEpisodeLocationLinks(ctx context.Context, episodeID uuid.UUID) ([]*models.EpisodeLocationLink, error)
	ListEpisodeItemLinks(ctx context.Context, episodeID uuid.UUID) ([]*models.EpisodeItemLink, error)

	FindOrphanLocations(ctx context.Context, celebrityID uuid.UUID) ([]*models.Location, error)
	FindOrphanItems(ctx context.Context, celebrityID uuid.UUID) ([]*models.Item, error)

	// SetLocationEpisode and SetItemEpisode set the denormalized episode
	// reference, but only when it is currently empty.
	SetLocationEpisode(ctx context.Context, locationID, episodeID uuid.UUID) error
	SetItemEpisode(ctx context.Context, itemID, episodeID uuid.UUID) error
}

// ListingStore writes monetization metadata onto entities.
type ListingStore interface {
	SetLocationListing(ctx context.Context, id uuid.UUID, url, provider string, verified bool) error
	SetItemAffiliate(ctx context.Context, id uuid.UUID, url, provider string, verified bool) error
	EnableLocationAffiliate(ctx context.Context, id uuid.UUID) error
	EnableItemAffiliate(ctx context.Context, id uuid.UUID) error
}

// MergeStore performs the transactional episode merge and short-form purge.
type MergeStore interface {
	// MergeEpisodes re-points all junction rows and denormalized
	// references from the merge-away episodes onto keep, then removes
	// the merged rows. All or nothing.
	MergeEpisodes(ctx context.Context, keepID uuid.UUID, mergeIDs []uuid.UUID) error

	// PurgeEpisode removes a short-form noise episode and its junction
	// rows outright.
	PurgeEpisode(ctx context.Context, id uuid.UUID) error

	// MergeLocations and MergeItems collapse legacy duplicate entities
	// onto a survivor, re-pointing junction rows and preserving verified
	// listing data.
	MergeLocations(ctx context.Context, keepID uuid.UUID, mergeIDs []uuid.UUID) error
	MergeItems(ctx context.Context, keepID uuid.UUID, mergeIDs []uuid.UUID) error
}

// SyncRunRepository persists orchestrator run state.
type SyncRunRepository interface {
	CreateSyncRun(ctx context.Context, run *models.SyncRun) error
	UpdateSyncRun(ctx context.Context, run *models.SyncRun) error
	GetLatestSyncRun(ctx context.Context, celebrityID uuid.UUID) (*models.SyncRun, error)
}

// Repository is the full catalog persistence surface.
type Repository interface {
	CelebrityRepository
	UpsertStore
	LinkStore
	ListingStore
	MergeStore
	SyncRunRepository
}
