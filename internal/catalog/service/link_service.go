package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fanloremedia/fanlore/internal/catalog/domain"
	"github.com/fanloremedia/fanlore/internal/catalog/repository"
	pkgerrors "github.com/fanloremedia/fanlore/pkg/errors"
	"github.com/fanloremedia/fanlore/pkg/interfaces"
	"github.com/fanloremedia/fanlore/pkg/models"
)

// Orphan is an unlinked entity surfaced by the sweep.
type Orphan struct {
	EntityID   uuid.UUID
	EntityType models.EntityType
	Name       string
}

// LinkService maintains the episode-to-entity junction tables and the
// denormalized episode references that predate them.
type LinkService struct {
	repo     repository.Repository
	eventBus interfaces.EventBus
	cache    interfaces.Cache
	logger   interfaces.Logger
}

// NewLinkService creates a new link service.
func NewLinkService(repo repository.Repository, eventBus interfaces.EventBus, cache interfaces.Cache, logger interfaces.Logger) *LinkService {
	return &LinkService{
		repo:     repo,
		eventBus: eventBus,
		cache:    cache,
		logger:   logger,
	}
}

// getEpisode fetches an episode, memoized. A sync run links dozens of
// entities to the same handful of episodes.
func (s *LinkService) getEpisode(ctx context.Context, id uuid.UUID) (*models.Episode, error) {
	key := "episode:" + id.String()
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key); err == nil {
			if episode, ok := cached.(*models.Episode); ok {
				return episode, nil
			}
		}
	}
	episode, err := s.repo.GetEpisode(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, episode, 5*time.Minute)
	}
	return episode, nil
}

// Link connects an episode to a location or item. Idempotent: linking an
// already-linked pair is a no-op, never an error. The denormalized
// episode reference is filled in when still empty so legacy readers see
// the connection too.
func (s *LinkService) Link(ctx context.Context, episodeID, targetID uuid.UUID, targetType models.EntityType) (bool, error) {
	episode, err := s.getEpisode(ctx, episodeID)
	if err != nil {
		return false, err
	}

	var created bool
	switch targetType {
	case models.EntityTypeLocation:
		location, err := s.repo.GetLocation(ctx, targetID)
		if err != nil {
			return false, err
		}
		if location.CelebrityID != episode.CelebrityID {
			return false, pkgerrors.ReferentialViolation(
				"location and episode belong to different celebrities").WithEntity(targetID.String())
		}
		created, err = s.repo.LinkLocation(ctx, episodeID, targetID)
		if err != nil {
			return false, err
		}
		if location.EpisodeID == nil {
			if err := s.repo.SetLocationEpisode(ctx, targetID, episodeID); err != nil && !pkgerrors.IsConflict(err) {
				return created, err
			}
		}
	case models.EntityTypeItem:
		item, err := s.repo.GetItem(ctx, targetID)
		if err != nil {
			return false, err
		}
		if item.CelebrityID != episode.CelebrityID {
			return false, pkgerrors.ReferentialViolation(
				"item and episode belong to different celebrities").WithEntity(targetID.String())
		}
		created, err = s.repo.LinkItem(ctx, episodeID, targetID)
		if err != nil {
			return false, err
		}
		if item.EpisodeID == nil {
			if err := s.repo.SetItemEpisode(ctx, targetID, episodeID); err != nil && !pkgerrors.IsConflict(err) {
				return created, err
			}
		}
	default:
		return false, pkgerrors.BadRequest(fmt.Sprintf("cannot link entity type %s", targetType))
	}

	if created && s.eventBus != nil {
		s.eventBus.PublishAsync(ctx, domain.NewEntityLinkedEvent(episodeID, targetID, targetType))
	}
	return created, nil
}

// FindOrphans sweeps a celebrity scope for entities with no episode
// connection of either kind.
func (s *LinkService) FindOrphans(ctx context.Context, celebrityID uuid.UUID) ([]Orphan, error) {
	locations, err := s.repo.FindOrphanLocations(ctx, celebrityID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.FindOrphanItems(ctx, celebrityID)
	if err != nil {
		return nil, err
	}

	orphans := make([]Orphan, 0, len(locations)+len(items))
	for _, loc := range locations {
		orphans = append(orphans, Orphan{EntityID: loc.ID, EntityType: models.EntityTypeLocation, Name: loc.Name})
	}
	for _, item := range items {
		orphans = append(orphans, Orphan{EntityID: item.ID, EntityType: models.EntityTypeItem, Name: item.Name})
	}
	return orphans, nil
}

// RepairOrphan attaches an orphan to the given episode. The episode must
// be supplied by the caller; repairs never guess a parent. Ambiguous
// cases stay orphans and are reported upstream.
func (s *LinkService) RepairOrphan(ctx context.Context, orphanID uuid.UUID, orphanType models.EntityType, episodeID uuid.UUID) error {
	if episodeID == uuid.Nil {
		return pkgerrors.AmbiguousOrphan("no episode identified for orphan").WithEntity(orphanID.String())
	}
	// Merge and purge passes can remove an episode after it was cached.
	// A repair verifies the parent against the store, never a memo.
	if s.cache != nil {
		_ = s.cache.Delete(ctx, "episode:"+episodeID.String())
	}
	_, err := s.Link(ctx, episodeID, orphanID, orphanType)
	return err
}
