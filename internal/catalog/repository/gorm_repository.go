package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fanloremedia/fanlore/internal/catalog/domain"
	pkgerrors "github.com/fanloremedia/fanlore/pkg/errors"
	"github.com/fanloremedia/fanlore/pkg/models"
	pkgrepo "github.com/fanloremedia/fanlore/pkg/repository"
)

// GormRepository implements the catalog repository interfaces using GORM.
// Upserts on the same logical key (type + celebrity + normalized name)
// serialize through a singleflight group; cross-process races are caught
// by the unique indexes and retried.
type GormRepository struct {
	db    *gorm.DB
	group singleflight.Group
}

// NewGormRepository creates a new GORM repository.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// CreateCelebrity creates a new celebrity.
func (r *GormRepository) CreateCelebrity(ctx context.Context, celebrity *models.Celebrity) error {
	if celebrity.ID == uuid.Nil {
		celebrity.ID = uuid.New()
	}
	if celebrity.Slug == "" {
		celebrity.Slug = domain.Slugify(celebrity.Name)
	}
	if celebrity.Status == "" {
		celebrity.Status = models.CelebrityStatusActive
	}
	return pkgrepo.Create(ctx, r.db, celebrity)
}

// GetCelebrity retrieves a celebrity by ID.
func (r *GormRepository) GetCelebrity(ctx context.Context, id uuid.UUID) (*models.Celebrity, error) {
	return pkgrepo.FindByID[models.Celebrity](ctx, r.db, id)
}

// GetCelebrityBySlug retrieves a celebrity by slug.
func (r *GormRepository) GetCelebrityBySlug(ctx context.Context, slug string) (*models.Celebrity, error) {
	return pkgrepo.FindOneBy[models.Celebrity](ctx, r.db, "slug = ?", slug)
}

// ListCelebrities lists celebrities, optionally filtered by status.
func (r *GormRepository) ListCelebrities(ctx context.Context, status *models.CelebrityStatus) ([]*models.Celebrity, error) {
	query := r.db.WithContext(ctx)
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var items []*models.Celebrity
	if err := query.Order("name").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list celebrities: %w", err)
	}
	return items, nil
}

// celebrityExists verifies the scope reference before an upsert.
func (r *GormRepository) celebrityExists(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.ReferentialViolation("entity has no celebrity reference")
	}
	count, err := pkgrepo.Count[models.Celebrity](ctx, r.db, "id = ?", id)
	if err != nil {
		return err
	}
	if count == 0 {
		return pkgerrors.ReferentialViolation(
			fmt.Sprintf("celebrity %s does not exist", id)).WithEntity(id.String())
	}
	return nil
}

// UpsertEpisode creates or merges an episode. The logical key is the
// (celebrity, platform, external ref) triple, falling back to the
// normalized title when no ref is present.
func (r *GormRepository) UpsertEpisode(ctx context.Context, episode *models.Episode, force bool) (*UpsertResult, error) {
	if err := r.celebrityExists(ctx, episode.CelebrityID); err != nil {
		return nil, err
	}
	if episode.NormalizedTitle == "" {
		episode.NormalizedTitle = domain.Normalize(episode.Title)
	}

	key := fmt.Sprintf("episode:%s:%s:%s:%s",
		episode.CelebrityID, episode.ExternalPlatform, episode.ExternalRef, episode.NormalizedTitle)
	result, err, _ := r.group.Do(key, func() (interface{}, error) {
		return r.upsertEpisode(ctx, episode)
	})
	if err != nil {
		return nil, err
	}
	return result.(*UpsertResult), nil
}

func (r *GormRepository) upsertEpisode(ctx context.Context, episode *models.Episode) (*UpsertResult, error) {
	// Two attempts: a concurrent writer racing between the lookup and
	// the insert trips the unique index, and the retry finds its row.
	for attempt := 0; ; attempt++ {
		existing, err := r.findEpisodeByKeys(ctx, episode)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			mergeEpisode(existing, episode)
			if err := pkgrepo.Update(ctx, r.db, existing); err != nil {
				return nil, err
			}
			return &UpsertResult{ID: existing.ID, Created: false}, nil
		}

		if episode.ID == uuid.Nil {
			episode.ID = uuid.New()
		}
		err = r.db.WithContext(ctx).Create(episode).Error
		if err == nil {
			return &UpsertResult{ID: episode.ID, Created: true}, nil
		}
		if !pkgerrors.IsDuplicateError(err) || attempt > 0 {
			return nil, err
		}
	}
}

func (r *GormRepository) findEpisodeByKeys(ctx context.Context, episode *models.Episode) (*models.Episode, error) {
	if episode.ExternalRef != "" {
		existing, err := pkgrepo.FindOneBy[models.Episode](ctx, r.db,
			"celebrity_id = ? AND external_platform = ? AND external_ref = ?",
			episode.CelebrityID, episode.ExternalPlatform, episode.ExternalRef)
		if err == nil {
			return existing, nil
		}
		if !pkgerrors.IsNotFound(err) {
			return nil, err
		}
	}
	existing, err := pkgrepo.FindOneBy[models.Episode](ctx, r.db,
		"celebrity_id = ? AND normalized_title = ?",
		episode.CelebrityID, episode.NormalizedTitle)
	if err == nil {
		return existing, nil
	}
	if pkgerrors.IsNotFound(err) {
		return nil, nil
	}
	return nil, err
}

func mergeEpisode(existing, incoming *models.Episode) {
	if incoming.AirDate != nil && existing.AirDate == nil {
		existing.AirDate = incoming.AirDate
	}
	if incoming.ExternalRef != "" && existing.ExternalRef == "" {
		existing.ExternalPlatform = incoming.ExternalPlatform
		existing.ExternalRef = incoming.ExternalRef
	}
}

// UpsertLocation creates or merges a location keyed on the celebrity
// scope and normalized name.
func (r *GormRepository) UpsertLocation(ctx context.Context, location *models.Location, force bool) (*UpsertResult, error) {
	if err := r.celebrityExists(ctx, location.CelebrityID); err != nil {
		return nil, err
	}
	if location.NormalizedName == "" {
		location.NormalizedName = domain.Normalize(location.Name)
	}

	key := fmt.Sprintf("location:%s:%s", location.CelebrityID, location.NormalizedName)
	result, err, _ := r.group.Do(key, func() (interface{}, error) {
		return r.upsertLocation(ctx, location, force)
	})
	if err != nil {
		return nil, err
	}
	return result.(*UpsertResult), nil
}

func (r *GormRepository) upsertLocation(ctx context.Context, location *models.Location, force bool) (*UpsertResult, error) {
	for attempt := 0; ; attempt++ {
		existing, err := pkgrepo.FindOneBy[models.Location](ctx, r.db,
			"celebrity_id = ? AND normalized_name = ?",
			location.CelebrityID, location.NormalizedName)
		if err == nil {
			mergeLocation(existing, location, force)
			if err := pkgrepo.Update(ctx, r.db, existing); err != nil {
				return nil, err
			}
			return &UpsertResult{ID: existing.ID, Created: false, Slug: existing.Slug}, nil
		}
		if !pkgerrors.IsNotFound(err) {
			return nil, err
		}

		if location.ID == uuid.Nil {
			location.ID = uuid.New()
		}
		slug := location.Slug
		if slug == "" {
			slug = domain.Slugify(location.Name)
		}
		slug, collided, err := r.claimSlug(ctx, &models.Location{}, slug)
		if err != nil {
			return nil, err
		}
		location.Slug = slug

		err = r.db.WithContext(ctx).Create(location).Error
		if err == nil {
			return &UpsertResult{ID: location.ID, Created: true, Slug: slug, SlugCollision: collided}, nil
		}
		if !pkgerrors.IsDuplicateError(err) || attempt > 0 {
			return nil, err
		}
	}
}

func mergeLocation(existing, incoming *models.Location, force bool) {
	if incoming.Address != "" {
		existing.Address = incoming.Address
	}
	if incoming.EpisodeID != nil && existing.EpisodeID == nil {
		existing.EpisodeID = incoming.EpisodeID
	}
	if len(incoming.Tags) > 0 {
		existing.Tags = mergeTags(existing.Tags, incoming.Tags)
	}
	// A verified listing is never clobbered by a fresh guess.
	if incoming.ListingURL != "" && (force || existing.ListingURL == "") {
		existing.ListingURL = incoming.ListingURL
		existing.ListingProvider = incoming.ListingProvider
		existing.ListingVerified = incoming.ListingVerified
	}
}

// UpsertItem creates or merges an item keyed on the celebrity scope and
// normalized name.
func (r *GormRepository) UpsertItem(ctx context.Context, item *models.Item, force bool) (*UpsertResult, error) {
	if err := r.celebrityExists(ctx, item.CelebrityID); err != nil {
		return nil, err
	}
	if item.NormalizedName == "" {
		item.NormalizedName = domain.Normalize(item.Name)
	}

	key := fmt.Sprintf("item:%s:%s", item.CelebrityID, item.NormalizedName)
	result, err, _ := r.group.Do(key, func() (interface{}, error) {
		return r.upsertItem(ctx, item, force)
	})
	if err != nil {
		return nil, err
	}
	return result.(*UpsertResult), nil
}

func (r *GormRepository) upsertItem(ctx context.Context, item *models.Item, force bool) (*UpsertResult, error) {
	for attempt := 0; ; attempt++ {
		existing, err := pkgrepo.FindOneBy[models.Item](ctx, r.db,
			"celebrity_id = ? AND normalized_name = ?",
			item.CelebrityID, item.NormalizedName)
		if err == nil {
			mergeItem(existing, item, force)
			if err := pkgrepo.Update(ctx, r.db, existing); err != nil {
				return nil, err
			}
			return &UpsertResult{ID: existing.ID, Created: false, Slug: existing.Slug}, nil
		}
		if !pkgerrors.IsNotFound(err) {
			return nil, err
		}

		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		slug := item.Slug
		if slug == "" {
			slug = domain.Slugify(item.Name)
		}
		slug, collided, err := r.claimSlug(ctx, &models.Item{}, slug)
		if err != nil {
			return nil, err
		}
		item.Slug = slug

		err = r.db.WithContext(ctx).Create(item).Error
		if err == nil {
			return &UpsertResult{ID: item.ID, Created: true, Slug: slug, SlugCollision: collided}, nil
		}
		if !pkgerrors.IsDuplicateError(err) || attempt > 0 {
			return nil, err
		}
	}
}

func mergeItem(existing, incoming *models.Item, force bool) {
	if incoming.Price != 0 {
		existing.Price = incoming.Price
	}
	if incoming.EpisodeID != nil && existing.EpisodeID == nil {
		existing.EpisodeID = incoming.EpisodeID
	}
	if len(incoming.Tags) > 0 {
		existing.Tags = mergeTags(existing.Tags, incoming.Tags)
	}
	if incoming.AffiliateURL != "" && (force || existing.AffiliateURL == "") {
		existing.AffiliateURL = incoming.AffiliateURL
		existing.AffiliateProvider = incoming.AffiliateProvider
		existing.AffiliateVerified = incoming.AffiliateVerified
	}
}

func mergeTags(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	out := append([]string{}, existing...)
	for _, t := range existing {
		seen[t] = true
	}
	for _, t := range incoming {
		if !seen[t] {
			out = append(out, t)
			seen[t] = true
		}
	}
	return out
}

// claimSlug checks slug availability for the given model and
// disambiguates with an ordinal suffix when a different logical entity
// already holds it. The collision is reported, never swallowed. A failed
// availability query aborts the claim; it must not count as a collision.
func (r *GormRepository) claimSlug(ctx context.Context, model interface{}, slug string) (string, bool, error) {
	var checkErr error
	taken := func(candidate string) bool {
		if checkErr != nil {
			return false
		}
		var count int64
		if err := r.db.WithContext(ctx).Model(model).Where("slug = ?", candidate).Count(&count).Error; err != nil {
			checkErr = err
			return false
		}
		return count > 0
	}
	if !taken(slug) {
		if checkErr != nil {
			return "", false, checkErr
		}
		return slug, false, nil
	}
	candidate := domain.DisambiguateSlug(slug, taken)
	if checkErr != nil {
		return "", false, checkErr
	}
	return candidate, true, nil
}

// GetEpisode retrieves an episode by ID.
func (r *GormRepository) GetEpisode(ctx context.Context, id uuid.UUID) (*models.Episode, error) {
	return pkgrepo.FindByID[models.Episode](ctx, r.db, id)
}

// GetLocation retrieves a location by ID.
func (r *GormRepository) GetLocation(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	return pkgrepo.FindByID[models.Location](ctx, r.db, id)
}

// GetItem retrieves an item by ID.
func (r *GormRepository) GetItem(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	return pkgrepo.FindByID[models.Item](ctx, r.db, id)
}

// ListEpisodesByCelebrity lists all episodes owned by a celebrity.
func (r *GormRepository) ListEpisodesByCelebrity(ctx context.Context, celebrityID uuid.UUID) ([]*models.Episode, error) {
	var items []*models.Episode
	if err := r.db.WithContext(ctx).Where("celebrity_id = ?", celebrityID).
		Order("created_at, id").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list episodes: %w", err)
	}
	return items, nil
}

// ListLocationsByCelebrity lists all locations in a celebrity scope.
func (r *GormRepository) ListLocationsByCelebrity(ctx context.Context, celebrityID uuid.UUID) ([]*models.Location, error) {
	var items []*models.Location
	if err := r.db.WithContext(ctx).Where("celebrity_id = ?", celebrityID).
		Order("created_at, id").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	return items, nil
}

// ListItemsByCelebrity lists all items in a celebrity scope.
func (r *GormRepository) ListItemsByCelebrity(ctx context.Context, celebrityID uuid.UUID) ([]*models.Item, error) {
	var items []*models.Item
	if err := r.db.WithContext(ctx).Where("celebrity_id = ?", celebrityID).
		Order("created_at, id").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}

// DeleteLocation soft-deletes a location once no episode references remain.
func (r *GormRepository) DeleteLocation(ctx context.Context, id uuid.UUID) error {
	location, err := r.GetLocation(ctx, id)
	if err != nil {
		return err
	}
	links, err := r.CountLocationLinks(ctx, id)
	if err != nil {
		return err
	}
	if links > 0 || location.EpisodeID != nil {
		return pkgerrors.Conflict("location still referenced by episodes").WithEntity(id.String())
	}
	return pkgrepo.Delete[models.Location](ctx, r.db, id)
}

// DeleteItem soft-deletes an item once no episode references remain.
func (r *GormRepository) DeleteItem(ctx context.Context, id uuid.UUID) error {
	item, err := r.GetItem(ctx, id)
	if err != nil {
		return err
	}
	links, err := r.CountItemLinks(ctx, id)
	if err != nil {
		return err
	}
	if links > 0 || item.EpisodeID != nil {
		return pkgerrors.Conflict("item still referenced by episodes").WithEntity(id.String())
	}
	return pkgrepo.Delete[models.Item](ctx, r.db, id)
}

// LinkLocation inserts a junction row if the pair is new. Conflicting
// inserts are no-ops, which makes the call idempotent under concurrency.
func (r *GormRepository) LinkLocation(ctx context.Context, episodeID, locationID uuid.UUID) (bool, error) {
	link := &models.EpisodeLocationLink{EpisodeID: episodeID, LocationID: locationID}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(link)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// LinkItem inserts a junction row if the pair is new.
func (r *GormRepository) LinkItem(ctx context.Context, episodeID, itemID uuid.UUID) (bool, error) {
	link := &models.EpisodeItemLink{EpisodeID: episodeID, ItemID: itemID}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(link)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CountLocationLinks counts junction rows for a location.
func (r *GormRepository) CountLocationLinks(ctx context.Context, locationID uuid.UUID) (int64, error) {
	return pkgrepo.Count[models.EpisodeLocationLink](ctx, r.db, "location_id = ?", locationID)
}

// CountItemLinks counts junction rows for an item.
func (r *GormRepository) CountItemLinks(ctx context.Context, itemID uuid.UUID) (int64, error) {
	return pkgrepo.Count[models.EpisodeItemLink](ctx, r.db, "item_id = ?", itemID)
}

// ListEpisodeLocationLinks lists junction rows owned by an episode.
func (r *GormRepository) ListEpisodeLocationLinks(ctx context.Context, episodeID uuid.UUID) ([]*models.EpisodeLocationLink, error) {
	return pkgrepo.FindAllBy[models.EpisodeLocationLink](ctx, r.db, "episode_id = ?", episodeID)
}

// ListEpisodeItemLinks lists junction rows owned by an episode.
func (r *GormRepository) ListEpisodeItemLinks(ctx context.Context, episodeID uuid.UUID) ([]*models.EpisodeItemLink, error) {
	return pkgrepo.FindAllBy[models.EpisodeItemLink](ctx, r.db, "episode_id = ?", episodeID)
}

// FindOrphanLocations sweeps for locations with a celebrity scope but no
// junction row and no denormalized episode reference.
func (r *GormRepository) FindOrphanLocations(ctx context.Context, celebrityID uuid.UUID) ([]*models.Location, error) {
	var orphans []*models.Location
	err := r.db.WithContext(ctx).
		Where("celebrity_id = ? AND episode_id IS NULL", celebrityID).
		Where("NOT EXISTS (SELECT 1 FROM episode_location_links WHERE episode_location_links.location_id = locations.id)").
		Order("created_at, id").
		Find(&orphans).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sweep orphan locations: %w", err)
	}
	return orphans, nil
}

// FindOrphanItems sweeps for items with a celebrity scope but no
// junction row and no denormalized episode reference.
func (r *GormRepository) FindOrphanItems(ctx context.Context, celebrityID uuid.UUID) ([]*models.Item, error) {
	var orphans []*models.Item
	err := r.db.WithContext(ctx).
		Where("celebrity_id = ? AND episode_id IS NULL", celebrityID).
		Where("NOT EXISTS (SELECT 1 FROM episode_item_links WHERE episode_item_links.item_id = items.id)").
		Order("created_at, id").
		Find(&orphans).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sweep orphan items: %w", err)
	}
	return orphans, nil
}

// SetLocationEpisode sets the denormalized episode reference on a
// location that does not have one yet. A populated reference is left
// alone; repairs never reassign.
func (r *GormRepository) SetLocationEpisode(ctx context.Context, locationID, episodeID uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&models.Location{}).
		Where("id = ? AND episode_id IS NULL", locationID).
		Update("episode_id", episodeID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.Conflict("location already has an episode reference").WithEntity(locationID.String())
	}
	return nil
}

// SetItemEpisode sets the denormalized episode reference on an item that
// does not have one yet.
func (r *GormRepository) SetItemEpisode(ctx context.Context, itemID, episodeID uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&models.Item{}).
		Where("id = ? AND episode_id IS NULL", itemID).
		Update("episode_id", episodeID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.Conflict("item already has an episode reference").WithEntity(itemID.String())
	}
	return nil
}

// SetLocationListing writes listing metadata onto a location.
func (r *GormRepository) SetLocationListing(ctx context.Context, id uuid.UUID, url, provider string, verified bool) error {
	return r.db.WithContext(ctx).Model(&models.Location{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"listing_url":      url,
			"listing_provider": provider,
			"listing_verified": verified,
		}).Error
}

// SetItemAffiliate writes affiliate metadata onto an item.
func (r *GormRepository) SetItemAffiliate(ctx context.Context, id uuid.UUID, url, provider string, verified bool) error {
	return r.db.WithContext(ctx).Model(&models.Item{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"affiliate_url":      url,
			"affiliate_provider": provider,
			"affiliate_verified": verified,
		}).Error
}

// EnableLocationAffiliate flips the affiliate flag on a location.
func (r *GormRepository) EnableLocationAffiliate(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.Location{}).Where("id = ?", id).
		Update("affiliate_enabled", true).Error
}

// EnableItemAffiliate flips the affiliate flag on an item.
func (r *GormRepository) EnableItemAffiliate(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.Item{}).Where("id = ?", id).
		Update("affiliate_enabled", true).Error
}

// MergeEpisodes re-points every reference from the merge-away episodes
// onto keep and removes the merged rows, all inside one transaction.
// Merged rows are removed for good so their external refs can be
// re-ingested against the kept episode.
func (r *GormRepository) MergeEpisodes(ctx context.Context, keepID uuid.UUID, mergeIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var keep models.Episode
		if err := tx.First(&keep, "id = ?", keepID).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.ErrorTypeNotFound, "keep episode not found", err).WithEntity(keepID.String())
		}

		for _, mergeID := range mergeIDs {
			if mergeID == keepID {
				return pkgerrors.BadRequest("episode cannot be merged into itself").WithEntity(keepID.String())
			}

			var locLinks []models.EpisodeLocationLink
			if err := tx.Where("episode_id = ?", mergeID).Find(&locLinks).Error; err != nil {
				return err
			}
			for _, link := range locLinks {
				repointed := models.EpisodeLocationLink{EpisodeID: keepID, LocationID: link.LocationID}
				if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&repointed).Error; err != nil {
					return err
				}
			}
			if err := tx.Where("episode_id = ?", mergeID).Delete(&models.EpisodeLocationLink{}).Error; err != nil {
				return err
			}

			var itemLinks []models.EpisodeItemLink
			if err := tx.Where("episode_id = ?", mergeID).Find(&itemLinks).Error; err != nil {
				return err
			}
			for _, link := range itemLinks {
				repointed := models.EpisodeItemLink{EpisodeID: keepID, ItemID: link.ItemID}
				if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&repointed).Error; err != nil {
					return err
				}
			}
			if err := tx.Where("episode_id = ?", mergeID).Delete(&models.EpisodeItemLink{}).Error; err != nil {
				return err
			}

			if err := tx.Model(&models.Location{}).Where("episode_id = ?", mergeID).
				Update("episode_id", keepID).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Item{}).Where("episode_id = ?", mergeID).
				Update("episode_id", keepID).Error; err != nil {
				return err
			}

			if err := tx.Unscoped().Delete(&models.Episode{}, "id = ?", mergeID).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// PurgeEpisode removes a short-form noise episode with its junction rows.
func (r *GormRepository) PurgeEpisode(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("episode_id = ?", id).Delete(&models.EpisodeLocationLink{}).Error; err != nil {
			return err
		}
		if err := tx.Where("episode_id = ?", id).Delete(&models.EpisodeItemLink{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Location{}).Where("episode_id = ?", id).
			Update("episode_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Item{}).Where("episode_id = ?", id).
			Update("episode_id", nil).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.Episode{}, "id = ?", id).Error
	})
}

// MergeLocations collapses legacy duplicate locations onto keep. Junction
// rows are re-pointed and the merge-away rows removed. Verified listing
// data survives on the kept row.
func (r *GormRepository) MergeLocations(ctx context.Context, keepID uuid.UUID, mergeIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var keep models.Location
		if err := tx.First(&keep, "id = ?", keepID).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.ErrorTypeNotFound, "keep location not found", err).WithEntity(keepID.String())
		}

		for _, mergeID := range mergeIDs {
			if mergeID == keepID {
				return pkgerrors.BadRequest("location cannot be merged into itself").WithEntity(keepID.String())
			}

			var away models.Location
			if err := tx.First(&away, "id = ?", mergeID).Error; err != nil {
				return pkgerrors.Wrap(pkgerrors.ErrorTypeNotFound, "merge location not found", err).WithEntity(mergeID.String())
			}

			var links []models.EpisodeLocationLink
			if err := tx.Where("location_id = ?", mergeID).Find(&links).Error; err != nil {
				return err
			}
			for _, link := range links {
				repointed := models.EpisodeLocationLink{EpisodeID: link.EpisodeID, LocationID: keepID}
				if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&repointed).Error; err != nil {
					return err
				}
			}
			if err := tx.Where("location_id = ?", mergeID).Delete(&models.EpisodeLocationLink{}).Error; err != nil {
				return err
			}

			// Fold listing metadata forward; verified data wins.
			if away.ListingVerified && !keep.ListingVerified {
				keep.ListingURL = away.ListingURL
				keep.ListingProvider = away.ListingProvider
				keep.ListingVerified = true
			}
			if keep.Address == "" && away.Address != "" {
				keep.Address = away.Address
			}
			if keep.EpisodeID == nil && away.EpisodeID != nil {
				keep.EpisodeID = away.EpisodeID
			}
			keep.Tags = mergeTags(keep.Tags, away.Tags)
			keep.AffiliateEnabled = keep.AffiliateEnabled || away.AffiliateEnabled

			if err := tx.Unscoped().Delete(&models.Location{}, "id = ?", mergeID).Error; err != nil {
				return err
			}
		}
		return tx.Save(&keep).Error
	})
}

// MergeItems collapses legacy duplicate items onto keep.
func (r *GormRepository) MergeItems(ctx context.Context, keepID uuid.UUID, mergeIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var keep models.Item
		if err := tx.First(&keep, "id = ?", keepID).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.ErrorTypeNotFound, "keep item not found", err).WithEntity(keepID.String())
		}

		for _, mergeID := range mergeIDs {
			if mergeID == keepID {
				return pkgerrors.BadRequest("item cannot be merged into itself").WithEntity(keepID.String())
			}

			var away models.Item
			if err := tx.First(&away, "id = ?", mergeID).Error; err != nil {
				return pkgerrors.Wrap(pkgerrors.ErrorTypeNotFound, "merge item not found", err).WithEntity(mergeID.String())
			}

			var links []models.EpisodeItemLink
			if err := tx.Where("item_id = ?", mergeID).Find(&links).Error; err != nil {
				return err
			}
			for _, link := range links {
				repointed := models.EpisodeItemLink{EpisodeID: link.EpisodeID, ItemID: keepID}
				if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&repointed).Error; err != nil {
					return err
				}
			}
			if err := tx.Where("item_id = ?", mergeID).Delete(&models.EpisodeItemLink{}).Error; err != nil {
				return err
			}

			if away.AffiliateVerified && !keep.AffiliateVerified {
				keep.AffiliateURL = away.AffiliateURL
				keep.AffiliateProvider = away.AffiliateProvider
				keep.AffiliateVerified = true
			}
			if keep.Price == 0 && away.Price != 0 {
				keep.Price = away.Price
			}
			if keep.EpisodeID == nil && away.EpisodeID != nil {
				keep.EpisodeID = away.EpisodeID
			}
			keep.Tags = mergeTags(keep.Tags, away.Tags)
			keep.AffiliateEnabled = keep.AffiliateEnabled || away.AffiliateEnabled

			if err := tx.Unscoped().Delete(&models.Item{}, "id = ?", mergeID).Error; err != nil {
				return err
			}
		}
		return tx.Save(&keep).Error
	})
}

// CreateSyncRun persists a new orchestrator run record.
func (r *GormRepository) CreateSyncRun(ctx context.Context, run *models.SyncRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	return pkgrepo.Create(ctx, r.db, run)
}

// UpdateSyncRun updates an orchestrator run record.
func (r *GormRepository) UpdateSyncRun(ctx context.Context, run *models.SyncRun) error {
	return pkgrepo.Update(ctx, r.db, run)
}

// GetLatestSyncRun gets the most recent run for a celebrity.
func (r *GormRepository) GetLatestSyncRun(ctx context.Context, celebrityID uuid.UUID) (*models.SyncRun, error) {
	var run models.SyncRun
	if err := r.db.WithContext(ctx).Where("celebrity_id = ?", celebrityID).
		Order("started_at DESC").First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound("no sync runs recorded").WithEntity(celebrityID.String())
		}
		return nil, err
	}
	return &run, nil
}
