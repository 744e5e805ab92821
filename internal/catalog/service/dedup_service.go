package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/fanloremedia/fanlore/internal/catalog/domain"
	"github.com/fanloremedia/fanlore/internal/catalog/repository"
	"github.com/fanloremedia/fanlore/pkg/interfaces"
	"github.com/fanloremedia/fanlore/pkg/models"
)

// MergePlan names a survivor and the duplicate rows to fold into it.
type MergePlan struct {
	KeepID   uuid.UUID
	MergeIDs []uuid.UUID
	Reason   string
}

// DedupService finds and collapses legacy duplicate rows. The resolver
// prevents new duplicates; this service cleans up the ones that predate
// it.
type DedupService struct {
	repo     repository.Repository
	eventBus interfaces.EventBus
	logger   interfaces.Logger
}

// NewDedupService creates a new dedup service.
func NewDedupService(repo repository.Repository, eventBus interfaces.EventBus, logger interfaces.Logger) *DedupService {
	return &DedupService{
		repo:     repo,
		eventBus: eventBus,
		logger:   logger,
	}
}

// FindDuplicateEpisodes scans a celebrity scope and plans merges. Two
// episodes are duplicates when they share an external ref, or failing
// that a normalized title. The oldest row survives so existing inbound
// references stay valid.
func (s *DedupService) FindDuplicateEpisodes(ctx context.Context, celebrityID uuid.UUID) ([]MergePlan, error) {
	episodes, err := s.repo.ListEpisodesByCelebrity(ctx, celebrityID)
	if err != nil {
		return nil, err
	}

	var plans []MergePlan
	planned := make(map[uuid.UUID]bool)

	// Pass one: same external ref. The unique index blocks these going
	// forward, but rows imported before it existed can still collide.
	byRef := make(map[string][]*models.Episode)
	for _, ep := range episodes {
		if ep.ExternalRef == "" {
			continue
		}
		key := ep.ExternalPlatform + "|" + ep.ExternalRef
		byRef[key] = append(byRef[key], ep)
	}
	for _, group := range byRef {
		if plan, ok := planFromGroup(group, "same external ref", planned); ok {
			plans = append(plans, plan)
		}
	}

	// Pass two: same normalized title among rows not already planned.
	byTitle := make(map[string][]*models.Episode)
	for _, ep := range episodes {
		if planned[ep.ID] {
			continue
		}
		title := ep.NormalizedTitle
		if title == "" {
			title = domain.Normalize(ep.Title)
		}
		if title == "" {
			continue
		}
		byTitle[title] = append(byTitle[title], ep)
	}
	for _, group := range byTitle {
		if plan, ok := planFromGroup(group, "same normalized title", planned); ok {
			plans = append(plans, plan)
		}
	}

	return plans, nil
}

// planFromGroup keeps the first episode of a sorted group (the lists
// come back ordered by created_at, id) and plans the rest away.
func planFromGroup(group []*models.Episode, reason string, planned map[uuid.UUID]bool) (MergePlan, bool) {
	if len(group) < 2 {
		return MergePlan{}, false
	}
	plan := MergePlan{KeepID: group[0].ID, Reason: reason}
	planned[group[0].ID] = true
	for _, ep := range group[1:] {
		plan.MergeIDs = append(plan.MergeIDs, ep.ID)
		planned[ep.ID] = true
	}
	return plan, true
}

// MergeEpisodes executes a merge plan.
func (s *DedupService) MergeEpisodes(ctx context.Context, plan MergePlan) error {
	if err := s.repo.MergeEpisodes(ctx, plan.KeepID, plan.MergeIDs); err != nil {
		return err
	}
	s.logger.Info("merged duplicate episodes",
		interfaces.String("keep_id", plan.KeepID.String()),
		interfaces.Int("merged", len(plan.MergeIDs)),
		interfaces.String("reason", plan.Reason))
	if s.eventBus != nil {
		s.eventBus.PublishAsync(ctx, domain.NewEpisodeMergedEvent(plan.KeepID, plan.MergeIDs))
	}
	return nil
}

// FindDuplicateLocations plans merges for locations sharing a normalized
// name within the scope.
func (s *DedupService) FindDuplicateLocations(ctx context.Context, celebrityID uuid.UUID) ([]MergePlan, error) {
	locations, err := s.repo.ListLocationsByCelebrity(ctx, celebrityID)
	if err != nil {
		return nil, err
	}

	byName := make(map[string][]*models.Location)
	for _, loc := range locations {
		name := loc.NormalizedName
		if name == "" {
			name = domain.Normalize(loc.Name)
		}
		byName[name] = append(byName[name], loc)
	}

	var plans []MergePlan
	for _, group := range byName {
		if len(group) < 2 {
			continue
		}
		plan := MergePlan{KeepID: group[0].ID, Reason: "same normalized name"}
		for _, loc := range group[1:] {
			plan.MergeIDs = append(plan.MergeIDs, loc.ID)
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

// MergeLocations executes a location merge plan.
func (s *DedupService) MergeLocations(ctx context.Context, plan MergePlan) error {
	if err := s.repo.MergeLocations(ctx, plan.KeepID, plan.MergeIDs); err != nil {
		return err
	}
	s.logger.Info("merged duplicate locations",
		interfaces.String("keep_id", plan.KeepID.String()),
		interfaces.Int("merged", len(plan.MergeIDs)))
	return nil
}

// FindDuplicateItems plans merges for items sharing a normalized name
// within the scope.
func (s *DedupService) FindDuplicateItems(ctx context.Context, celebrityID uuid.UUID) ([]MergePlan, error) {
	items, err := s.repo.ListItemsByCelebrity(ctx, celebrityID)
	if err != nil {
		return nil, err
	}

	byName := make(map[string][]*models.Item)
	for _, item := range items {
		name := item.NormalizedName
		if name == "" {
			name = domain.Normalize(item.Name)
		}
		byName[name] = append(byName[name], item)
	}

	var plans []MergePlan
	for _, group := range byName {
		if len(group) < 2 {
			continue
		}
		plan := MergePlan{KeepID: group[0].ID, Reason: "same normalized name"}
		for _, item := range group[1:] {
			plan.MergeIDs = append(plan.MergeIDs, item.ID)
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

// MergeItems executes an item merge plan.
func (s *DedupService) MergeItems(ctx context.Context, plan MergePlan) error {
	if err := s.repo.MergeItems(ctx, plan.KeepID, plan.MergeIDs); err != nil {
		return err
	}
	s.logger.Info("merged duplicate items",
		interfaces.String("keep_id", plan.KeepID.String()),
		interfaces.Int("merged", len(plan.MergeIDs)))
	return nil
}

// FindShortFormEpisodes lists episodes whose titles mark them as
// short-form noise.
func (s *DedupService) FindShortFormEpisodes(ctx context.Context, celebrityID uuid.UUID) ([]*models.Episode, error) {
	episodes, err := s.repo.ListEpisodesByCelebrity(ctx, celebrityID)
	if err != nil {
		return nil, err
	}
	var shorts []*models.Episode
	for _, ep := range episodes {
		if domain.IsShortForm(ep.Title) {
			shorts = append(shorts, ep)
		}
	}
	return shorts, nil
}

// PurgeShortForm removes short-form noise episodes from a scope and
// returns the ids of the purged rows, so callers can drop any bookkeeping
// that still points at them. Entities they referenced become orphans for
// the sweep to report.
func (s *DedupService) PurgeShortForm(ctx context.Context, celebrityID uuid.UUID) ([]uuid.UUID, error) {
	shorts, err := s.FindShortFormEpisodes(ctx, celebrityID)
	if err != nil {
		return nil, err
	}
	var purged []uuid.UUID
	for _, ep := range shorts {
		if err := s.repo.PurgeEpisode(ctx, ep.ID); err != nil {
			return purged, err
		}
		purged = append(purged, ep.ID)
		s.logger.Info("purged short-form episode",
			interfaces.String("episode_id", ep.ID.String()),
			interfaces.String("title", ep.Title))
	}
	return purged, nil
}
