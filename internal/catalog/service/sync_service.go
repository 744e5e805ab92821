package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fanloremedia/fanlore/internal/catalog/domain"
	"github.com/fanloremedia/fanlore/internal/catalog/repository"
	"github.com/fanloremedia/fanlore/internal/catalog/source"
	pkgerrors "github.com/fanloremedia/fanlore/pkg/errors"
	"github.com/fanloremedia/fanlore/pkg/interfaces"
	"github.com/fanloremedia/fanlore/pkg/models"
)

// RunOptions configures one sync run.
type RunOptions struct {
	CelebrityID     uuid.UUID
	DryRun          bool
	RepairOrphans   bool
	MergeDuplicates bool
	PurgeShortForm  bool
}

// SyncConfig tunes the fetch loop.
type SyncConfig struct {
	PageSize     int
	FetchTimeout time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// SyncService orchestrates one batch run: fetch candidate pages,
// classify them against the scope, persist, link, annotate, report.
// Every step downstream of fetch is idempotent, so an interrupted run is
// simply rerun.
type SyncService struct {
	repo     repository.Repository
	src      source.CandidateSource
	links    *LinkService
	dedup    *DedupService
	monetize *MonetizeService
	eventBus interfaces.EventBus
	logger   interfaces.Logger
	cfg      SyncConfig
}

// NewSyncService creates a new sync orchestrator.
func NewSyncService(
	repo repository.Repository,
	src source.CandidateSource,
	links *LinkService,
	dedup *DedupService,
	monetize *MonetizeService,
	eventBus interfaces.EventBus,
	logger interfaces.Logger,
	cfg SyncConfig,
) *SyncService {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 2 * time.Second
	}
	return &SyncService{
		repo:     repo,
		src:      src,
		links:    links,
		dedup:    dedup,
		monetize: monetize,
		eventBus: eventBus,
		logger:   logger,
		cfg:      cfg,
	}
}

// Run executes one sync run for a celebrity and returns the run report.
func (s *SyncService) Run(ctx context.Context, opts RunOptions) (*models.SyncRun, error) {
	celebrity, err := s.repo.GetCelebrity(ctx, opts.CelebrityID)
	if err != nil {
		return nil, err
	}

	run := &models.SyncRun{
		ID:          uuid.New(),
		CelebrityID: celebrity.ID,
		State:       models.SyncRunStateFetching,
		DryRun:      opts.DryRun,
		StartedAt:   time.Now(),
	}
	if err := s.saveRun(ctx, run, true); err != nil {
		return nil, err
	}

	log := s.logger.WithFields(
		interfaces.String("run_id", run.ID.String()),
		interfaces.String("celebrity", celebrity.Slug))
	log.Info("sync run started", interfaces.Bool("dry_run", opts.DryRun))

	records, err := s.fetchAll(ctx, celebrity.Slug)
	if err != nil {
		return s.abort(ctx, run, err)
	}

	if err := s.transition(ctx, run, models.SyncRunStateClassifying); err != nil {
		return nil, err
	}
	scope, err := s.loadScope(ctx, celebrity.ID)
	if err != nil {
		return s.abort(ctx, run, err)
	}

	if opts.DryRun {
		s.classifyOnly(scope, celebrity.ID, records, run)
		run.State = models.SyncRunStateReported
		now := time.Now()
		run.CompletedAt = &now
		log.Info("dry run complete",
			interfaces.Int("would_create", run.Created),
			interfaces.Int("would_update", run.Updated))
		return run, nil
	}

	if err := s.transition(ctx, run, models.SyncRunStatePersisting); err != nil {
		return nil, err
	}

	// episodeOf remembers which episode each entity touched this run, so
	// the orphan repair pass never has to guess a parent.
	episodeOf := make(map[uuid.UUID]uuid.UUID)
	annotations := make(map[uuid.UUID]pendingAnnotation)

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return s.abort(ctx, run, pkgerrors.Timeout("run cancelled", err))
		}
		s.processRecord(ctx, scope, celebrity.ID, record, run, episodeOf, annotations)
		if err := s.saveRun(ctx, run, false); err != nil {
			return nil, err
		}
	}

	if err := s.transition(ctx, run, models.SyncRunStateLinking); err != nil {
		return nil, err
	}
	if opts.PurgeShortForm {
		purged, err := s.dedup.PurgeShortForm(ctx, celebrity.ID)
		if err != nil {
			s.recordError(run, "", err)
		} else if len(purged) > 0 {
			log.Info("purged short-form episodes", interfaces.Int("count", len(purged)))
		}
		// A purged episode is no repair target. Entities it owned fall
		// back to the orphan report.
		for entityID, episodeID := range episodeOf {
			for _, purgedID := range purged {
				if episodeID == purgedID {
					delete(episodeOf, entityID)
				}
			}
		}
	}
	if opts.MergeDuplicates {
		s.mergeDuplicates(ctx, celebrity.ID, run, episodeOf)
	}
	if opts.RepairOrphans {
		s.repairOrphans(ctx, celebrity.ID, run, episodeOf)
	}

	if err := s.transition(ctx, run, models.SyncRunStateAnnotating); err != nil {
		return nil, err
	}
	s.applyAnnotations(ctx, run, annotations)

	run.State = models.SyncRunStateReported
	now := time.Now()
	run.CompletedAt = &now
	if err := s.saveRun(ctx, run, false); err != nil {
		return nil, err
	}

	log.Info("sync run complete",
		interfaces.Int("created", run.Created),
		interfaces.Int("updated", run.Updated),
		interfaces.Int("linked", run.Linked),
		interfaces.Int("skipped", run.Skipped),
		interfaces.Int("failed", run.Failed))

	if s.eventBus != nil {
		s.eventBus.PublishAsync(ctx, domain.NewSyncCompletedEvent(run))
	}
	return run, nil
}

// fetchAll pages through the source until exhausted. Transient failures
// retry with linear backoff; anything else aborts the run.
func (s *SyncService) fetchAll(ctx context.Context, celebritySlug string) ([]source.Record, error) {
	var records []source.Record
	pageToken := ""
	for {
		page, err := s.fetchPage(ctx, celebritySlug, pageToken)
		if err != nil {
			return nil, err
		}
		records = append(records, page.Records...)
		if page.NextPageToken == "" {
			return records, nil
		}
		pageToken = page.NextPageToken
	}
}

func (s *SyncService) fetchPage(ctx context.Context, celebritySlug, pageToken string) (*source.Page, error) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
		page, err := s.src.FetchPage(fetchCtx, celebritySlug, pageToken, s.cfg.PageSize)
		cancel()
		if err == nil {
			return page, nil
		}
		lastErr = err
		if !pkgerrors.IsRetryable(err) {
			return nil, err
		}
		s.logger.Warn("fetch attempt failed",
			interfaces.Int("attempt", attempt),
			interfaces.Error(err))
		if attempt < s.cfg.MaxRetries {
			select {
			case <-time.After(s.cfg.RetryBackoff * time.Duration(attempt)):
			case <-ctx.Done():
				return nil, pkgerrors.Timeout("run cancelled during fetch backoff", ctx.Err())
			}
		}
	}
	return nil, lastErr
}

// loadScope builds the in-memory resolver index from everything already
// in the celebrity's graph.
func (s *SyncService) loadScope(ctx context.Context, celebrityID uuid.UUID) (*domain.ScopeIndex, error) {
	scope := domain.NewScopeIndex(celebrityID)

	episodes, err := s.repo.ListEpisodesByCelebrity(ctx, celebrityID)
	if err != nil {
		return nil, err
	}
	for _, ep := range episodes {
		scope.AddEpisode(ep)
	}

	locations, err := s.repo.ListLocationsByCelebrity(ctx, celebrityID)
	if err != nil {
		return nil, err
	}
	for _, loc := range locations {
		scope.AddLocation(loc)
	}

	items, err := s.repo.ListItemsByCelebrity(ctx, celebrityID)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		scope.AddItem(item)
	}

	return scope, nil
}

// classifyOnly walks the records against the scope without writing,
// counting what a real run would do.
func (s *SyncService) classifyOnly(scope *domain.ScopeIndex, celebrityID uuid.UUID, records []source.Record, run *models.SyncRun) {
	for _, record := range records {
		if domain.IsShortForm(record.Title) {
			run.Skipped++
			continue
		}
		candidates := []domain.Candidate{{
			Type:             models.EntityTypeEpisode,
			Name:             record.Title,
			CelebrityID:      celebrityID,
			ExternalPlatform: record.Platform,
			ExternalRef:      record.ExternalRef,
		}}
		for _, loc := range record.Locations {
			candidates = append(candidates, domain.Candidate{
				Type: models.EntityTypeLocation, Name: loc.Name, CelebrityID: celebrityID,
			})
		}
		for _, item := range record.Items {
			candidates = append(candidates, domain.Candidate{
				Type: models.EntityTypeItem, Name: item.Name, CelebrityID: celebrityID,
			})
		}
		for _, c := range candidates {
			resolution, err := domain.Resolve(scope, c)
			if err != nil {
				s.recordError(run, "", err)
				continue
			}
			if resolution.Decision == domain.DecisionNew {
				run.Created++
				// Index the would-be entity so later records in the
				// same run count as updates, mirroring a real run.
				scope.Add(c.Type, uuid.New(), resolution.NormalizedName, c.ExternalPlatform, c.ExternalRef)
			} else {
				run.Updated++
			}
		}
	}
}

type pendingAnnotation struct {
	entityType models.EntityType
	candidate  ListingCandidate
}

// processRecord runs one candidate record through persist and link. A
// failure on one record is recorded and never stops the run.
func (s *SyncService) processRecord(
	ctx context.Context,
	scope *domain.ScopeIndex,
	celebrityID uuid.UUID,
	record source.Record,
	run *models.SyncRun,
	episodeOf map[uuid.UUID]uuid.UUID,
	annotations map[uuid.UUID]pendingAnnotation,
) {
	if domain.IsShortForm(record.Title) {
		run.Skipped++
		return
	}

	resolution, err := domain.Resolve(scope, domain.Candidate{
		Type:             models.EntityTypeEpisode,
		Name:             record.Title,
		CelebrityID:      celebrityID,
		ExternalPlatform: record.Platform,
		ExternalRef:      record.ExternalRef,
	})
	if err != nil {
		s.recordError(run, record.ExternalRef, err)
		return
	}

	episode := &models.Episode{
		CelebrityID:      celebrityID,
		Title:            record.Title,
		NormalizedTitle:  resolution.NormalizedName,
		AirDate:          record.PublishedAt,
		ExternalPlatform: record.Platform,
		ExternalRef:      record.ExternalRef,
	}
	epResult, err := s.repo.UpsertEpisode(ctx, episode, false)
	if err != nil {
		s.recordError(run, record.ExternalRef, err)
		return
	}
	s.tally(run, epResult.Created)
	if epResult.Created {
		scope.Add(models.EntityTypeEpisode, epResult.ID, resolution.NormalizedName, record.Platform, record.ExternalRef)
		if s.eventBus != nil {
			episode.ID = epResult.ID
			s.eventBus.PublishAsync(ctx, domain.NewEpisodeCreatedEvent(episode))
		}
	}

	for _, loc := range record.Locations {
		// Listing URLs go through the annotation gate, not the upsert.
		location := &models.Location{
			CelebrityID: celebrityID,
			Name:        loc.Name,
			Address:     loc.Address,
			Tags:        loc.Tags,
		}
		result, err := s.repo.UpsertLocation(ctx, location, false)
		if err != nil {
			s.recordError(run, loc.Name, err)
			continue
		}
		s.tally(run, result.Created)
		if result.Created {
			scope.Add(models.EntityTypeLocation, result.ID, domain.Normalize(loc.Name), "", "")
		}
		if result.SlugCollision {
			s.recordError(run, result.ID.String(),
				pkgerrors.SlugCollision("slug taken, persisted as "+result.Slug))
		}
		created, err := s.links.Link(ctx, epResult.ID, result.ID, models.EntityTypeLocation)
		if err != nil {
			s.recordError(run, result.ID.String(), err)
			continue
		}
		if created {
			run.Linked++
		}
		episodeOf[result.ID] = epResult.ID
		if loc.ListingURL != "" {
			annotations[result.ID] = pendingAnnotation{
				entityType: models.EntityTypeLocation,
				candidate:  ListingCandidate{URL: loc.ListingURL, Provider: loc.ListingProvider},
			}
		}
	}

	for _, itemRec := range record.Items {
		item := &models.Item{
			CelebrityID: celebrityID,
			Name:        itemRec.Name,
			Price:       itemRec.Price,
			Tags:        itemRec.Tags,
		}
		result, err := s.repo.UpsertItem(ctx, item, false)
		if err != nil {
			s.recordError(run, itemRec.Name, err)
			continue
		}
		s.tally(run, result.Created)
		if result.Created {
			scope.Add(models.EntityTypeItem, result.ID, domain.Normalize(itemRec.Name), "", "")
		}
		if result.SlugCollision {
			s.recordError(run, result.ID.String(),
				pkgerrors.SlugCollision("slug taken, persisted as "+result.Slug))
		}
		created, err := s.links.Link(ctx, epResult.ID, result.ID, models.EntityTypeItem)
		if err != nil {
			s.recordError(run, result.ID.String(), err)
			continue
		}
		if created {
			run.Linked++
		}
		episodeOf[result.ID] = epResult.ID
		if itemRec.AffiliateURL != "" {
			annotations[result.ID] = pendingAnnotation{
				entityType: models.EntityTypeItem,
				candidate:  ListingCandidate{URL: itemRec.AffiliateURL, Provider: itemRec.AffiliateProvider},
			}
		}
	}
}

// mergeDuplicates plans and executes episode merges within the scope.
// Run bookkeeping pointing at a merged-away episode follows it to the
// survivor, so a later repair never targets a removed row.
func (s *SyncService) mergeDuplicates(ctx context.Context, celebrityID uuid.UUID, run *models.SyncRun, episodeOf map[uuid.UUID]uuid.UUID) {
	plans, err := s.dedup.FindDuplicateEpisodes(ctx, celebrityID)
	if err != nil {
		s.recordError(run, "", err)
		return
	}
	for _, plan := range plans {
		if err := s.dedup.MergeEpisodes(ctx, plan); err != nil {
			s.recordError(run, plan.KeepID.String(), err)
			continue
		}
		for entityID, episodeID := range episodeOf {
			for _, mergedID := range plan.MergeIDs {
				if episodeID == mergedID {
					episodeOf[entityID] = plan.KeepID
				}
			}
		}
	}
}

// repairOrphans attaches orphans whose parent episode this run touched.
// Orphans with no safe candidate are reported, never guessed at.
func (s *SyncService) repairOrphans(ctx context.Context, celebrityID uuid.UUID, run *models.SyncRun, episodeOf map[uuid.UUID]uuid.UUID) {
	orphans, err := s.links.FindOrphans(ctx, celebrityID)
	if err != nil {
		s.recordError(run, "", err)
		return
	}
	for _, orphan := range orphans {
		episodeID, ok := episodeOf[orphan.EntityID]
		if !ok {
			s.recordError(run, orphan.EntityID.String(),
				pkgerrors.AmbiguousOrphan("no episode identified for "+orphan.Name))
			continue
		}
		if err := s.links.RepairOrphan(ctx, orphan.EntityID, orphan.EntityType, episodeID); err != nil {
			s.recordError(run, orphan.EntityID.String(), err)
			continue
		}
		run.Linked++
	}
}

// applyAnnotations writes the listing metadata gathered during persist.
// Rejected candidates become report entries; the run keeps going.
func (s *SyncService) applyAnnotations(ctx context.Context, run *models.SyncRun, annotations map[uuid.UUID]pendingAnnotation) {
	for id, pending := range annotations {
		var err error
		switch pending.entityType {
		case models.EntityTypeLocation:
			_, err = s.monetize.AnnotateLocation(ctx, id, pending.candidate)
		case models.EntityTypeItem:
			_, err = s.monetize.AnnotateItem(ctx, id, pending.candidate)
		}
		if err != nil {
			s.recordError(run, id.String(), err)
		}
	}
}

func (s *SyncService) tally(run *models.SyncRun, created bool) {
	if created {
		run.Created++
	} else {
		run.Updated++
	}
}

func (s *SyncService) recordError(run *models.SyncRun, entityID string, err error) {
	run.Failed++
	run.Errors = append(run.Errors, models.RunError{
		EntityID: entityID,
		Type:     string(pkgerrors.TypeOf(err)),
		Reason:   err.Error(),
	})
}

// transition advances the persisted state machine.
func (s *SyncService) transition(ctx context.Context, run *models.SyncRun, state models.SyncRunState) error {
	run.State = state
	return s.saveRun(ctx, run, false)
}

// abort marks the run failed and returns the triggering error. The
// partial run record stays inspectable; every downstream write is
// idempotent so a rerun picks up cleanly.
func (s *SyncService) abort(ctx context.Context, run *models.SyncRun, cause error) (*models.SyncRun, error) {
	s.recordError(run, "", cause)
	run.State = models.SyncRunStateAborted
	now := time.Now()
	run.CompletedAt = &now
	if !run.DryRun {
		if err := s.saveRun(ctx, run, false); err != nil {
			s.logger.Error("failed to persist aborted run", interfaces.Error(err))
		}
	}
	s.logger.Error("sync run aborted",
		interfaces.String("run_id", run.ID.String()),
		interfaces.Error(cause))
	return run, cause
}

// saveRun persists run progress. Dry runs are kept in memory only.
func (s *SyncService) saveRun(ctx context.Context, run *models.SyncRun, create bool) error {
	if run.DryRun {
		return nil
	}
	if create {
		return s.repo.CreateSyncRun(ctx, run)
	}
	return s.repo.UpdateSyncRun(ctx, run)
}

// LatestRun returns the most recent run report for a celebrity.
func (s *SyncService) LatestRun(ctx context.Context, celebrityID uuid.UUID) (*models.SyncRun, error) {
	return s.repo.GetLatestSyncRun(ctx, celebrityID)
}
