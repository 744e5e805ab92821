package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/fanloremedia/fanlore/internal/catalog/repository"
	"github.com/fanloremedia/fanlore/internal/catalog/service"
	"github.com/fanloremedia/fanlore/internal/catalog/source"
	"github.com/fanloremedia/fanlore/pkg/cache"
	pkgerrors "github.com/fanloremedia/fanlore/pkg/errors"
	"github.com/fanloremedia/fanlore/pkg/logger"
	"github.com/fanloremedia/fanlore/pkg/models"
	"github.com/fanloremedia/fanlore/test/testutil"
)

// fakeSource serves canned pages. failures makes the first N calls fail
// with a retryable error.
type fakeSource struct {
	pages    []source.Page
	failures int
	calls    int
}

func (f *fakeSource) FetchPage(ctx context.Context, celebritySlug, pageToken string, pageSize int) (*source.Page, error) {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, pkgerrors.ExternalFetchFailure("transient upstream failure", nil)
	}
	idx := 0
	if pageToken != "" {
		idx = int(pageToken[0] - '0')
	}
	if idx >= len(f.pages) {
		return &source.Page{}, nil
	}
	return &f.pages[idx], nil
}

type SyncServiceTestSuite struct {
	suite.Suite

	ctx       context.Context
	db        *gorm.DB
	repo      *repository.GormRepository
	celebrity *models.Celebrity
}

func TestSyncServiceTestSuite(t *testing.T) {
	suite.Run(t, new(SyncServiceTestSuite))
}

func (s *SyncServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = testutil.NewTestDB(s.T())
	s.repo = repository.NewGormRepository(s.db)

	s.celebrity = testutil.CreateTestCelebrity("Hikari Tanaka")
	s.Require().NoError(s.repo.CreateCelebrity(s.ctx, s.celebrity))
}

func (s *SyncServiceTestSuite) newSync(src source.CandidateSource) *service.SyncService {
	log := logger.NewNoop()
	links := service.NewLinkService(s.repo, nil, cache.NewInMemoryCache(), log)
	dedup := service.NewDedupService(s.repo, nil, log)
	monetize := service.NewMonetizeService(s.repo, nil, log, testProviders)
	return service.NewSyncService(s.repo, src, links, dedup, monetize, nil, log, service.SyncConfig{
		RetryBackoff: time.Millisecond,
	})
}

func (s *SyncServiceTestSuite) pages() []source.Page {
	return []source.Page{
		{
			Records: []source.Record{
				{
					ExternalRef: "vid-1",
					Platform:    "youtube",
					Title:       "Tokyo Walking Tour #12",
					PublishedAt: testutil.AirDate(2024, 3, 10),
					Locations: []source.LocationRecord{
						{
							Name:       "Daiso Harajuku",
							Tags:       []string{"100yen"},
							ListingURL: "https://tabelog.com/tokyo/A1306/daiso",
						},
					},
					Items: []source.ItemRecord{
						{
							Name:         "Travel Tripod",
							Price:        4980,
							AffiliateURL: "https://amazon.co.jp/dp/B000TRIPOD",
						},
					},
				},
				{
					ExternalRef: "vid-2",
					Platform:    "youtube",
					Title:       "Quick Peek #shorts",
				},
			},
			NextPageToken: "1",
		},
		{
			Records: []source.Record{
				{
					ExternalRef: "vid-3",
					Platform:    "youtube",
					Title:       "Harajuku Haul ep. 2",
					Locations: []source.LocationRecord{
						// Same store again: must resolve to the row
						// created for vid-1.
						{Name: "  DAISO   Harajuku "},
					},
				},
			},
		},
	}
}

func (s *SyncServiceTestSuite) TestRunCreatesGraph() {
	sync := s.newSync(&fakeSource{pages: s.pages()})

	run, err := sync.Run(s.ctx, service.RunOptions{CelebrityID: s.celebrity.ID})
	s.Require().NoError(err)
	s.Equal(models.SyncRunStateReported, run.State)

	// Two real episodes, one location, one item. The short is skipped.
	s.Equal(4, run.Created)
	s.Equal(1, run.Skipped)
	s.Equal(0, run.Failed)
	s.Equal(3, run.Linked)

	episodes, err := s.repo.ListEpisodesByCelebrity(s.ctx, s.celebrity.ID)
	s.Require().NoError(err)
	s.Len(episodes, 2)

	locations, err := s.repo.ListLocationsByCelebrity(s.ctx, s.celebrity.ID)
	s.Require().NoError(err)
	s.Require().Len(locations, 1, "the re-mentioned store must not duplicate")
	s.Equal("https://tabelog.com/tokyo/A1306/daiso", locations[0].ListingURL)

	items, err := s.repo.ListItemsByCelebrity(s.ctx, s.celebrity.ID)
	s.Require().NoError(err)
	s.Require().Len(items, 1)
	s.Equal("https://amazon.co.jp/dp/B000TRIPOD", items[0].AffiliateURL)
}

func (s *SyncServiceTestSuite) TestRerunIsIdempotent() {
	sync := s.newSync(&fakeSource{pages: s.pages()})

	_, err := sync.Run(s.ctx, service.RunOptions{CelebrityID: s.celebrity.ID})
	s.Require().NoError(err)

	rerun, err := sync.Run(s.ctx, service.RunOptions{CelebrityID: s.celebrity.ID})
	s.Require().NoError(err)

	s.Equal(0, rerun.Created, "a rerun of the same pages must create nothing")
	s.Equal(0, rerun.Linked)
	s.Equal(0, rerun.Failed)

	episodes, err := s.repo.ListEpisodesByCelebrity(s.ctx, s.celebrity.ID)
	s.Require().NoError(err)
	s.Len(episodes, 2)
}

func (s *SyncServiceTestSuite) TestDryRunWritesNothing() {
	sync := s.newSync(&fakeSource{pages: s.pages()})

	run, err := sync.Run(s.ctx, service.RunOptions{CelebrityID: s.celebrity.ID, DryRun: true})
	s.Require().NoError(err)
	s.True(run.DryRun)
	s.Equal(models.SyncRunStateReported, run.State)
	s.Equal(4, run.Created, "dry run reports what it would create")

	episodes, err := s.repo.ListEpisodesByCelebrity(s.ctx, s.celebrity.ID)
	s.Require().NoError(err)
	s.Empty(episodes)

	_, err = s.repo.GetLatestSyncRun(s.ctx, s.celebrity.ID)
	s.True(pkgerrors.IsNotFound(err), "dry runs leave no run record")
}

func (s *SyncServiceTestSuite) TestFetchRetriesTransientFailures() {
	src := &fakeSource{pages: s.pages(), failures: 2}
	sync := s.newSync(src)

	run, err := sync.Run(s.ctx, service.RunOptions{CelebrityID: s.celebrity.ID})
	s.Require().NoError(err, "two transient failures fit inside three attempts")
	s.Equal(models.SyncRunStateReported, run.State)
}

func (s *SyncServiceTestSuite) TestFetchExhaustionAbortsRun() {
	src := &fakeSource{pages: s.pages(), failures: 10}
	sync := s.newSync(src)

	run, err := sync.Run(s.ctx, service.RunOptions{CelebrityID: s.celebrity.ID})
	s.Require().Error(err)
	s.True(pkgerrors.IsExternalFetchFailure(err))
	s.Equal(models.SyncRunStateAborted, run.State)

	// The aborted run stays inspectable.
	latest, err := s.repo.GetLatestSyncRun(s.ctx, s.celebrity.ID)
	s.Require().NoError(err)
	s.Equal(models.SyncRunStateAborted, latest.State)
	s.NotEmpty(latest.Errors)
}

func (s *SyncServiceTestSuite) TestRepairOrphansDuringRun() {
	// A pre-existing orphan this run cannot place, plus a record whose
	// entities the run does place.
	orphan, err := s.repo.UpsertLocation(s.ctx, &models.Location{
		CelebrityID: s.celebrity.ID, Name: "Forgotten Cafe",
	}, false)
	s.Require().NoError(err)

	sync := s.newSync(&fakeSource{pages: s.pages()})
	run, err := sync.Run(s.ctx, service.RunOptions{
		CelebrityID:   s.celebrity.ID,
		RepairOrphans: true,
	})
	s.Require().NoError(err)

	// The unplaceable orphan surfaces as a report entry, not a guess.
	found := false
	for _, runErr := range run.Errors {
		if runErr.EntityID == orphan.ID.String() {
			s.Equal(string(pkgerrors.ErrorTypeAmbiguousOrphan), runErr.Type)
			found = true
		}
	}
	s.True(found, "expected an ambiguous-orphan report entry")

	stored, err := s.repo.GetLocation(s.ctx, orphan.ID)
	s.Require().NoError(err)
	s.Nil(stored.EpisodeID)
}

func (s *SyncServiceTestSuite) TestPurgedEpisodeNeverRepairedInto() {
	// A pre-existing short-form episode that an incoming record resolves
	// onto by normalized title. The purge pass removes it mid-run; the
	// repair pass must not reattach its entities to the removed row.
	short := testutil.CreateTestEpisode(s.celebrity.ID, "Quick Peek #shorts", "youtube", "vid-short")
	s.Require().NoError(s.db.Create(short).Error)

	pages := []source.Page{{
		Records: []source.Record{{
			Platform:  "youtube",
			Title:     "Quick Peek",
			Locations: []source.LocationRecord{{Name: "Pop Up Stand"}},
		}},
	}}
	sync := s.newSync(&fakeSource{pages: pages})

	run, err := sync.Run(s.ctx, service.RunOptions{
		CelebrityID:    s.celebrity.ID,
		PurgeShortForm: true,
		RepairOrphans:  true,
	})
	s.Require().NoError(err)

	episodes, err := s.repo.ListEpisodesByCelebrity(s.ctx, s.celebrity.ID)
	s.Require().NoError(err)
	s.Empty(episodes)

	locations, err := s.repo.ListLocationsByCelebrity(s.ctx, s.celebrity.ID)
	s.Require().NoError(err)
	s.Require().Len(locations, 1)
	s.Nil(locations[0].EpisodeID, "the location must stay an orphan, not point at a removed episode")

	links, err := s.repo.CountLocationLinks(s.ctx, locations[0].ID)
	s.Require().NoError(err)
	s.Zero(links)

	found := false
	for _, runErr := range run.Errors {
		if runErr.EntityID == locations[0].ID.String() {
			s.Equal(string(pkgerrors.ErrorTypeAmbiguousOrphan), runErr.Type)
			found = true
		}
	}
	s.True(found, "expected an ambiguous-orphan report entry for the stranded location")
}

func (s *SyncServiceTestSuite) TestMergedEpisodeReferencesFollowSurvivor() {
	legacy := testutil.CreateTestEpisode(s.celebrity.ID, "Tokyo Walking Tour #11", "youtube", "vid-old")
	s.Require().NoError(s.db.Create(legacy).Error)
	dupe := testutil.CreateTestEpisode(s.celebrity.ID, "Tokyo Walking Tour ep. 11", "youtube", "vid-old-2")
	dupe.CreatedAt = legacy.CreatedAt.Add(time.Minute)
	s.Require().NoError(s.db.Create(dupe).Error)

	// The incoming record attaches a location to the duplicate, which the
	// merge pass then folds into the older survivor.
	pages := []source.Page{{
		Records: []source.Record{{
			ExternalRef: "vid-old-2",
			Platform:    "youtube",
			Title:       "Tokyo Walking Tour ep. 11",
			Locations:   []source.LocationRecord{{Name: "Nakamise Street"}},
		}},
	}}
	sync := s.newSync(&fakeSource{pages: pages})

	run, err := sync.Run(s.ctx, service.RunOptions{
		CelebrityID:     s.celebrity.ID,
		MergeDuplicates: true,
		RepairOrphans:   true,
	})
	s.Require().NoError(err)
	s.Equal(0, run.Failed)

	episodes, err := s.repo.ListEpisodesByCelebrity(s.ctx, s.celebrity.ID)
	s.Require().NoError(err)
	s.Require().Len(episodes, 1)
	s.Equal(legacy.ID, episodes[0].ID)

	locations, err := s.repo.ListLocationsByCelebrity(s.ctx, s.celebrity.ID)
	s.Require().NoError(err)
	s.Require().Len(locations, 1)
	s.Require().NotNil(locations[0].EpisodeID)
	s.Equal(legacy.ID, *locations[0].EpisodeID)

	links, err := s.repo.ListEpisodeLocationLinks(s.ctx, legacy.ID)
	s.Require().NoError(err)
	s.Len(links, 1)
}

func (s *SyncServiceTestSuite) TestMergeDuplicatesDuringRun() {
	// Legacy duplicate pair sharing a normalized title.
	legacy := testutil.CreateTestEpisode(s.celebrity.ID, "Tokyo Walking Tour #11", "youtube", "vid-old")
	s.Require().NoError(s.db.Create(legacy).Error)
	dupe := testutil.CreateTestEpisode(s.celebrity.ID, "Tokyo Walking Tour ep. 11", "youtube", "vid-old-2")
	dupe.CreatedAt = legacy.CreatedAt.Add(time.Minute)
	s.Require().NoError(s.db.Create(dupe).Error)

	sync := s.newSync(&fakeSource{pages: []source.Page{{}}})
	run, err := sync.Run(s.ctx, service.RunOptions{
		CelebrityID:     s.celebrity.ID,
		MergeDuplicates: true,
	})
	s.Require().NoError(err)
	s.Equal(0, run.Failed)

	episodes, err := s.repo.ListEpisodesByCelebrity(s.ctx, s.celebrity.ID)
	s.Require().NoError(err)
	s.Len(episodes, 1)
}
