package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/fanloremedia/fanlore/internal/catalog/repository"
	"github.com/fanloremedia/fanlore/internal/catalog/service"
	"github.com/fanloremedia/fanlore/pkg/logger"
	"github.com/fanloremedia/fanlore/pkg/models"
	"github.com/fanloremedia/fanlore/test/testutil"
)

type DedupServiceTestSuite struct {
	suite.Suite

	ctx       context.Context
	db        *gorm.DB
	repo      *repository.GormRepository
	svc       *service.DedupService
	celebrity *models.Celebrity
	seedClock time.Time
}

func TestDedupServiceTestSuite(t *testing.T) {
	suite.Run(t, new(DedupServiceTestSuite))
}

func (s *DedupServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = testutil.NewTestDB(s.T())
	s.repo = repository.NewGormRepository(s.db)
	s.svc = service.NewDedupService(s.repo, nil, logger.NewNoop())

	s.celebrity = testutil.CreateTestCelebrity("Hikari Tanaka")
	s.Require().NoError(s.repo.CreateCelebrity(s.ctx, s.celebrity))
	s.seedClock = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
}

// seedEpisode inserts directly, bypassing upsert, the way legacy rows
// got in before reconciliation existed. Timestamps step forward so the
// keep-the-oldest rule is deterministic.
func (s *DedupServiceTestSuite) seedEpisode(title, platform, ref string) *models.Episode {
	ep := testutil.CreateTestEpisode(s.celebrity.ID, title, platform, ref)
	ep.CreatedAt = s.seedClock
	s.seedClock = s.seedClock.Add(time.Minute)
	s.Require().NoError(s.db.Create(ep).Error)
	return ep
}

func (s *DedupServiceTestSuite) TestFindDuplicatesByNormalizedTitle() {
	keep := s.seedEpisode("Kyoto Day Trip #3", "youtube", "vid-a")
	dupe := s.seedEpisode("Kyoto Day Trip ep. 3", "youtube", "vid-b")
	s.seedEpisode("Osaka Night Out", "youtube", "vid-c")

	plans, err := s.svc.FindDuplicateEpisodes(s.ctx, s.celebrity.ID)
	s.Require().NoError(err)
	s.Require().Len(plans, 1)
	s.Equal(keep.ID, plans[0].KeepID, "the oldest row survives")
	s.Require().Len(plans[0].MergeIDs, 1)
	s.Equal(dupe.ID, plans[0].MergeIDs[0])
}

func (s *DedupServiceTestSuite) TestMergeExecutesPlan() {
	keep := s.seedEpisode("Ramen Crawl", "youtube", "vid-x")
	dupe := s.seedEpisode("Ramen  Crawl", "youtube", "vid-y")

	location, err := s.repo.UpsertLocation(s.ctx, &models.Location{
		CelebrityID: s.celebrity.ID, Name: "Afuri Ebisu",
	}, false)
	s.Require().NoError(err)
	_, err = s.repo.LinkLocation(s.ctx, dupe.ID, location.ID)
	s.Require().NoError(err)

	plans, err := s.svc.FindDuplicateEpisodes(s.ctx, s.celebrity.ID)
	s.Require().NoError(err)
	s.Require().Len(plans, 1)

	s.Require().NoError(s.svc.MergeEpisodes(s.ctx, plans[0]))

	links, err := s.repo.ListEpisodeLocationLinks(s.ctx, keep.ID)
	s.Require().NoError(err)
	s.Len(links, 1)

	episodes, err := s.repo.ListEpisodesByCelebrity(s.ctx, s.celebrity.ID)
	s.Require().NoError(err)
	s.Len(episodes, 1)
}

func (s *DedupServiceTestSuite) TestFindDuplicateLocations() {
	// Legacy rows that normalize to the same name.
	first, err := s.repo.UpsertLocation(s.ctx, &models.Location{
		CelebrityID: s.celebrity.ID, Name: "Daiso",
	}, false)
	s.Require().NoError(err)

	legacy := testutil.CreateTestLocation(s.celebrity.ID, "DAISO")
	legacy.Slug = "daiso-2"
	legacy.CreatedAt = time.Now().Add(time.Hour)
	s.Require().NoError(s.db.Create(legacy).Error)

	plans, err := s.svc.FindDuplicateLocations(s.ctx, s.celebrity.ID)
	s.Require().NoError(err)
	s.Require().Len(plans, 1)
	s.Equal(first.ID, plans[0].KeepID)

	s.Require().NoError(s.svc.MergeLocations(s.ctx, plans[0]))

	locations, err := s.repo.ListLocationsByCelebrity(s.ctx, s.celebrity.ID)
	s.Require().NoError(err)
	s.Len(locations, 1)
}

func (s *DedupServiceTestSuite) TestPurgeShortForm() {
	s.seedEpisode("Beach Day #shorts", "youtube", "vid-s1")
	s.seedEpisode("Quick Look #Shorts", "youtube", "vid-s2")
	s.seedEpisode("Full Beach Vlog", "youtube", "vid-f1")

	purged, err := s.svc.PurgeShortForm(s.ctx, s.celebrity.ID)
	s.Require().NoError(err)
	s.Len(purged, 2)

	episodes, err := s.repo.ListEpisodesByCelebrity(s.ctx, s.celebrity.ID)
	s.Require().NoError(err)
	s.Require().Len(episodes, 1)
	s.Equal("Full Beach Vlog", episodes[0].Title)
}
