package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/fanloremedia/fanlore/internal/catalog/repository"
	"github.com/fanloremedia/fanlore/internal/catalog/service"
	"github.com/fanloremedia/fanlore/pkg/cache"
	pkgerrors "github.com/fanloremedia/fanlore/pkg/errors"
	"github.com/fanloremedia/fanlore/pkg/logger"
	"github.com/fanloremedia/fanlore/pkg/models"
	"github.com/fanloremedia/fanlore/test/testutil"
)

type LinkServiceTestSuite struct {
	suite.Suite

	ctx       context.Context
	repo      *repository.GormRepository
	svc       *service.LinkService
	celebrity *models.Celebrity
	episode   *models.Episode
}

func TestLinkServiceTestSuite(t *testing.T) {
	suite.Run(t, new(LinkServiceTestSuite))
}

func (s *LinkServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	db := testutil.NewTestDB(s.T())
	s.repo = repository.NewGormRepository(db)
	s.svc = service.NewLinkService(s.repo, nil, cache.NewInMemoryCache(), logger.NewNoop())

	s.celebrity = testutil.CreateTestCelebrity("Hikari Tanaka")
	s.Require().NoError(s.repo.CreateCelebrity(s.ctx, s.celebrity))

	result, err := s.repo.UpsertEpisode(s.ctx, testutil.CreateTestEpisode(
		s.celebrity.ID, "Shopping Day", "youtube", "vid-100"), false)
	s.Require().NoError(err)
	s.episode, err = s.repo.GetEpisode(s.ctx, result.ID)
	s.Require().NoError(err)
}

func (s *LinkServiceTestSuite) TestLinkFillsDenormalizedReference() {
	result, err := s.repo.UpsertLocation(s.ctx, &models.Location{
		CelebrityID: s.celebrity.ID, Name: "Loft Shibuya",
	}, false)
	s.Require().NoError(err)

	created, err := s.svc.Link(s.ctx, s.episode.ID, result.ID, models.EntityTypeLocation)
	s.Require().NoError(err)
	s.True(created)

	stored, err := s.repo.GetLocation(s.ctx, result.ID)
	s.Require().NoError(err)
	s.Require().NotNil(stored.EpisodeID)
	s.Equal(s.episode.ID, *stored.EpisodeID)

	// Linking again is a no-op, not an error.
	created, err = s.svc.Link(s.ctx, s.episode.ID, result.ID, models.EntityTypeLocation)
	s.Require().NoError(err)
	s.False(created)
}

func (s *LinkServiceTestSuite) TestLinkRejectsCrossCelebrity() {
	other := testutil.CreateTestCelebrity("Another Channel")
	s.Require().NoError(s.repo.CreateCelebrity(s.ctx, other))
	result, err := s.repo.UpsertItem(s.ctx, &models.Item{
		CelebrityID: other.ID, Name: "Foreign Item",
	}, false)
	s.Require().NoError(err)

	_, err = s.svc.Link(s.ctx, s.episode.ID, result.ID, models.EntityTypeItem)
	s.True(pkgerrors.IsReferentialViolation(err))
}

func (s *LinkServiceTestSuite) TestFindOrphansAndRepair() {
	orphanLoc, err := s.repo.UpsertLocation(s.ctx, &models.Location{
		CelebrityID: s.celebrity.ID, Name: "Kappabashi Street",
	}, false)
	s.Require().NoError(err)
	orphanItem, err := s.repo.UpsertItem(s.ctx, &models.Item{
		CelebrityID: s.celebrity.ID, Name: "Chef Knife",
	}, false)
	s.Require().NoError(err)

	orphans, err := s.svc.FindOrphans(s.ctx, s.celebrity.ID)
	s.Require().NoError(err)
	s.Len(orphans, 2)

	s.Require().NoError(s.svc.RepairOrphan(s.ctx, orphanLoc.ID, models.EntityTypeLocation, s.episode.ID))
	s.Require().NoError(s.svc.RepairOrphan(s.ctx, orphanItem.ID, models.EntityTypeItem, s.episode.ID))

	orphans, err = s.svc.FindOrphans(s.ctx, s.celebrity.ID)
	s.Require().NoError(err)
	s.Empty(orphans)
}

func (s *LinkServiceTestSuite) TestRepairRequiresEpisode() {
	result, err := s.repo.UpsertLocation(s.ctx, &models.Location{
		CelebrityID: s.celebrity.ID, Name: "Unknown Alley",
	}, false)
	s.Require().NoError(err)

	err = s.svc.RepairOrphan(s.ctx, result.ID, models.EntityTypeLocation, uuid.Nil)
	s.True(pkgerrors.IsAmbiguousOrphan(err), "repairs must never guess a parent")
}
