package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/fanloremedia/fanlore/internal/catalog/repository"
	"github.com/fanloremedia/fanlore/internal/catalog/service"
	pkgerrors "github.com/fanloremedia/fanlore/pkg/errors"
	"github.com/fanloremedia/fanlore/pkg/logger"
	"github.com/fanloremedia/fanlore/pkg/models"
	"github.com/fanloremedia/fanlore/test/testutil"
)

var testProviders = []string{"tabelog.com", "rakuten.co.jp", "amazon.co.jp"}

type MonetizeServiceTestSuite struct {
	suite.Suite

	ctx       context.Context
	repo      *repository.GormRepository
	svc       *service.MonetizeService
	celebrity *models.Celebrity
}

func TestMonetizeServiceTestSuite(t *testing.T) {
	suite.Run(t, new(MonetizeServiceTestSuite))
}

func (s *MonetizeServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	db := testutil.NewTestDB(s.T())
	s.repo = repository.NewGormRepository(db)
	s.svc = service.NewMonetizeService(s.repo, nil, logger.NewNoop(), testProviders)

	s.celebrity = testutil.CreateTestCelebrity("Hikari Tanaka")
	s.Require().NoError(s.repo.CreateCelebrity(s.ctx, s.celebrity))
}

func (s *MonetizeServiceTestSuite) newLocation(name string) *models.Location {
	result, err := s.repo.UpsertLocation(s.ctx, &models.Location{
		CelebrityID: s.celebrity.ID, Name: name,
	}, false)
	s.Require().NoError(err)
	location, err := s.repo.GetLocation(s.ctx, result.ID)
	s.Require().NoError(err)
	return location
}

func (s *MonetizeServiceTestSuite) newItem(name string) *models.Item {
	result, err := s.repo.UpsertItem(s.ctx, &models.Item{
		CelebrityID: s.celebrity.ID, Name: name,
	}, false)
	s.Require().NoError(err)
	item, err := s.repo.GetItem(s.ctx, result.ID)
	s.Require().NoError(err)
	return item
}

func (s *MonetizeServiceTestSuite) TestAnnotateLocationApplies() {
	location := s.newLocation("Ichiran Shibuya")

	result, err := s.svc.AnnotateLocation(s.ctx, location.ID, service.ListingCandidate{
		URL: "https://tabelog.com/tokyo/A1303/ichiran",
	})
	s.Require().NoError(err)
	s.True(result.Applied)

	stored, err := s.repo.GetLocation(s.ctx, location.ID)
	s.Require().NoError(err)
	s.Equal("https://tabelog.com/tokyo/A1303/ichiran", stored.ListingURL)
	s.Equal("tabelog.com", stored.ListingProvider)
}

func (s *MonetizeServiceTestSuite) TestAnnotateRejectsUntrustedProvider() {
	location := s.newLocation("Shady Corner")

	_, err := s.svc.AnnotateLocation(s.ctx, location.ID, service.ListingCandidate{
		URL: "https://sketchy-affiliates.example.com/deal",
	})
	s.True(pkgerrors.IsUntrustedProvider(err))

	stored, err := s.repo.GetLocation(s.ctx, location.ID)
	s.Require().NoError(err)
	s.Empty(stored.ListingURL, "rejected candidates must not be written")
}

func (s *MonetizeServiceTestSuite) TestAnnotateAcceptsSubdomain() {
	item := s.newItem("Rice Cooker")

	result, err := s.svc.AnnotateItem(s.ctx, item.ID, service.ListingCandidate{
		URL: "https://item.rakuten.co.jp/shop/rice-cooker",
	})
	s.Require().NoError(err)
	s.True(result.Applied)
}

func (s *MonetizeServiceTestSuite) TestVerifiedNeverRegressed() {
	item := s.newItem("Electric Kettle")

	_, err := s.svc.AnnotateItem(s.ctx, item.ID, service.ListingCandidate{
		URL:      "https://amazon.co.jp/dp/B000VERIFIED",
		Verified: true,
	})
	s.Require().NoError(err)

	result, err := s.svc.AnnotateItem(s.ctx, item.ID, service.ListingCandidate{
		URL: "https://amazon.co.jp/dp/B000GUESS",
	})
	s.Require().NoError(err)
	s.False(result.Applied)
	s.NotEmpty(result.Reason)

	stored, err := s.repo.GetItem(s.ctx, item.ID)
	s.Require().NoError(err)
	s.Equal("https://amazon.co.jp/dp/B000VERIFIED", stored.AffiliateURL)
	s.True(stored.AffiliateVerified)
}

func (s *MonetizeServiceTestSuite) TestEnableAffiliate() {
	item := s.newItem("Bento Box")

	err := s.svc.EnableAffiliate(s.ctx, item.ID, models.EntityTypeItem)
	s.True(pkgerrors.IsConflict(err), "nothing to monetize without a link")

	_, err = s.svc.AnnotateItem(s.ctx, item.ID, service.ListingCandidate{
		URL: "https://amazon.co.jp/dp/B000BENTO",
	})
	s.Require().NoError(err)

	s.Require().NoError(s.svc.EnableAffiliate(s.ctx, item.ID, models.EntityTypeItem))
	// Idempotent.
	s.Require().NoError(s.svc.EnableAffiliate(s.ctx, item.ID, models.EntityTypeItem))

	stored, err := s.repo.GetItem(s.ctx, item.ID)
	s.Require().NoError(err)
	s.True(stored.AffiliateEnabled)
}
