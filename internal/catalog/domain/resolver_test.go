package domain_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fanloremedia/fanlore/internal/catalog/domain"
	pkgerrors "github.com/fanloremedia/fanlore/pkg/errors"
	"github.com/fanloremedia/fanlore/pkg/models"
)

func TestResolveScopeMissing(t *testing.T) {
	celebrityID := uuid.New()
	scope := domain.NewScopeIndex(celebrityID)

	_, err := domain.Resolve(scope, domain.Candidate{
		Type: models.EntityTypeEpisode,
		Name: "Tokyo Tour",
	})
	assert.True(t, pkgerrors.IsScopeMissing(err))

	_, err = domain.Resolve(scope, domain.Candidate{
		Type:        models.EntityTypeEpisode,
		Name:        "Tokyo Tour",
		CelebrityID: uuid.New(),
	})
	assert.True(t, pkgerrors.IsScopeMissing(err), "scope for a different celebrity must not resolve")
}

func TestResolveExternalRefWinsOverName(t *testing.T) {
	celebrityID := uuid.New()
	scope := domain.NewScopeIndex(celebrityID)

	byRef := uuid.New()
	byName := uuid.New()
	scope.Add(models.EntityTypeEpisode, byRef, "old title", "youtube", "vid-123")
	scope.Add(models.EntityTypeEpisode, byName, "tokyo tour", "", "")

	// Same ref, completely retitled: still the same episode.
	res, err := domain.Resolve(scope, domain.Candidate{
		Type:             models.EntityTypeEpisode,
		Name:             "Tokyo Tour",
		CelebrityID:      celebrityID,
		ExternalPlatform: "youtube",
		ExternalRef:      "vid-123",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionMatch, res.Decision)
	assert.Equal(t, byRef, res.EntityID)
}

func TestResolveByNormalizedName(t *testing.T) {
	celebrityID := uuid.New()
	scope := domain.NewScopeIndex(celebrityID)

	locationID := uuid.New()
	scope.AddLocation(&models.Location{ID: locationID, Name: "Daiso Harajuku"})

	res, err := domain.Resolve(scope, domain.Candidate{
		Type:        models.EntityTypeLocation,
		Name:        "  DAISO   Harajuku ",
		CelebrityID: celebrityID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionMatch, res.Decision)
	assert.Equal(t, locationID, res.EntityID)
	assert.Equal(t, "daiso harajuku", res.NormalizedName)
}

func TestResolveNameMatchIsTypeScoped(t *testing.T) {
	celebrityID := uuid.New()
	scope := domain.NewScopeIndex(celebrityID)
	scope.AddLocation(&models.Location{ID: uuid.New(), Name: "Muji"})

	// An item with the same name is a different entity.
	res, err := domain.Resolve(scope, domain.Candidate{
		Type:        models.EntityTypeItem,
		Name:        "Muji",
		CelebrityID: celebrityID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionNew, res.Decision)
}

func TestResolveNewThenAddedBack(t *testing.T) {
	celebrityID := uuid.New()
	scope := domain.NewScopeIndex(celebrityID)

	candidate := domain.Candidate{
		Type:             models.EntityTypeEpisode,
		Name:             "Night Market Tour #7",
		CelebrityID:      celebrityID,
		ExternalPlatform: "youtube",
		ExternalRef:      "vid-777",
	}

	res, err := domain.Resolve(scope, candidate)
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionNew, res.Decision)

	id := uuid.New()
	scope.Add(candidate.Type, id, res.NormalizedName, candidate.ExternalPlatform, candidate.ExternalRef)

	res, err = domain.Resolve(scope, candidate)
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionMatch, res.Decision)
	assert.Equal(t, id, res.EntityID)
}
