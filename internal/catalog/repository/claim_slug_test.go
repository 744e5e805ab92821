package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fanloremedia/fanlore/pkg/models"
	"github.com/fanloremedia/fanlore/test/testutil"
)

func TestClaimSlugPropagatesQueryErrors(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewGormRepository(db)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	slug, collided, err := repo.claimSlug(context.Background(), &models.Location{}, "tokyo-tower")
	require.Error(t, err, "a failed availability check must surface, not count as a collision")
	assert.Empty(t, slug)
	assert.False(t, collided)
}
