package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meriawaaz-be/models"
	"meriawaaz-be/repository"
)

func TestIssueStoreListNewestFirstAndDeleteCascades(t *testing.T) {
	ctx := context.Background()
	votes := NewVoteStore()
	issues := NewIssueStore(votes)

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	oldID := issues.Put(&models.Issue{Title: "old", Category: models.Water, CreatedAt: base})
	newID := issues.Put(&models.Issue{Title: "new", Category: models.Water, CreatedAt: base.Add(time.Hour)})
	issues.Put(&models.Issue{Title: "other", Category: models.Roads, CreatedAt: base.Add(2 * time.Hour)})

	list, err := issues.List(ctx, repository.ListFilter{Category: "water"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newID, list[0].ID)
	assert.Equal(t, oldID, list[1].ID)

	require.NoError(t, votes.Create(ctx, &models.Vote{IssueID: oldID, UserID: "u1", VoteType: models.Upvote}))
	require.NoError(t, issues.Delete(ctx, oldID))
	assert.Zero(t, votes.Len())

	assert.ErrorIs(t, issues.Delete(ctx, oldID), repository.ErrNotFound)
}

func TestVoteStoreRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	votes := NewVoteStore()

	require.NoError(t, votes.Create(ctx, &models.Vote{IssueID: "i", UserID: "u", VoteType: models.Upvote}))
	err := votes.Create(ctx, &models.Vote{IssueID: "i", UserID: "u", VoteType: models.Downvote})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}
