package votes

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meriawaaz-be/locks"
	"meriawaaz-be/logger"
	"meriawaaz-be/models"
	"meriawaaz-be/repository"
	"meriawaaz-be/repository/repotest"
)

type fixture struct {
	ledger *Ledger
	votes  *repotest.VoteStore
	issues *repotest.IssueStore
	id     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	votes := repotest.NewVoteStore()
	issues := repotest.NewIssueStore(votes)
	id, err := issues.Create(context.Background(), &models.Issue{Title: "Pothole"})
	require.NoError(t, err)

	return &fixture{
		ledger: NewLedger(votes, issues, locks.NewKeyedMutex(), nil, logger.Nop()),
		votes:  votes,
		issues: issues,
		id:     id,
	}
}

func (f *fixture) issue(t *testing.T) *models.Issue {
	t.Helper()
	issue, err := f.issues.Get(context.Background(), f.id)
	require.NoError(t, err)
	return issue
}

func TestCastStateMachine(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.ledger.Cast(ctx, f.id, "u1", models.VoteRemove))
	assert.Zero(t, f.votes.Len())

	require.NoError(t, f.ledger.Cast(ctx, f.id, "u1", models.Upvote))
	vt, err := f.ledger.UserVote(ctx, f.id, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.Upvote, *vt)
	assert.Equal(t, 1, f.issue(t).Upvotes)

	require.NoError(t, f.ledger.Cast(ctx, f.id, "u1", models.Downvote))
	vt, err = f.ledger.UserVote(ctx, f.id, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.Downvote, *vt)
	assert.Equal(t, 1, f.votes.Len())

	issue := f.issue(t)
	assert.Equal(t, 0, issue.Upvotes)
	assert.Equal(t, 1, issue.Downvotes)
	assert.Equal(t, 0, issue.VoteCount)

	require.NoError(t, f.ledger.Cast(ctx, f.id, "u1", models.VoteRemove))
	vt, err = f.ledger.UserVote(ctx, f.id, "u1")
	require.NoError(t, err)
	assert.Nil(t, vt)
	assert.Zero(t, f.votes.Len())
	assert.Equal(t, 0, f.issue(t).Downvotes)
}

func TestCastRejectsUnknownType(t *testing.T) {
	f := newFixture(t)
	err := f.ledger.Cast(context.Background(), f.id, "u1", models.VoteType("sideways"))
	assert.ErrorIs(t, err, ErrInvalidVoteType)
}

func TestCastOnMissingIssue(t *testing.T) {
	f := newFixture(t)
	err := f.ledger.Cast(context.Background(), "missing", "u1", models.Upvote)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Zero(t, f.votes.Len())
}

func TestToggle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.ledger.Toggle(ctx, f.id, "u1", models.Upvote)
	require.NoError(t, err)
	assert.Equal(t, ActionCreated, res.Action)
	assert.Equal(t, models.Upvote, *res.UserVote)
	assert.Equal(t, Tally{Upvotes: 1, VoteCount: 1}, res.Tally)

	res, err = f.ledger.Toggle(ctx, f.id, "u1", models.Downvote)
	require.NoError(t, err)
	assert.Equal(t, ActionUpdated, res.Action)
	assert.Equal(t, models.Downvote, *res.UserVote)
	assert.Equal(t, Tally{Downvotes: 1}, res.Tally)

	res, err = f.ledger.Toggle(ctx, f.id, "u1", models.Downvote)
	require.NoError(t, err)
	assert.Equal(t, ActionRemoved, res.Action)
	assert.Nil(t, res.UserVote)
	assert.Equal(t, Tally{}, res.Tally)

	_, err = f.ledger.Toggle(ctx, f.id, "u1", models.VoteRemove)
	assert.ErrorIs(t, err, ErrInvalidVoteType)
}

// The last non-remove operation since the last remove decides the record.
func TestRandomSequencesKeepOneRecord(t *testing.T) {
	ctx := context.Background()
	ops := []models.VoteType{models.Upvote, models.Downvote, models.VoteRemove}
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 20; round++ {
		f := newFixture(t)
		var want *models.VoteType
		for i := 0; i < 15; i++ {
			op := ops[rng.Intn(len(ops))]
			require.NoError(t, f.ledger.Cast(ctx, f.id, "u1", op))
			if op == models.VoteRemove {
				want = nil
			} else {
				v := op
				want = &v
			}
		}

		got, err := f.ledger.UserVote(ctx, f.id, "u1")
		require.NoError(t, err)
		assert.LessOrEqual(t, f.votes.Len(), 1)
		assert.Equal(t, want, got, "round %d", round)
	}
}

// Concurrent votes from many users always recount to the stored records.
func TestConcurrentVotesRecountConsistently(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			vt := models.Upvote
			if i%3 == 0 {
				vt = models.Downvote
			}
			assert.NoError(t, f.ledger.Cast(ctx, f.id, fmt.Sprintf("user-%d", i), vt))
		}(i)
	}
	wg.Wait()

	issue := f.issue(t)
	assert.Equal(t, 20, issue.Upvotes)
	assert.Equal(t, 10, issue.Downvotes)
	assert.Equal(t, issue.Upvotes, issue.VoteCount)

	tally, err := f.ledger.Recount(ctx, f.id)
	require.NoError(t, err)
	assert.Equal(t, Tally{Upvotes: 20, Downvotes: 10, VoteCount: 20}, tally)
}
