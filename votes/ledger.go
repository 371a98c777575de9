// Package votes keeps the per-(issue, user) vote records and the derived
// counters on each issue.
package votes

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"meriawaaz-be/locks"
	"meriawaaz-be/metrics"
	"meriawaaz-be/models"
	"meriawaaz-be/repository"
)

var ErrInvalidVoteType = errors.New("invalid vote type")

// Action describes what a vote call did to the stored record.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionRemoved Action = "removed"
	ActionNone    Action = "none"
)

// Tally is the recounted state of an issue. VoteCount equals Upvotes;
// downvotes are tracked but never subtracted.
type Tally struct {
	Upvotes   int `json:"upvotes"`
	Downvotes int `json:"downvotes"`
	VoteCount int `json:"voteCount"`
}

type ToggleResult struct {
	Action   Action           `json:"action"`
	UserVote *models.VoteType `json:"userVote"`
	Tally    Tally            `json:"tally"`
}

// Ledger mutates votes and recounts under a per-issue lock, so concurrent
// votes on one issue always end in a consistent tally.
type Ledger struct {
	votes   repository.VoteRepository
	issues  repository.IssueRepository
	locker  locks.Locker
	metrics metrics.Recorder
	log     *zap.SugaredLogger
}

func NewLedger(votes repository.VoteRepository, issues repository.IssueRepository, locker locks.Locker, rec metrics.Recorder, log *zap.SugaredLogger) *Ledger {
	if rec == nil {
		rec = metrics.Nop
	}
	return &Ledger{votes: votes, issues: issues, locker: locker, metrics: rec, log: log}
}

// Cast applies voteType for the user: remove deletes any vote, upvote or
// downvote creates one or overwrites the existing type. Every call ends with
// a recount, including a remove with nothing to remove.
func (l *Ledger) Cast(ctx context.Context, issueID, userID string, voteType models.VoteType) error {
	if !voteType.Valid() && voteType != models.VoteRemove {
		return fmt.Errorf("%w: %q", ErrInvalidVoteType, voteType)
	}

	_, err := l.withIssueLock(ctx, issueID, func() (Action, error) {
		existing, err := l.find(ctx, issueID, userID)
		if err != nil {
			return ActionNone, err
		}

		switch {
		case voteType == models.VoteRemove && existing == nil:
			return ActionNone, nil
		case voteType == models.VoteRemove:
			return ActionRemoved, l.votes.Delete(ctx, existing.ID)
		case existing == nil:
			return ActionCreated, l.votes.Create(ctx, &models.Vote{IssueID: issueID, UserID: userID, VoteType: voteType})
		case existing.VoteType != voteType:
			return ActionUpdated, l.votes.UpdateType(ctx, existing.ID, voteType)
		default:
			return ActionNone, nil
		}
	})
	return err
}

// Toggle implements the upvote/downvote endpoints: repeating the current
// vote removes it, the opposite vote overwrites it, no vote creates one.
func (l *Ledger) Toggle(ctx context.Context, issueID, userID string, voteType models.VoteType) (ToggleResult, error) {
	if !voteType.Valid() {
		return ToggleResult{}, fmt.Errorf("%w: %q", ErrInvalidVoteType, voteType)
	}

	var result ToggleResult
	tally, err := l.withIssueLock(ctx, issueID, func() (Action, error) {
		existing, err := l.find(ctx, issueID, userID)
		if err != nil {
			return ActionNone, err
		}

		vt := voteType
		switch {
		case existing == nil:
			result.Action, result.UserVote = ActionCreated, &vt
			return ActionCreated, l.votes.Create(ctx, &models.Vote{IssueID: issueID, UserID: userID, VoteType: voteType})
		case existing.VoteType == voteType:
			result.Action, result.UserVote = ActionRemoved, nil
			return ActionRemoved, l.votes.Delete(ctx, existing.ID)
		default:
			result.Action, result.UserVote = ActionUpdated, &vt
			return ActionUpdated, l.votes.UpdateType(ctx, existing.ID, voteType)
		}
	})
	if err != nil {
		return ToggleResult{}, err
	}

	result.Tally = tally
	return result, nil
}

// UserVote returns the user's current vote on the issue, or nil.
func (l *Ledger) UserVote(ctx context.Context, issueID, userID string) (*models.VoteType, error) {
	existing, err := l.find(ctx, issueID, userID)
	if err != nil || existing == nil {
		return nil, err
	}
	vt := existing.VoteType
	return &vt, nil
}

// Recount rescans every vote on the issue and writes the counters back.
func (l *Ledger) Recount(ctx context.Context, issueID string) (Tally, error) {
	unlock, err := l.locker.Lock(ctx, issueID)
	if err != nil {
		return Tally{}, err
	}
	defer unlock()
	return l.recount(ctx, issueID)
}

func (l *Ledger) find(ctx context.Context, issueID, userID string) (*models.Vote, error) {
	vote, err := l.votes.Find(ctx, issueID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find vote: %w", err)
	}
	return vote, nil
}

// withIssueLock checks the issue exists, runs mutate and recounts, all while
// holding the issue's lock.
func (l *Ledger) withIssueLock(ctx context.Context, issueID string, mutate func() (Action, error)) (Tally, error) {
	unlock, err := l.locker.Lock(ctx, issueID)
	if err != nil {
		return Tally{}, err
	}
	defer unlock()

	if _, err := l.issues.Get(ctx, issueID); err != nil {
		return Tally{}, fmt.Errorf("issue %s: %w", issueID, err)
	}

	action, err := mutate()
	if err != nil {
		return Tally{}, fmt.Errorf("vote on issue %s: %w", issueID, err)
	}
	l.metrics.RecordVote(string(action))

	return l.recount(ctx, issueID)
}

func (l *Ledger) recount(ctx context.Context, issueID string) (Tally, error) {
	all, err := l.votes.ListByIssue(ctx, issueID)
	if err != nil {
		return Tally{}, fmt.Errorf("list votes of issue %s: %w", issueID, err)
	}

	var t Tally
	for _, v := range all {
		switch v.VoteType {
		case models.Upvote:
			t.Upvotes++
		case models.Downvote:
			t.Downvotes++
		}
	}
	t.VoteCount = t.Upvotes

	err = l.issues.Update(ctx, issueID, repository.IssuePatch{
		Upvotes:   &t.Upvotes,
		Downvotes: &t.Downvotes,
		VoteCount: &t.VoteCount,
	})
	if err != nil {
		return Tally{}, fmt.Errorf("write tally of issue %s: %w", issueID, err)
	}

	l.log.Debugw("recounted votes", "issue_id", issueID, "upvotes", t.Upvotes, "downvotes", t.Downvotes)
	return t, nil
}
