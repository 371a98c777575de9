package reprocessor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meriawaaz-be/logger"
	"meriawaaz-be/models"
	"meriawaaz-be/repository/repotest"
)

type fakeDispatcher struct {
	mu       sync.Mutex
	ids      []string
	failFor  map[string]bool
	dispatch chan string
}

func (d *fakeDispatcher) Dispatch(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failFor[id] {
		return errors.New("queue full")
	}
	d.ids = append(d.ids, id)
	if d.dispatch != nil {
		select {
		case d.dispatch <- id:
		default:
		}
	}
	return nil
}

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// seed stores 12 stale and 3 fresh error issues plus one triaged issue.
// Stale issues are created newest first as stale-0 .. stale-11.
func seed(store *repotest.IssueStore) map[string]string {
	ids := make(map[string]string)
	for i := 0; i < 12; i++ {
		name := fmt.Sprintf("stale-%d", i)
		ids[name] = store.Put(&models.Issue{
			Title:            name,
			ProcessingStatus: models.ProcessingError,
			CreatedAt:        now.Add(-time.Duration(10+i) * time.Hour),
			UpdatedAt:        now.Add(-2 * time.Hour),
		})
	}
	for i := 0; i < 3; i++ {
		name := fmt.Sprintf("fresh-%d", i)
		ids[name] = store.Put(&models.Issue{
			Title:            name,
			ProcessingStatus: models.ProcessingError,
			CreatedAt:        now.Add(-time.Duration(i) * time.Hour),
			UpdatedAt:        now.Add(-10 * time.Minute),
		})
	}
	ids["done"] = store.Put(&models.Issue{
		Title:            "done",
		ProcessingStatus: models.ProcessingTriaged,
		CreatedAt:        now.Add(-48 * time.Hour),
		UpdatedAt:        now.Add(-48 * time.Hour),
	})
	return ids
}

func newReprocessor(store *repotest.IssueStore, d *fakeDispatcher) *Reprocessor {
	r := New(store, d, Options{}, nil, logger.Nop())
	r.now = func() time.Time { return now }
	return r
}

func TestRunOnceSelectsFirstTenStale(t *testing.T) {
	ctx := context.Background()
	store := repotest.NewIssueStore(nil)
	store.Now = func() time.Time { return now }
	ids := seed(store)
	d := &fakeDispatcher{}

	report, err := newReprocessor(store, d).RunOnce(ctx)
	require.NoError(t, err)

	assert.Equal(t, 12, report.Scanned)
	assert.Equal(t, 12, report.Stale)
	require.Len(t, report.Dispatched, 10)
	assert.Empty(t, report.Failures)

	for i := 0; i < 10; i++ {
		id := ids[fmt.Sprintf("stale-%d", i)]
		assert.Equal(t, id, d.ids[i])
		issue, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.ProcessingPending, issue.ProcessingStatus)
	}
	for _, name := range []string{"stale-10", "stale-11", "fresh-0", "fresh-1", "fresh-2"} {
		issue, err := store.Get(ctx, ids[name])
		require.NoError(t, err)
		assert.Equal(t, models.ProcessingError, issue.ProcessingStatus, name)
	}
	done, err := store.Get(ctx, ids["done"])
	require.NoError(t, err)
	assert.Equal(t, models.ProcessingTriaged, done.ProcessingStatus)
}

func TestRunOnceScanLimitSkipsFreshFailures(t *testing.T) {
	ctx := context.Background()
	store := repotest.NewIssueStore(nil)
	store.Now = func() time.Time { return now }
	ids := seed(store)
	for i := 0; i < 5; i++ {
		store.Put(&models.Issue{
			Title:            fmt.Sprintf("newer-%d", i),
			ProcessingStatus: models.ProcessingError,
			CreatedAt:        now.Add(-time.Minute),
			UpdatedAt:        now.Add(-time.Minute),
		})
	}
	d := &fakeDispatcher{}

	r := New(store, d, Options{ScanLimit: 3}, nil, logger.Nop())
	r.now = func() time.Time { return now }
	report, err := r.RunOnce(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Scanned)
	assert.Equal(t, []string{ids["stale-0"], ids["stale-1"], ids["stale-2"]}, report.Dispatched)
}

func TestRunOnceContinuesPastDispatchFailure(t *testing.T) {
	ctx := context.Background()
	store := repotest.NewIssueStore(nil)
	store.Now = func() time.Time { return now }
	ids := seed(store)
	d := &fakeDispatcher{failFor: map[string]bool{ids["stale-1"]: true}}

	report, err := newReprocessor(store, d).RunOnce(ctx)
	require.NoError(t, err)

	assert.Len(t, report.Dispatched, 9)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, ids["stale-1"], report.Failures[0].IssueID)

	issue, err := store.Get(ctx, ids["stale-1"])
	require.NoError(t, err)
	assert.Equal(t, models.ProcessingError, issue.ProcessingStatus)
	assert.Contains(t, issue.ProcessingError, "reprocess dispatch failed")
}

func TestRunOnceWithNothingToDo(t *testing.T) {
	store := repotest.NewIssueStore(nil)
	report, err := newReprocessor(store, &fakeDispatcher{}).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Scanned)
	assert.Empty(t, report.Dispatched)
}

func TestScheduleRunsJob(t *testing.T) {
	store := repotest.NewIssueStore(nil)
	store.Put(&models.Issue{
		ProcessingStatus: models.ProcessingError,
		CreatedAt:        time.Now().Add(-3 * time.Hour),
		UpdatedAt:        time.Now().Add(-2 * time.Hour),
	})
	d := &fakeDispatcher{dispatch: make(chan string, 1)}
	r := New(store, d, Options{}, nil, logger.Nop())

	s := gocron.NewScheduler(time.UTC)
	_, err := r.Schedule(s, time.Hour)
	require.NoError(t, err)
	s.StartAsync()
	defer s.Stop()

	select {
	case <-d.dispatch:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled run did not dispatch")
	}
}
