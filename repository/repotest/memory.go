// Package repotest provides in-memory repositories for tests.
package repotest

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"meriawaaz-be/models"
	"meriawaaz-be/repository"
)

func copyIssue(i *models.Issue) *models.Issue {
	c := *i
	if i.Location != nil {
		loc := *i.Location
		c.Location = &loc
	}
	c.ImageURLs = append([]string{}, i.ImageURLs...)
	return &c
}

type IssueStore struct {
	mu     sync.Mutex
	issues map[string]*models.Issue
	order  map[string]int
	seq    int
	votes  *VoteStore

	Now func() time.Time
	// UpdateHook, when set, runs before every Update and can fail it.
	UpdateHook func(id string, patch repository.IssuePatch) error
}

// NewIssueStore returns an empty store. votes may be nil; when set, Delete
// cascades into it.
func NewIssueStore(votes *VoteStore) *IssueStore {
	return &IssueStore{
		issues: make(map[string]*models.Issue),
		order:  make(map[string]int),
		votes:  votes,
		Now:    time.Now,
	}
}

// Put stores issue exactly as given, assigning an ID when it has none.
func (s *IssueStore) Put(issue *models.Issue) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if issue.ID == "" {
		issue.ID = primitive.NewObjectID().Hex()
	}
	s.seq++
	s.issues[issue.ID] = copyIssue(issue)
	s.order[issue.ID] = s.seq
	return issue.ID
}

func (s *IssueStore) Create(_ context.Context, issue *models.Issue) (string, error) {
	repository.PrepareForInsert(issue, s.Now().UTC())
	issue.ID = ""
	return s.Put(issue), nil
}

func (s *IssueStore) Get(_ context.Context, id string) (*models.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	issue, ok := s.issues[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyIssue(issue), nil
}

func (s *IssueStore) List(_ context.Context, filter repository.ListFilter) ([]*models.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	filter = filter.Normalized()
	out := make([]*models.Issue, 0)
	for _, issue := range s.issues {
		if filter.Matches(issue) {
			out = append(out, copyIssue(issue))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return s.order[out[i].ID] > s.order[out[j].ID]
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *IssueStore) Nearby(ctx context.Context, lat, lon, radiusKm float64, limit int) ([]models.NearbyIssue, error) {
	issues, err := s.List(ctx, repository.ListFilter{GeotaggedOnly: true})
	if err != nil {
		return nil, err
	}
	return repository.SelectNearby(issues, lat, lon, radiusKm, limit), nil
}

func (s *IssueStore) Update(_ context.Context, id string, patch repository.IssuePatch) error {
	if s.UpdateHook != nil {
		if err := s.UpdateHook(id, patch); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	issue, ok := s.issues[id]
	if !ok {
		return repository.ErrNotFound
	}
	patch.Apply(issue, s.Now().UTC())
	return nil
}

func (s *IssueStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	_, ok := s.issues[id]
	delete(s.issues, id)
	delete(s.order, id)
	s.mu.Unlock()

	if !ok {
		return repository.ErrNotFound
	}
	if s.votes != nil {
		return s.votes.DeleteByIssue(ctx, id)
	}
	return nil
}

// Len returns the number of stored issues.
func (s *IssueStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.issues)
}

type VoteStore struct {
	mu    sync.Mutex
	votes map[string]*models.Vote

	Now func() time.Time
}

func NewVoteStore() *VoteStore {
	return &VoteStore{votes: make(map[string]*models.Vote), Now: time.Now}
}

func (s *VoteStore) Find(_ context.Context, issueID, userID string) (*models.Vote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.votes {
		if v.IssueID == issueID && v.UserID == userID {
			c := *v
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *VoteStore) Create(_ context.Context, vote *models.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.votes {
		if v.IssueID == vote.IssueID && v.UserID == vote.UserID {
			return repository.ErrDuplicate
		}
	}
	now := s.Now().UTC()
	vote.ID = primitive.NewObjectID().Hex()
	vote.CreatedAt = now
	vote.UpdatedAt = now
	c := *vote
	s.votes[vote.ID] = &c
	return nil
}

func (s *VoteStore) UpdateType(_ context.Context, id string, voteType models.VoteType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.votes[id]
	if !ok {
		return repository.ErrNotFound
	}
	v.VoteType = voteType
	v.UpdatedAt = s.Now().UTC()
	return nil
}

func (s *VoteStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.votes[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.votes, id)
	return nil
}

func (s *VoteStore) ListByIssue(_ context.Context, issueID string) ([]*models.Vote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Vote, 0)
	for _, v := range s.votes {
		if v.IssueID == issueID {
			c := *v
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *VoteStore) DeleteByIssue(_ context.Context, issueID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, v := range s.votes {
		if v.IssueID == issueID {
			delete(s.votes, id)
		}
	}
	return nil
}

func (s *VoteStore) CountByUser(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, v := range s.votes {
		if v.UserID == userID {
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored votes.
func (s *VoteStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.votes)
}

type UserStore struct {
	mu    sync.Mutex
	users map[string]*models.User

	Now func() time.Time
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]*models.User), Now: time.Now}
}

func copyUser(u *models.User) *models.User {
	c := *u
	c.Badges = append([]string{}, u.Badges...)
	return &c
}

func (s *UserStore) Create(_ context.Context, user *models.User) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == "" {
		user.ID = primitive.NewObjectID().Hex()
	}
	if _, ok := s.users[user.ID]; ok {
		return "", repository.ErrDuplicate
	}
	for _, u := range s.users {
		if user.Email != "" && u.Email == user.Email {
			return "", repository.ErrDuplicate
		}
	}
	now := s.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Badges == nil {
		user.Badges = []string{}
	}
	s.users[user.ID] = copyUser(user)
	return user.ID, nil
}

func (s *UserStore) GetByID(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyUser(u), nil
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *UserStore) Update(_ context.Context, id string, patch models.UserPatch) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	patch.Apply(u)
	u.UpdatedAt = s.Now().UTC()
	return copyUser(u), nil
}

func (s *UserStore) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := s.GetByEmail(ctx, email)
	return err == nil, nil
}

var (
	_ repository.IssueRepository = (*IssueStore)(nil)
	_ repository.VoteRepository  = (*VoteStore)(nil)
	_ repository.UserRepository  = (*UserStore)(nil)
)
