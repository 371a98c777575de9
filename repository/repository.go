package repository

import (
	"context"
	"errors"
	"time"

	"meriawaaz-be/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// IssueRepository stores issue records. List and Nearby skip records that
// cannot be decoded instead of failing the whole call.
type IssueRepository interface {
	Create(ctx context.Context, issue *models.Issue) (string, error)
	Get(ctx context.Context, id string) (*models.Issue, error)
	List(ctx context.Context, filter ListFilter) ([]*models.Issue, error)
	Nearby(ctx context.Context, lat, lon, radiusKm float64, limit int) ([]models.NearbyIssue, error)
	Update(ctx context.Context, id string, patch IssuePatch) error
	Delete(ctx context.Context, id string) error
}

// VoteRepository stores one vote record per (issue, user).
type VoteRepository interface {
	Find(ctx context.Context, issueID, userID string) (*models.Vote, error)
	Create(ctx context.Context, vote *models.Vote) error
	UpdateType(ctx context.Context, id string, voteType models.VoteType) error
	Delete(ctx context.Context, id string) error
	ListByIssue(ctx context.Context, issueID string) ([]*models.Vote, error)
	DeleteByIssue(ctx context.Context, issueID string) error
	CountByUser(ctx context.Context, userID string) (int64, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) (string, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, id string, patch models.UserPatch) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

// ListFilter narrows a List call. Empty fields match everything; all set
// fields must match.
type ListFilter struct {
	Category         string
	Status           string
	Priority         string
	AuthorID         string
	ProcessingStatus string
	GeotaggedOnly    bool

	// UpdatedBefore, when non-zero, keeps issues last updated before it.
	UpdatedBefore time.Time
	Limit         int
}

// Normalized maps the enum filters onto canonical values.
func (f ListFilter) Normalized() ListFilter {
	if f.Category != "" {
		f.Category = string(models.NormalizeCategory(f.Category))
	}
	if f.Status != "" {
		f.Status = string(models.NormalizeStatus(f.Status))
	}
	if f.Priority != "" {
		f.Priority = string(models.NormalizePriority(f.Priority))
	}
	if f.ProcessingStatus != "" {
		f.ProcessingStatus = string(models.NormalizeProcessingStatus(f.ProcessingStatus))
	}
	return f
}

// Matches reports whether issue passes an already normalized filter.
func (f ListFilter) Matches(issue *models.Issue) bool {
	switch {
	case f.Category != "" && string(issue.Category) != f.Category:
		return false
	case f.Status != "" && string(issue.Status) != f.Status:
		return false
	case f.Priority != "" && string(issue.Priority) != f.Priority:
		return false
	case f.AuthorID != "" && issue.AuthorID != f.AuthorID:
		return false
	case f.ProcessingStatus != "" && string(issue.ProcessingStatus) != f.ProcessingStatus:
		return false
	case f.GeotaggedOnly && issue.Location == nil:
		return false
	case !f.UpdatedBefore.IsZero() && !issue.UpdatedAt.Before(f.UpdatedBefore):
		return false
	}
	return true
}

// IssuePatch is a field-scoped update. Only non-nil fields are written.
type IssuePatch struct {
	Title            *string
	Description      *string
	Address          *string
	Status           *models.IssueStatus
	Category         *models.IssueCategory
	Priority         *models.Priority
	AISummary        *string
	ProcessingStatus *models.ProcessingStatus
	ProcessingError  *string
	Location         *models.GeoPoint
	ImageURLs        []string
	AudioURL         *string
	Upvotes          *int
	Downvotes        *int
	VoteCount        *int
}

// Apply copies the set fields onto issue and stamps UpdatedAt.
func (p IssuePatch) Apply(issue *models.Issue, now time.Time) {
	if p.Title != nil {
		issue.Title = *p.Title
	}
	if p.Description != nil {
		issue.Description = *p.Description
	}
	if p.Address != nil {
		issue.Address = *p.Address
	}
	if p.Status != nil {
		issue.Status = *p.Status
	}
	if p.Category != nil {
		issue.Category = *p.Category
	}
	if p.Priority != nil {
		issue.Priority = *p.Priority
	}
	if p.AISummary != nil {
		issue.AISummary = *p.AISummary
	}
	if p.ProcessingStatus != nil {
		issue.ProcessingStatus = *p.ProcessingStatus
	}
	if p.ProcessingError != nil {
		issue.ProcessingError = *p.ProcessingError
	}
	if p.Location != nil {
		loc := *p.Location
		issue.Location = &loc
	}
	if p.ImageURLs != nil {
		issue.ImageURLs = append([]string(nil), p.ImageURLs...)
	}
	if p.AudioURL != nil {
		issue.AudioURL = *p.AudioURL
	}
	if p.Upvotes != nil {
		issue.Upvotes = *p.Upvotes
	}
	if p.Downvotes != nil {
		issue.Downvotes = *p.Downvotes
	}
	if p.VoteCount != nil {
		issue.VoteCount = *p.VoteCount
	}
	issue.UpdatedAt = now
}

// PrepareForInsert applies creation defaults: timestamps, normalized enums
// and zeroed counters.
func PrepareForInsert(issue *models.Issue, now time.Time) {
	issue.CreatedAt = now
	issue.UpdatedAt = now

	if issue.Status == "" {
		issue.Status = models.Submitted
	} else {
		issue.Status = models.NormalizeStatus(string(issue.Status))
	}
	issue.Category = models.NormalizeCategory(string(issue.Category))
	if issue.Priority == "" {
		issue.Priority = models.Medium
	} else {
		issue.Priority = models.NormalizePriority(string(issue.Priority))
	}
	if issue.ProcessingStatus == "" {
		issue.ProcessingStatus = models.ProcessingPending
	}
	if issue.ImageURLs == nil {
		issue.ImageURLs = []string{}
	}

	issue.Upvotes = 0
	issue.Downvotes = 0
	issue.VoteCount = 0
}
