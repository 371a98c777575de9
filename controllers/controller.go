// Package controllers implements the HTTP handlers of the API.
package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"meriawaaz-be/middlewares"
	"meriawaaz-be/models"
	"meriawaaz-be/repository"
	"meriawaaz-be/storage"
	authUtils "meriawaaz-be/utils"
	"meriawaaz-be/verification"
	"meriawaaz-be/votes"
	"meriawaaz-be/worker"
)

// HealthCheck pings one backing service.
type HealthCheck func(ctx context.Context) error

type Options struct {
	CookieName     string
	TokenTTL       time.Duration
	SecureCookies  bool
	PageMultiplier int
	MaxUploadBytes int64
}

// Deps are the collaborators a Handler needs. Blobs may be nil when no
// object store is configured.
type Deps struct {
	Issues     repository.IssueRepository
	Votes      repository.VoteRepository
	Users      repository.UserRepository
	Ledger     *votes.Ledger
	Dispatcher worker.Dispatcher
	Tokens     *authUtils.TokenManager
	Verifier   verification.Provider
	Blobs      storage.BlobStore
	Checks     map[string]HealthCheck
	Options    Options
	Log        *zap.SugaredLogger
}

type Handler struct {
	issues     repository.IssueRepository
	votes      repository.VoteRepository
	users      repository.UserRepository
	ledger     *votes.Ledger
	dispatcher worker.Dispatcher
	tokens     *authUtils.TokenManager
	verifier   verification.Provider
	blobs      storage.BlobStore
	checks     map[string]HealthCheck
	opts       Options
	log        *zap.SugaredLogger
}

func New(d Deps) *Handler {
	opts := d.Options
	if opts.PageMultiplier <= 0 {
		opts.PageMultiplier = 3
	}
	if opts.CookieName == "" {
		opts.CookieName = "auth_token"
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	return &Handler{
		issues:     d.Issues,
		votes:      d.Votes,
		users:      d.Users,
		ledger:     d.Ledger,
		dispatcher: d.Dispatcher,
		tokens:     d.Tokens,
		verifier:   d.Verifier,
		blobs:      d.Blobs,
		checks:     d.Checks,
		opts:       opts,
		log:        d.Log,
	}
}

type pagination struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	HasNext bool `json:"hasNext"`
	HasPrev bool `json:"hasPrev"`
}

type envelope struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data,omitempty"`
	Message    string      `json:"message,omitempty"`
	Pagination *pagination `json:"pagination,omitempty"`
}

func respond(c *gin.Context, status int, data interface{}, message string) {
	c.JSON(status, envelope{Success: true, Data: data, Message: message})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, envelope{Success: false, Message: message})
}

// internalError logs err and answers with a generic message.
func (h *Handler) internalError(c *gin.Context, message string, err error) {
	h.log.Errorw(message, "path", c.FullPath(), "error", err)
	_ = c.Error(err)
	fail(c, http.StatusInternalServerError, message)
}

// storeError maps repository errors onto responses.
func (h *Handler) storeError(c *gin.Context, notFound, message string, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		fail(c, http.StatusNotFound, notFound)
		return
	}
	h.internalError(c, message, err)
}

type pageParams struct {
	Page  int
	Limit int
}

func parsePage(c *gin.Context) (pageParams, bool) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		fail(c, http.StatusBadRequest, "page must be a positive integer")
		return pageParams{}, false
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 || limit > 100 {
		fail(c, http.StatusBadRequest, "limit must be between 1 and 100")
		return pageParams{}, false
	}
	return pageParams{Page: page, Limit: limit}, true
}

// fetchLimit over-fetches so the requested window survives skipped records.
func (h *Handler) fetchLimit(p pageParams) int {
	n := p.Limit * h.opts.PageMultiplier
	if min := p.Page*p.Limit + 1; min > n {
		n = min
	}
	return n
}

func paginate[T any](items []T, p pageParams) ([]T, *pagination) {
	total := len(items)
	start := (p.Page - 1) * p.Limit
	if start > total {
		start = total
	}
	end := start + p.Limit
	if end > total {
		end = total
	}
	return items[start:end], &pagination{
		Page:    p.Page,
		Limit:   p.Limit,
		Total:   total,
		HasNext: end < total,
		HasPrev: p.Page > 1,
	}
}

func respondPage[T any](c *gin.Context, items []T, p pageParams, message string) {
	window, info := paginate(items, p)
	c.JSON(http.StatusOK, envelope{Success: true, Data: window, Message: message, Pagination: info})
}

// queryFilter treats "" and "all" as no filter.
func queryFilter(c *gin.Context, key string) string {
	v := c.Query(key)
	if v == "all" {
		return ""
	}
	return v
}

func currentIdentity(c *gin.Context) *authUtils.Identity {
	id, _ := middlewares.IdentityFrom(c)
	return id
}

type locationView struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Address   string   `json:"address"`
}

// issueView is the wire form of an issue.
type issueView struct {
	*models.Issue
	ImageURL string           `json:"imageUrl"`
	Location locationView     `json:"location"`
	Distance *float64         `json:"distance,omitempty"`
	UserVote *models.VoteType `json:"userVote,omitempty"`
}

func viewIssue(issue *models.Issue) issueView {
	v := issueView{
		Issue:    issue,
		ImageURL: issue.PrimaryMediaURL(),
		Location: locationView{Address: issue.Address},
	}
	if issue.Location != nil {
		lat, lon := issue.Location.Latitude, issue.Location.Longitude
		v.Location.Latitude, v.Location.Longitude = &lat, &lon
	}
	return v
}

func viewIssues(issues []*models.Issue) []issueView {
	out := make([]issueView, 0, len(issues))
	for _, issue := range issues {
		out = append(out, viewIssue(issue))
	}
	return out
}
