package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"meriawaaz-be/models"
	"meriawaaz-be/repository"
	authUtils "meriawaaz-be/utils"
)

// profileFromIdentity builds the default profile for a first-time caller.
func profileFromIdentity(identity *authUtils.Identity) *models.User {
	name := identity.Name
	if name == "" {
		name, _, _ = strings.Cut(identity.Email, "@")
	}
	if name == "" {
		name = "Unknown User"
	}
	return &models.User{
		ID:    identity.UID,
		Name:  name,
		Email: identity.Email,
		Phone: identity.Phone,
	}
}

// ensureProfileCreated returns the caller's profile, creating it on first use. The
// second return value reports whether it was created.
func (h *Handler) ensureProfileCreated(ctx context.Context, identity *authUtils.Identity) (*models.User, bool, error) {
	user, err := h.users.GetByID(ctx, identity.UID)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, err
	}

	user = profileFromIdentity(identity)
	if _, err := h.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Lost a race with a concurrent first request.
			existing, gerr := h.users.GetByID(ctx, identity.UID)
			if gerr == nil {
				return existing, false, nil
			}
		}
		return nil, false, err
	}
	h.log.Infow("user profile created", "user_id", identity.UID)
	return user, true, nil
}

func (h *Handler) ensureProfile(ctx context.Context, identity *authUtils.Identity) (*models.User, error) {
	user, _, err := h.ensureProfileCreated(ctx, identity)
	return user, err
}

// GetProfile returns the caller's profile, creating a default one if needed.
func (h *Handler) GetProfile(c *gin.Context) {
	user, err := h.ensureProfile(c.Request.Context(), currentIdentity(c))
	if err != nil {
		h.internalError(c, "Failed to retrieve user profile", err)
		return
	}
	respond(c, http.StatusOK, user, "User profile retrieved successfully")
}

// UpdateProfile merges the provided fields into the caller's profile.
func (h *Handler) UpdateProfile(c *gin.Context) {
	var patch models.UserPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if patch.Empty() {
		fail(c, http.StatusBadRequest, "No fields to update")
		return
	}

	ctx := c.Request.Context()
	identity := currentIdentity(c)
	if _, err := h.ensureProfile(ctx, identity); err != nil {
		h.internalError(c, "Failed to update profile", err)
		return
	}

	// A changed number has to be verified again.
	if patch.Phone != nil {
		unverified := false
		patch.PhoneVerified = &unverified
	}

	user, err := h.users.Update(ctx, identity.UID, patch)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			fail(c, http.StatusBadRequest, "Email is already in use")
			return
		}
		h.storeError(c, "User not found", "Failed to update profile", err)
		return
	}
	respond(c, http.StatusOK, user, "Profile updated successfully")
}

// CreateProfile is idempotent: an existing profile is returned unchanged.
func (h *Handler) CreateProfile(c *gin.Context) {
	user, created, err := h.ensureProfileCreated(c.Request.Context(), currentIdentity(c))
	if err != nil {
		h.internalError(c, "Failed to create user profile", err)
		return
	}
	if !created {
		respond(c, http.StatusOK, user, "User profile already exists")
		return
	}
	respond(c, http.StatusCreated, user, "User profile created successfully")
}

// GetUserIssues lists the caller's own issues, newest first.
func (h *Handler) GetUserIssues(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}

	issues, err := h.issues.List(c.Request.Context(), repository.ListFilter{
		AuthorID: currentIdentity(c).UID,
		Status:   queryFilter(c, "status"),
		Limit:    h.fetchLimit(page),
	})
	if err != nil {
		h.internalError(c, "Failed to retrieve user issues", err)
		return
	}

	respondPage(c, viewIssues(issues), page, "User issues retrieved successfully")
}

type userStats struct {
	IssuesReported   int            `json:"issuesReported"`
	IssuesResolved   int            `json:"issuesResolved"`
	VotesCast        int64          `json:"votesCast"`
	IssuesByStatus   map[string]int `json:"issuesByStatus"`
	IssuesByCategory map[string]int `json:"issuesByCategory"`
}

// GetUserStats summarises the caller's activity.
func (h *Handler) GetUserStats(c *gin.Context) {
	ctx := c.Request.Context()
	uid := currentIdentity(c).UID

	issues, err := h.issues.List(ctx, repository.ListFilter{AuthorID: uid})
	if err != nil {
		h.internalError(c, "Failed to retrieve statistics", err)
		return
	}
	votesCast, err := h.votes.CountByUser(ctx, uid)
	if err != nil {
		h.internalError(c, "Failed to retrieve statistics", err)
		return
	}

	stats := userStats{
		IssuesReported:   len(issues),
		VotesCast:        votesCast,
		IssuesByStatus:   make(map[string]int),
		IssuesByCategory: make(map[string]int),
	}
	for _, issue := range issues {
		stats.IssuesByStatus[string(issue.Status)]++
		stats.IssuesByCategory[string(issue.Category)]++
		if issue.Status == models.Resolved {
			stats.IssuesResolved++
		}
	}
	respond(c, http.StatusOK, stats, "User statistics retrieved successfully")
}
