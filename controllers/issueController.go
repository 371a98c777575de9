package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"meriawaaz-be/models"
	"meriawaaz-be/repository"
	"meriawaaz-be/storage"
	"meriawaaz-be/votes"
)

const (
	defaultNearbyRadiusKm = 10.0
	defaultNearbyLimit    = 50
	maxNearbyLimit        = 500
)

type locationInput struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Address   string   `json:"address"`
}

func (l *locationInput) point() (*models.GeoPoint, error) {
	if l.Latitude == nil && l.Longitude == nil {
		return nil, nil
	}
	if l.Latitude == nil || l.Longitude == nil {
		return nil, errors.New("latitude and longitude must be provided together")
	}
	lat, lon := *l.Latitude, *l.Longitude
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, errors.New("coordinates out of range")
	}
	return &models.GeoPoint{Latitude: lat, Longitude: lon}, nil
}

type createIssueRequest struct {
	Title       string         `json:"title" binding:"required,max=200"`
	Description string         `json:"description" binding:"required,max=2000"`
	Category    string         `json:"category"`
	Priority    string         `json:"priority"`
	Location    *locationInput `json:"location"`
	ImageURLs   []string       `json:"imageUrls"`
	AudioURL    string         `json:"audioUrl"`
}

// CreateIssue stores a new issue and hands it to the triage pipeline.
func (h *Handler) CreateIssue(c *gin.Context) {
	identity := currentIdentity(c)

	var input createIssueRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	issue := &models.Issue{
		AuthorID:         identity.UID,
		Title:            input.Title,
		Description:      input.Description,
		Category:         models.NormalizeCategory(input.Category),
		Priority:         models.NormalizePriority(input.Priority),
		Status:           models.Submitted,
		ImageURLs:        input.ImageURLs,
		AudioURL:         input.AudioURL,
		ProcessingStatus: models.ProcessingInProgress,
	}
	if input.Location != nil {
		point, err := input.Location.point()
		if err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		issue.Location = point
		issue.Address = input.Location.Address
	}

	ctx := c.Request.Context()
	profile, err := h.ensureProfile(ctx, identity)
	if err != nil {
		h.internalError(c, "Failed to load user profile", err)
		return
	}
	issue.AuthorName = profile.Name
	if issue.AuthorName == "" {
		issue.AuthorName = "Unknown User"
	}
	issue.AuthorProfileImageURL = profile.Avatar

	id, err := h.issues.Create(ctx, issue)
	if err != nil {
		h.internalError(c, "Failed to create issue", err)
		return
	}
	h.log.Infow("issue created", "issue_id", id, "user_id", identity.UID)

	if err := h.dispatcher.Dispatch(ctx, id); err != nil {
		h.log.Errorw("failed to dispatch issue for processing", "issue_id", id, "error", err)
		errStatus := models.ProcessingError
		msg := fmt.Sprintf("dispatch failed: %v", err)
		if uerr := h.issues.Update(ctx, id, repository.IssuePatch{ProcessingStatus: &errStatus, ProcessingError: &msg}); uerr != nil {
			h.log.Errorw("failed to mark undispatched issue", "issue_id", id, "error", uerr)
		}
		respond(c, http.StatusAccepted, gin.H{"issueId": id, "status": errStatus},
			"Issue submitted successfully, processing will be retried")
		return
	}

	respond(c, http.StatusAccepted, gin.H{"issueId": id, "status": models.ProcessingInProgress},
		"Issue submitted successfully and is being processed")
}

// GetAllIssues handles retrieving issues with filtering and pagination
func (h *Handler) GetAllIssues(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}

	issues, err := h.issues.List(c.Request.Context(), repository.ListFilter{
		Category: queryFilter(c, "category"),
		Status:   queryFilter(c, "status"),
		Priority: queryFilter(c, "priority"),
		Limit:    h.fetchLimit(page),
	})
	if err != nil {
		h.internalError(c, "Failed to retrieve issues", err)
		return
	}

	respondPage(c, viewIssues(issues), page, "Issues retrieved successfully")
}

// GetMapIssues returns every issue that has coordinates.
func (h *Handler) GetMapIssues(c *gin.Context) {
	issues, err := h.issues.List(c.Request.Context(), repository.ListFilter{GeotaggedOnly: true})
	if err != nil {
		h.internalError(c, "Failed to retrieve issues for map", err)
		return
	}
	respond(c, http.StatusOK, gin.H{"issues": viewIssues(issues)}, "Issues for map retrieved successfully")
}

// GetNearbyIssues returns issues within radius km of lat/lon, closest first.
func (h *Handler) GetNearbyIssues(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lon, errLon := strconv.ParseFloat(c.Query("lon"), 64)
	if errLat != nil || errLon != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		fail(c, http.StatusBadRequest, "lat and lon query parameters are required")
		return
	}

	radius := defaultNearbyRadiusKm
	if raw := c.Query("radius"); raw != "" {
		r, err := strconv.ParseFloat(raw, 64)
		if err != nil || r <= 0 {
			fail(c, http.StatusBadRequest, "radius must be a positive number")
			return
		}
		radius = r
	}

	limit := defaultNearbyLimit
	if raw := c.Query("limit"); raw != "" {
		l, err := strconv.Atoi(raw)
		if err != nil || l < 1 || l > maxNearbyLimit {
			fail(c, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxNearbyLimit))
			return
		}
		limit = l
	}

	nearby, err := h.issues.Nearby(c.Request.Context(), lat, lon, radius, limit)
	if err != nil {
		h.internalError(c, "Failed to retrieve nearby issues", err)
		return
	}

	views := make([]issueView, 0, len(nearby))
	for _, n := range nearby {
		v := viewIssue(n.Issue)
		d := n.DistanceKm
		v.Distance = &d
		views = append(views, v)
	}
	respond(c, http.StatusOK, gin.H{
		"issues": views,
		"center": gin.H{"latitude": lat, "longitude": lon},
		"radius": radius,
	}, "Nearby issues retrieved successfully")
}

// GetIssue retrieves an issue by its ID, with the caller's vote when signed in.
func (h *Handler) GetIssue(c *gin.Context) {
	ctx := c.Request.Context()
	issue, err := h.issues.Get(ctx, c.Param("id"))
	if err != nil {
		h.storeError(c, "Issue not found", "Failed to retrieve issue", err)
		return
	}

	view := viewIssue(issue)
	if identity := currentIdentity(c); identity != nil {
		vote, err := h.ledger.UserVote(ctx, issue.ID, identity.UID)
		if err != nil {
			h.log.Warnw("failed to load user vote", "issue_id", issue.ID, "user_id", identity.UID, "error", err)
		}
		view.UserVote = vote
	}
	respond(c, http.StatusOK, view, "Issue retrieved successfully")
}

type updateIssueRequest struct {
	Title       *string        `json:"title" binding:"omitempty,max=200"`
	Description *string        `json:"description" binding:"omitempty,max=2000"`
	Status      *string        `json:"status"`
	Address     *string        `json:"address"`
	Location    *locationInput `json:"location"`
}

// UpdateIssue lets the author change the editable fields of an issue.
func (h *Handler) UpdateIssue(c *gin.Context) {
	var input updateIssueRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	patch := repository.IssuePatch{
		Title:       input.Title,
		Description: input.Description,
		Address:     input.Address,
	}
	if input.Status != nil {
		status := models.NormalizeStatus(*input.Status)
		patch.Status = &status
	}
	if input.Location != nil {
		point, err := input.Location.point()
		if err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		patch.Location = point
		if input.Location.Address != "" && patch.Address == nil {
			patch.Address = &input.Location.Address
		}
	}
	if patch.Title == nil && patch.Description == nil && patch.Address == nil && patch.Status == nil && patch.Location == nil {
		fail(c, http.StatusBadRequest, "No fields to update")
		return
	}

	issue, ok := h.authorIssue(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := h.issues.Update(ctx, issue.ID, patch); err != nil {
		h.storeError(c, "Issue not found", "Failed to update issue", err)
		return
	}
	updated, err := h.issues.Get(ctx, issue.ID)
	if err != nil {
		h.storeError(c, "Issue not found", "Failed to retrieve issue", err)
		return
	}
	respond(c, http.StatusOK, viewIssue(updated), "Issue updated successfully")
}

// DeleteIssue removes an issue, its votes and its uploaded media.
func (h *Handler) DeleteIssue(c *gin.Context) {
	issue, ok := h.authorIssue(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := h.issues.Delete(ctx, issue.ID); err != nil {
		h.storeError(c, "Issue not found", "Failed to delete issue", err)
		return
	}

	if h.blobs != nil {
		media := append([]string{}, issue.ImageURLs...)
		if issue.AudioURL != "" {
			media = append(media, issue.AudioURL)
		}
		for _, u := range media {
			if err := h.blobs.Delete(ctx, u); err != nil {
				if errors.Is(err, storage.ErrForeignURL) {
					h.log.Debugw("skipping media hosted elsewhere", "issue_id", issue.ID, "url", u)
					continue
				}
				h.log.Warnw("failed to delete issue media", "issue_id", issue.ID, "url", u, "error", err)
			}
		}
	}

	h.log.Infow("issue deleted", "issue_id", issue.ID)
	respond(c, http.StatusOK, gin.H{"issueId": issue.ID}, "Issue deleted successfully")
}

// authorIssue loads the issue in the path and checks the caller wrote it.
func (h *Handler) authorIssue(c *gin.Context) (*models.Issue, bool) {
	issue, err := h.issues.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.storeError(c, "Issue not found", "Failed to retrieve issue", err)
		return nil, false
	}
	if issue.AuthorID != currentIdentity(c).UID {
		fail(c, http.StatusForbidden, "Only the author can modify this issue")
		return nil, false
	}
	return issue, true
}

func (h *Handler) UpvoteIssue(c *gin.Context) {
	h.toggleVote(c, models.Upvote)
}

func (h *Handler) DownvoteIssue(c *gin.Context) {
	h.toggleVote(c, models.Downvote)
}

var toggleMessages = map[models.VoteType]map[votes.Action]string{
	models.Upvote: {
		votes.ActionCreated: "Issue upvoted",
		votes.ActionRemoved: "Upvote removed",
		votes.ActionUpdated: "Changed to upvote",
	},
	models.Downvote: {
		votes.ActionCreated: "Issue downvoted",
		votes.ActionRemoved: "Downvote removed",
		votes.ActionUpdated: "Changed to downvote",
	},
}

func (h *Handler) toggleVote(c *gin.Context, voteType models.VoteType) {
	result, err := h.ledger.Toggle(c.Request.Context(), c.Param("id"), currentIdentity(c).UID, voteType)
	if err != nil {
		h.storeError(c, "Issue not found", "Failed to record vote", err)
		return
	}

	respond(c, http.StatusOK, gin.H{
		"upvotes":   result.Tally.Upvotes,
		"downvotes": result.Tally.Downvotes,
		"userVote":  result.UserVote,
	}, toggleMessages[voteType][result.Action])
}

// CastVote sets the caller's vote explicitly: upvote, downvote or remove.
func (h *Handler) CastVote(c *gin.Context) {
	var input struct {
		VoteType models.VoteType `json:"voteType" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx := c.Request.Context()
	issueID, userID := c.Param("id"), currentIdentity(c).UID
	if err := h.ledger.Cast(ctx, issueID, userID, input.VoteType); err != nil {
		if errors.Is(err, votes.ErrInvalidVoteType) {
			fail(c, http.StatusBadRequest, "voteType must be upvote, downvote or remove")
			return
		}
		h.storeError(c, "Issue not found", "Failed to record vote", err)
		return
	}

	issue, err := h.issues.Get(ctx, issueID)
	if err != nil {
		h.storeError(c, "Issue not found", "Failed to retrieve issue", err)
		return
	}
	vote, err := h.ledger.UserVote(ctx, issueID, userID)
	if err != nil {
		h.internalError(c, "Failed to retrieve vote", err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"upvotes":   issue.Upvotes,
		"downvotes": issue.Downvotes,
		"userVote":  vote,
	}, "Vote recorded")
}

// GetUserVote returns the caller's vote on the issue, or null.
func (h *Handler) GetUserVote(c *gin.Context) {
	ctx := c.Request.Context()
	issue, err := h.issues.Get(ctx, c.Param("id"))
	if err != nil {
		h.storeError(c, "Issue not found", "Failed to retrieve issue", err)
		return
	}

	vote, err := h.ledger.UserVote(ctx, issue.ID, currentIdentity(c).UID)
	if err != nil {
		h.internalError(c, "Failed to retrieve vote", err)
		return
	}
	respond(c, http.StatusOK, gin.H{"issueId": issue.ID, "userVote": vote}, "Vote retrieved successfully")
}
