package models

import (
	"time"
)

// IssueCategory enum
type IssueCategory string

const (
	Sanitation     IssueCategory = "Sanitation"
	PublicWorks    IssueCategory = "Public Works"
	Electrical     IssueCategory = "Electrical"
	General        IssueCategory = "General"
	Infrastructure IssueCategory = "Infrastructure"
	Water          IssueCategory = "Water"
	Roads          IssueCategory = "Roads"
	Waste          IssueCategory = "Waste"
)

// IssueStatus enum
type IssueStatus string

const (
	Submitted  IssueStatus = "Submitted"
	InProgress IssueStatus = "In Progress"
	Resolved   IssueStatus = "Resolved"
)

// Priority enum
type Priority string

const (
	Critical Priority = "Critical"
	High     Priority = "High"
	Medium   Priority = "Medium"
	Low      Priority = "Low"
)

// ProcessingStatus tracks where an issue is in the AI triage pipeline.
// triaged and error are terminal for one attempt; error may be retried.
type ProcessingStatus string

const (
	ProcessingPending    ProcessingStatus = "pending"
	ProcessingInProgress ProcessingStatus = "processing"
	ProcessingTriaged    ProcessingStatus = "triaged"
	ProcessingError      ProcessingStatus = "error"
)

// GeoPoint is a latitude/longitude pair in degrees.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Issue represents a civic issue reported by a citizen
type Issue struct {
	ID                    string           `json:"issueId"`
	AuthorID              string           `json:"authorId"`
	AuthorName            string           `json:"authorName"`
	AuthorProfileImageURL string           `json:"authorProfileImageUrl,omitempty"`
	Title                 string           `json:"title"`
	Description           string           `json:"description"`
	Location              *GeoPoint        `json:"-"`
	Address               string           `json:"address,omitempty"`
	ImageURLs             []string         `json:"imageUrls"`
	AudioURL              string           `json:"audioUrl,omitempty"`
	Status                IssueStatus      `json:"status"`
	Category              IssueCategory    `json:"category"`
	Priority              Priority         `json:"priority"`
	AISummary             string           `json:"aiSummary,omitempty"`
	ProcessingStatus      ProcessingStatus `json:"processingStatus"`
	ProcessingError       string           `json:"processingError,omitempty"`
	VoteCount             int              `json:"voteCount"`
	Upvotes               int              `json:"upvotes"`
	Downvotes             int              `json:"downvotes"`
	CreatedAt             time.Time        `json:"createdAt"`
	UpdatedAt             time.Time        `json:"updatedAt"`
}

// PrimaryMediaURL returns the first image URL, or "" when the issue has none.
func (i *Issue) PrimaryMediaURL() string {
	for _, u := range i.ImageURLs {
		if u != "" {
			return u
		}
	}
	return ""
}

// NearbyIssue is an issue annotated with its distance from a query point.
type NearbyIssue struct {
	*Issue
	DistanceKm float64 `json:"distance"`
}
