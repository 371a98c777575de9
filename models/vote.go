package models

import (
	"time"
)

// VoteType is the stance a user takes on an issue. VoteRemove is only ever
// requested, never stored.
type VoteType string

const (
	Upvote     VoteType = "upvote"
	Downvote   VoteType = "downvote"
	VoteRemove VoteType = "remove"
)

// Valid reports whether v is a storable vote type.
func (v VoteType) Valid() bool {
	return v == Upvote || v == Downvote
}

// Vote represents a user's vote on an issue. At most one exists per
// (IssueID, UserID).
type Vote struct {
	ID        string    `json:"id"`
	IssueID   string    `json:"issueId"`
	UserID    string    `json:"userId"`
	VoteType  VoteType  `json:"voteType"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
