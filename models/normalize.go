package models

import "strings"

// Legacy and free-form values accepted by the API map onto one canonical
// vocabulary. Keys are matched exactly first and then lower-cased.

var statusMapping = map[string]IssueStatus{
	"pending":     Submitted,
	"open":        Submitted,
	"in-progress": InProgress,
	"in progress": InProgress,
	"resolved":    Resolved,
	"rejected":    Resolved,
	"submitted":   Submitted,
	"Pending":     Submitted,
	"Submitted":   Submitted,
	"In Progress": InProgress,
	"Resolved":    Resolved,
}

// There is exactly one category table; "infrastructure" maps to
// Infrastructure, never to Public Works.
var categoryMapping = map[string]IssueCategory{
	"infrastructure": Infrastructure,
	"public-works":   PublicWorks,
	"public_works":   PublicWorks,
	"public works":   PublicWorks,
	"sanitation":     Sanitation,
	"electrical":     Electrical,
	"electricity":    Electrical,
	"general":        General,
	"other":          General,
	"safety":         General,
	"roads":          Roads,
	"road":           Roads,
	"transport":      Roads,
	"water":          Water,
	"waste":          Waste,

	"Sanitation":     Sanitation,
	"Public Works":   PublicWorks,
	"Electrical":     Electrical,
	"General":        General,
	"Infrastructure": Infrastructure,
	"Water":          Water,
	"Roads":          Roads,
	"Waste":          Waste,
}

var priorityMapping = map[string]Priority{
	"low":      Low,
	"medium":   Medium,
	"high":     High,
	"urgent":   Critical,
	"critical": Critical,

	"Low":      Low,
	"Medium":   Medium,
	"High":     High,
	"Critical": Critical,
}

var processingMapping = map[string]ProcessingStatus{
	"pending":    ProcessingPending,
	"processing": ProcessingInProgress,
	"triaged":    ProcessingTriaged,
	"error":      ProcessingError,
}

func lookup[T any](table map[string]T, value string, fallback T) T {
	if v, ok := table[value]; ok {
		return v
	}
	if v, ok := table[strings.ToLower(strings.TrimSpace(value))]; ok {
		return v
	}
	return fallback
}

// NormalizeStatus converts legacy status values to the current format.
// Unknown values default to Submitted.
func NormalizeStatus(status string) IssueStatus {
	return lookup(statusMapping, status, Submitted)
}

// NormalizeCategory converts legacy category values to the current format.
// Unknown values default to General.
func NormalizeCategory(category string) IssueCategory {
	return lookup(categoryMapping, category, General)
}

// NormalizePriority converts legacy priority values to the current format.
// Unknown values default to Medium.
func NormalizePriority(priority string) Priority {
	return lookup(priorityMapping, priority, Medium)
}

// NormalizeProcessingStatus defaults to pending for unknown values.
func NormalizeProcessingStatus(status string) ProcessingStatus {
	return lookup(processingMapping, status, ProcessingPending)
}
