package pipeline

import (
	"context"
)

// VisionResult is what the vision stage extracts from an issue's photo.
type VisionResult struct {
	Description        string   `json:"description"`
	ObjectsDetected    []string `json:"objects_detected"`
	SeverityIndicators []string `json:"severity_indicators"`
	ConfidenceScore    float64  `json:"confidence_score"`
	SuggestedCategory  string   `json:"suggested_category"`
	SafetyConcerns     []string `json:"safety_concerns"`
}

// AnalysisInput feeds the analysis stage. ImageSummary is the JSON encoded
// VisionResult, or empty when the issue had no media.
type AnalysisInput struct {
	Description     string
	ImageSummary    string
	AudioTranscript string
}

type AnalysisResult struct {
	AISummary            string   `json:"ai_summary"`
	KeyPoints            []string `json:"key_points"`
	UrgencyIndicators    []string `json:"urgency_indicators"`
	AffectedStakeholders []string `json:"affected_stakeholders"`
	EstimatedImpact      string   `json:"estimated_impact"`
}

type Location struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Address   string   `json:"address"`
}

type TriageInput struct {
	Analysis    AnalysisResult
	Description string
	Location    Location
}

// TriageResult carries free-form priority and category labels; the
// orchestrator normalizes them before storing.
type TriageResult struct {
	Priority                string   `json:"priority"`
	Category                string   `json:"category"`
	Reasoning               string   `json:"reasoning"`
	EstimatedResolutionTime string   `json:"estimated_resolution_time"`
	RequiredDepartments     []string `json:"required_departments"`
	BudgetEstimate          string   `json:"budget_estimate"`
	PublicImpactScore       float64  `json:"public_impact_score"`
	TriageConfidence        float64  `json:"triage_confidence"`
}

type VisionStage interface {
	Describe(ctx context.Context, mediaURL string) (*VisionResult, error)
}

type AnalysisStage interface {
	Analyze(ctx context.Context, in AnalysisInput) (*AnalysisResult, error)
}

type TriageStage interface {
	Triage(ctx context.Context, in TriageInput) (*TriageResult, error)
}
