package pipeline

import (
	"context"
	"time"
)

// The simulated stages stand in for the model services. They return fixed
// answers after a configurable delay.

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type SimulatedVision struct {
	Latency time.Duration
}

func (s SimulatedVision) Describe(ctx context.Context, _ string) (*VisionResult, error) {
	if err := sleep(ctx, s.Latency); err != nil {
		return nil, err
	}
	return &VisionResult{
		Description:        "Image shows a damaged road with potholes and broken pavement",
		ObjectsDetected:    []string{"road", "pothole", "asphalt", "damage"},
		SeverityIndicators: []string{"cracks", "holes", "surface_damage"},
		ConfidenceScore:    0.92,
		SuggestedCategory:  "Public Works",
		SafetyConcerns:     []string{"vehicle_damage_risk", "pedestrian_hazard"},
	}, nil
}

type SimulatedAnalysis struct {
	Latency time.Duration
}

func (s SimulatedAnalysis) Analyze(ctx context.Context, _ AnalysisInput) (*AnalysisResult, error) {
	if err := sleep(ctx, s.Latency); err != nil {
		return nil, err
	}
	return &AnalysisResult{
		AISummary: "This issue involves infrastructure damage requiring immediate attention. " +
			"Based on visual evidence and user description, this appears to be a road maintenance issue " +
			"that could pose safety risks to vehicles and pedestrians.",
		KeyPoints: []string{
			"Road surface damage identified",
			"Safety hazard for vehicles",
			"Requires municipal attention",
			"Located in high-traffic area",
		},
		UrgencyIndicators:    []string{"safety_risk", "infrastructure_damage", "public_area"},
		AffectedStakeholders: []string{"motorists", "pedestrians", "local_residents"},
		EstimatedImpact:      "medium_to_high",
	}, nil
}

type SimulatedTriage struct {
	Latency time.Duration
}

func (s SimulatedTriage) Triage(ctx context.Context, _ TriageInput) (*TriageResult, error) {
	if err := sleep(ctx, s.Latency); err != nil {
		return nil, err
	}
	return &TriageResult{
		Priority:                "High",
		Category:                "Public Works",
		Reasoning:               "Road infrastructure damage poses immediate safety risks and requires municipal intervention",
		EstimatedResolutionTime: "7-14 days",
		RequiredDepartments:     []string{"Public Works", "Traffic Management"},
		BudgetEstimate:          "medium",
		PublicImpactScore:       7.5,
		TriageConfidence:        0.89,
	}, nil
}
