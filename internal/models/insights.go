package models

import "time"

// Perspective names
const (
	PerspectiveAnalyst    = "analyst"
	PerspectiveContrarian = "contrarian"
	PerspectiveEducator   = "educator"
	PerspectiveVerdict    = "verdict"
)

// Insight status values
const (
	InsightsReady       = "ready"
	InsightsPartial     = "partial"
	InsightsPending     = "pending"
	InsightsUnavailable = "unavailable"
	InsightsDisabled    = "disabled"
)

// AIInsights holds the narrative perspectives. Any field may be empty when
// its backend failed; the numeric report stays valid regardless.
type AIInsights struct {
	Analyst      string     `json:"analyst"`
	Contrarian   string     `json:"contrarian"`
	Educator     string     `json:"educator"`
	FinalVerdict string     `json:"final_verdict"`
	Status       string     `json:"status"`
	Failed       []string   `json:"failed,omitempty"`
	GeneratedAt  *time.Time `json:"generated_at,omitempty"`
}

// Succeeded returns the perspectives with text, in fixed order.
func (a *AIInsights) Succeeded() map[string]string {
	out := make(map[string]string, 3)
	if a.Analyst != "" {
		out[PerspectiveAnalyst] = a.Analyst
	}
	if a.Contrarian != "" {
		out[PerspectiveContrarian] = a.Contrarian
	}
	if a.Educator != "" {
		out[PerspectiveEducator] = a.Educator
	}
	return out
}

// CompletionRequest is one prompt sent to a model backend.
type CompletionRequest struct {
	Kind        string
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}
