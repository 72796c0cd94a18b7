package models

// Suggestion priorities, 1 (lowest) through 5 (highest).
const (
	PriorityLow      = 1
	PriorityModerate = 2
	PriorityMedium   = 3
	PriorityHigh     = 4
	PriorityCritical = 5
)

// OptimizationSuggestion is a heuristic, human-actionable recommendation.
// EstimatedSavingsBytes is a proportional estimate, not measured recoverable
// memory.
type OptimizationSuggestion struct {
	Category              string `json:"category"`
	Description           string `json:"description"`
	RecommendedAction     string `json:"recommended_action"`
	Priority              int    `json:"priority"`
	EstimatedSavingsBytes uint64 `json:"estimated_savings_bytes"`
}
