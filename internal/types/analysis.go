package types

// Task and skill contributions to the final exposure score.
const (
	TaskShare  = 0.4
	SkillShare = 0.6
)

// AggregateScore holds the weighted automation totals for one analysis.
type AggregateScore struct {
	TotalTaskAutomation  float64 `json:"total_task_automation"`
	TotalSkillAutomation float64 `json:"total_skill_automation"`
	WeightedFinalScore   float64 `json:"weighted_final_score"`
}

// Level is a three-step ordinal used for likelihood, ease and risk.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Likelihood, Ease and RiskLevel share the low/medium/high scale.
type (
	Likelihood = Level
	Ease       = Level
	RiskLevel  = Level
)

// RiskLevelFor buckets a weighted final score into a risk level.
func RiskLevelFor(score float64) RiskLevel {
	percentage := score * 100
	if percentage > 70 {
		return LevelHigh
	}
	if percentage > 40 {
		return LevelMedium
	}
	return LevelLow
}

// Scenario describes one possible evolution of the job.
type Scenario struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Likelihood  Likelihood `json:"likelihood"`
}

// CareerCandidate is an alternative career before a roadmap is attached.
type CareerCandidate struct {
	JobTitle           string   `json:"job_title"`
	Reason             string   `json:"reason"`
	TransferableSkills []string `json:"transferable_skills"`
	NewSkillsNeeded    []string `json:"new_skills_needed"`
	EaseOfTransition   Ease     `json:"ease_of_transition"`
}

// CareerOption is a CareerCandidate with its roadmap diagram attached.
type CareerOption struct {
	CareerCandidate
	Roadmap          string `json:"roadmap"`
	RoadmapValidated bool   `json:"roadmap_validated"`
	RoadmapAttempts  int    `json:"roadmap_attempts"`
}

// AnalysisResult is the complete output of one analysis request.
type AnalysisResult struct {
	RequestID      string         `json:"request_id"`
	Tasks          []ScoredItem   `json:"task_automation_breakdown"`
	Skills         []ScoredItem   `json:"skill_automation_breakdown"`
	Aggregate      AggregateScore `json:"aggregate"`
	RiskLevel      RiskLevel      `json:"risk_level"`
	Scenarios      []Scenario     `json:"future_scenarios"`
	Careers        []CareerOption `json:"career_recommendations"`
	DurationMillis int64          `json:"duration_ms"`
}
