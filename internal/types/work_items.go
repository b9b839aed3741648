package types

import "encoding/json"

// ItemKind discriminates the two WorkItem variants.
type ItemKind string

const (
	// KindTask marks a Task work item
	KindTask ItemKind = "task"
	// KindSkill marks a Skill work item
	KindSkill ItemKind = "skill"
)

// WorkItem is a weighted unit of a decomposed job: either a Task or a Skill.
type WorkItem interface {
	// Name returns the display name of the item
	Name() string
	// Weight returns time_share for a Task or importance for a Skill
	Weight() float64
	// Kind returns the variant tag
	Kind() ItemKind
	// WeightLabel returns the human label of the weight ("Time Share", "Importance")
	WeightLabel() string
}

// Task is a job activity weighted by the share of working time it takes.
type Task struct {
	TaskName  string  `json:"task_name"`
	TimeShare float64 `json:"time_share"`
}

func (t Task) Name() string        { return t.TaskName }
func (t Task) Weight() float64     { return t.TimeShare }
func (t Task) Kind() ItemKind      { return KindTask }
func (t Task) WeightLabel() string { return "Time Share" }

// Skill is a competency weighted by its importance to the job.
type Skill struct {
	SkillName  string  `json:"skill_name"`
	Importance float64 `json:"importance"`
}

func (s Skill) Name() string        { return s.SkillName }
func (s Skill) Weight() float64     { return s.Importance }
func (s Skill) Kind() ItemKind      { return KindSkill }
func (s Skill) WeightLabel() string { return "Importance" }

// TasksAsItems converts tasks to WorkItems preserving order.
func TasksAsItems(tasks []Task) []WorkItem {
	items := make([]WorkItem, len(tasks))
	for i, t := range tasks {
		items[i] = t
	}
	return items
}

// SkillsAsItems converts skills to WorkItems preserving order.
func SkillsAsItems(skills []Skill) []WorkItem {
	items := make([]WorkItem, len(skills))
	for i, s := range skills {
		items[i] = s
	}
	return items
}

// WeightSum sums item weights in input order.
func WeightSum(items []WorkItem) float64 {
	sum := 0.0
	for _, item := range items {
		sum += item.Weight()
	}
	return sum
}

// ScoredItem is a WorkItem with its automation score attached.
// It is immutable once created by NewScoredItem.
type ScoredItem struct {
	Item            WorkItem
	AutomationScore float64
	WeightedScore   float64
}

// NewScoredItem attaches a score to an item and derives weighted_score.
func NewScoredItem(item WorkItem, score float64) ScoredItem {
	return ScoredItem{
		Item:            item,
		AutomationScore: score,
		WeightedScore:   item.Weight() * score,
	}
}

type scoredItemJSON struct {
	Name            string   `json:"name"`
	Kind            ItemKind `json:"kind"`
	Weight          float64  `json:"weight"`
	AutomationScore float64  `json:"automation_score"`
	WeightedScore   float64  `json:"weighted_score"`
}

// MarshalJSON flattens the item into a single object.
func (s ScoredItem) MarshalJSON() ([]byte, error) {
	out := scoredItemJSON{
		AutomationScore: s.AutomationScore,
		WeightedScore:   s.WeightedScore,
	}
	if s.Item != nil {
		out.Name = s.Item.Name()
		out.Kind = s.Item.Kind()
		out.Weight = s.Item.Weight()
	}
	return json.Marshal(out)
}
