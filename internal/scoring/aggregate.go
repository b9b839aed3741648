package scoring

import "github.com/jonathan/automation-exposure/internal/types"

// Aggregate sums weighted scores in input order and combines them with the
// fixed task and skill shares.
func Aggregate(tasks, skills []types.ScoredItem) types.AggregateScore {
	totalTasks := sumWeighted(tasks)
	totalSkills := sumWeighted(skills)
	return types.AggregateScore{
		TotalTaskAutomation:  totalTasks,
		TotalSkillAutomation: totalSkills,
		WeightedFinalScore:   types.TaskShare*totalTasks + types.SkillShare*totalSkills,
	}
}

func sumWeighted(items []types.ScoredItem) float64 {
	total := 0.0
	for _, item := range items {
		total += item.WeightedScore
	}
	return total
}
