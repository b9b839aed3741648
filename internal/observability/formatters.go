// Package observability provides Prometheus metrics and formatted output for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/automation-exposure/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 8
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintAnalysis outputs every section of an analysis result.
func (p *Printer) PrintAnalysis(result *types.AnalysisResult) {
	if result == nil {
		return
	}
	p.PrintScore(result)
	p.PrintBreakdown("TASK AUTOMATION", result.Tasks)
	p.PrintBreakdown("SKILL AUTOMATION", result.Skills)
	p.PrintScenarios(result.Scenarios)
	p.PrintCareers(result.Careers)
}

// PrintScore outputs the aggregate score and risk level.
func (p *Printer) PrintScore(result *types.AnalysisResult) {
	if result == nil {
		return
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Tasks:   %5.1f%%\n", result.Aggregate.TotalTaskAutomation*100))
	sb.WriteString(fmt.Sprintf("Skills:  %5.1f%%\n", result.Aggregate.TotalSkillAutomation*100))
	sb.WriteString(fmt.Sprintf("Overall: %5.1f%%  (%s risk)", result.Aggregate.WeightedFinalScore*100, result.RiskLevel))
	p.printBox("AUTOMATION EXPOSURE", sb.String())
}

// PrintBreakdown outputs scored items with their weights.
func (p *Printer) PrintBreakdown(title string, items []types.ScoredItem) {
	if len(items) == 0 {
		return
	}

	var sb strings.Builder
	count := min(len(items), maxItemsToShow)
	for i := 0; i < count; i++ {
		item := items[i]
		sb.WriteString(fmt.Sprintf("%-28s %4.0f%% × %.2f\n",
			truncate(item.Item.Name(), 28), item.Item.Weight()*100, item.AutomationScore))
	}
	if len(items) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more\n", len(items)-maxItemsToShow))
	}
	p.printBox(title, strings.TrimSuffix(sb.String(), "\n"))
}

// PrintScenarios outputs scenario titles with likelihoods.
func (p *Printer) PrintScenarios(scenarios []types.Scenario) {
	if len(scenarios) == 0 {
		return
	}
	var sb strings.Builder
	for i, s := range scenarios {
		sb.WriteString(fmt.Sprintf("%d. %s [%s]\n", i+1, s.Title, s.Likelihood))
	}
	p.printBox("FUTURE SCENARIOS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintCareers outputs alternative careers and whether their roadmap validated.
func (p *Printer) PrintCareers(careers []types.CareerOption) {
	if len(careers) == 0 {
		return
	}
	var sb strings.Builder
	for i, c := range careers {
		status := "✓"
		if !c.RoadmapValidated {
			status = "✗ fallback"
		}
		sb.WriteString(fmt.Sprintf("%d. %s (ease: %s)\n", i+1, c.JobTitle, c.EaseOfTransition))
		sb.WriteString(fmt.Sprintf("   Roadmap: %s after %d attempt(s)\n", status, c.RoadmapAttempts))
		if len(c.NewSkillsNeeded) > 0 {
			sb.WriteString(fmt.Sprintf("   Learn: %s\n", truncate(strings.Join(c.NewSkillsNeeded, ", "), 40)))
		}
	}
	p.printBox("ALTERNATIVE CAREERS", strings.TrimSuffix(sb.String(), "\n"))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
