package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/storyscript/storyc/internal/cli/config"
	"github.com/storyscript/storyc/internal/cli/output"
	"github.com/storyscript/storyc/internal/dag"
)

// Limits of the import health rules.
const (
	maxImportDepth = 5
	maxImports     = 8
)

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor [path]",
		Short: "Run a project health check",
		Long: `Analyze the stories at path for problems and report:
- Project summary (stories, modules, services, import depth)
- Health checks grouped by category
- Health score (0-100)
- Actionable recommendations

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON/YAML: Machine-readable format`,
		Example: `  # Run health check
  storyscript doctor

  # Output as JSON
  storyscript doctor --output json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd, storyPath(args))
		},
	}
}

// DoctorOutput is the structured output of the doctor command.
type DoctorOutput struct {
	Summary         ProjectSummary `json:"summary" yaml:"summary"`
	HealthChecks    []HealthCheck  `json:"health_checks" yaml:"health_checks"`
	Score           int            `json:"score" yaml:"score"`
	Recommendations []string       `json:"recommendations" yaml:"recommendations"`
	IssueCount      int            `json:"issue_count" yaml:"issue_count"`
}

// ProjectSummary contains project-level statistics.
type ProjectSummary struct {
	Stories  int `json:"stories" yaml:"stories"`
	Modules  int `json:"modules" yaml:"modules"`
	Services int `json:"services" yaml:"services"`
	Depth    int `json:"depth" yaml:"depth"`
	Leaves   int `json:"leaves" yaml:"leaves"`
	Imports  int `json:"imports" yaml:"imports"`
}

// HealthCheck is the result of one health rule.
type HealthCheck struct {
	RuleID     string   `json:"rule_id" yaml:"rule_id"`
	Name       string   `json:"name" yaml:"name"`
	Group      string   `json:"group" yaml:"group"`
	Status     string   `json:"status" yaml:"status"` // "pass", "warn", "error"
	IssueCount int      `json:"issue_count" yaml:"issue_count"`
	Details    []string `json:"details,omitempty" yaml:"details,omitempty"`
}

// projectHealth is what the health rules inspect.
type projectHealth struct {
	results    []CheckResult
	graph      *dag.Graph
	levels     [][]string
	configFile string
}

// healthRule reports one issue per returned detail.
type healthRule struct {
	ID             string
	Name           string
	Group          string
	Severity       string
	Recommendation string
	check          func(h *projectHealth) []string
}

var healthRules = []healthRule{
	{
		ID:             "SC01",
		Name:           "stories-compile",
		Group:          "compilation",
		Severity:       "error",
		Recommendation: "Fix the stories that fail to compile (see storyscript check)",
		check: func(h *projectHealth) []string {
			var details []string
			for _, result := range h.results {
				if !result.OK {
					details = append(details, result.Story+": "+result.Error)
				}
			}
			return details
		},
	},
	{
		ID:             "SI01",
		Name:           "import-depth",
		Group:          "imports",
		Severity:       "warn",
		Recommendation: "Flatten deep import chains by importing shared modules directly",
		check: func(h *projectHealth) []string {
			var details []string
			for level := maxImportDepth; level < len(h.levels); level++ {
				for _, story := range h.levels[level] {
					details = append(details, fmt.Sprintf("%s is %d imports deep", story, level))
				}
			}
			return details
		},
	},
	{
		ID:             "SI02",
		Name:           "import-fanout",
		Group:          "imports",
		Severity:       "warn",
		Recommendation: "Split stories importing many modules into smaller stories",
		check: func(h *projectHealth) []string {
			var details []string
			for _, node := range h.graph.Stories() {
				if n := len(h.graph.Modules(node.Path)); n > maxImports {
					details = append(details, fmt.Sprintf("%s imports %d modules", node.Path, n))
				}
			}
			return details
		},
	},
	{
		ID:             "SP01",
		Name:           "config-file",
		Group:          "project",
		Severity:       "warn",
		Recommendation: "Add a storyscript.yaml at the project root",
		check: func(h *projectHealth) []string {
			if h.configFile == "" {
				return []string{"no storyscript.yaml found"}
			}
			return nil
		},
	},
}

func runDoctor(cmd *cobra.Command, p string) error {
	cmdCtx := NewCommandContext(cmd)
	ctx := cmd.Context()

	build, err := cmdCtx.Build(ctx, p)
	if err != nil {
		return err
	}
	results, err := checkStories(ctx, build, 0)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if len(results) == 0 {
		r.Warning("No stories found in project")
		return nil
	}

	// One build over every story fills the graph; failures are already in
	// results.
	if err := build.Check(ctx); err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return err
	}
	health := &projectHealth{
		results:    results,
		graph:      build.Graph(),
		configFile: config.GetConfigFileUsed(),
	}
	if health.levels, err = health.graph.Levels(); err != nil {
		cmdCtx.Logger.Debug("import levels unavailable", "error", err)
	}

	doctorOutput := buildDoctorOutput(health, len(build.Services()))

	switch r.EffectiveMode() {
	case output.ModeJSON, output.ModeYAML:
		return r.Encode(doctorOutput)
	case output.ModeMarkdown:
		return renderDoctorMarkdown(r, doctorOutput)
	default:
		return renderDoctorText(r, doctorOutput)
	}
}

func buildDoctorOutput(h *projectHealth, services int) *DoctorOutput {
	summary := buildProjectSummary(h)
	summary.Services = services

	healthChecks := make([]HealthCheck, 0, len(healthRules))
	issues := 0
	for _, rule := range healthRules {
		details := rule.check(h)
		status := "pass"
		if len(details) > 0 {
			status = rule.Severity
		}
		issues += len(details)
		healthChecks = append(healthChecks, HealthCheck{
			RuleID:     rule.ID,
			Name:       rule.Name,
			Group:      rule.Group,
			Status:     status,
			IssueCount: len(details),
			Details:    details,
		})
	}

	// Sort health checks by group then by rule ID
	sort.Slice(healthChecks, func(i, j int) bool {
		if healthChecks[i].Group != healthChecks[j].Group {
			return healthChecks[i].Group < healthChecks[j].Group
		}
		return healthChecks[i].RuleID < healthChecks[j].RuleID
	})

	return &DoctorOutput{
		Summary:         summary,
		HealthChecks:    healthChecks,
		Score:           calculateHealthScore(healthChecks, summary.Stories),
		Recommendations: generateRecommendations(healthChecks),
		IssueCount:      issues,
	}
}

func buildProjectSummary(h *projectHealth) ProjectSummary {
	summary := ProjectSummary{
		Stories: h.graph.Len(),
		Depth:   len(h.levels),
		Leaves:  len(h.graph.Leaves()),
		Imports: h.graph.ImportCount(),
	}
	for _, node := range h.graph.Stories() {
		if len(h.graph.Importers(node.Path)) > 0 {
			summary.Modules++
		}
	}
	return summary
}

// calculateHealthScore computes a health score from 0-100.
// Each issue costs points, errors double; the more stories, the less a
// single issue weighs.
func calculateHealthScore(checks []HealthCheck, storyCount int) int {
	if len(checks) == 0 {
		return 100
	}

	score := 100.0

	basePenalty := 5.0
	if storyCount > 10 {
		basePenalty = 3.0
	}
	if storyCount > 50 {
		basePenalty = 2.0
	}
	if storyCount > 100 {
		basePenalty = 1.0
	}

	for _, check := range checks {
		switch check.Status {
		case "error":
			score -= float64(check.IssueCount) * basePenalty * 2
		case "warn":
			score -= float64(check.IssueCount) * basePenalty
		}
	}

	return int(min(max(score, 0), 100))
}

// generateRecommendations returns the recommendations of the failing
// checks, at most five.
func generateRecommendations(checks []HealthCheck) []string {
	recommendations := []string{}
	seen := make(map[string]bool)

	for _, check := range checks {
		if check.IssueCount == 0 {
			continue
		}
		rec := getRecommendation(check.RuleID)
		if rec != "" && !seen[rec] {
			recommendations = append(recommendations, rec)
			seen[rec] = true
		}
	}

	if len(recommendations) > 5 {
		recommendations = recommendations[:5]
	}
	return recommendations
}

// getRecommendation returns the recommendation of a rule.
func getRecommendation(ruleID string) string {
	for _, rule := range healthRules {
		if rule.ID == ruleID {
			return rule.Recommendation
		}
	}
	return ""
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) error {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header1.Render("Storyscript Project Health Report"))
	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	r.Println("")

	r.Println(styles.Header2.Render("Project Summary"))
	r.Printf("   Stories: %d | Modules: %d | Services: %d\n", out.Summary.Stories, out.Summary.Modules, out.Summary.Services)
	r.Printf("   Import Depth: %d levels | Leaves: %d | Imports: %d\n", out.Summary.Depth, out.Summary.Leaves, out.Summary.Imports)
	r.Println("")

	r.Println(styles.Header2.Render("Health Checks"))
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println(styles.Header2.Render("   " + titleCaser.String(currentGroup)))
			r.Println(styles.Muted.Render("   " + strings.Repeat("-", 40)))
		}

		icon := styles.Success.Render("✓")
		switch check.Status {
		case "warn":
			icon = styles.Warning.Render("!")
		case "error":
			icon = styles.Error.Render("✗")
		}

		status := fmt.Sprintf("%s %s: %s", icon, check.RuleID, check.Name)
		if check.IssueCount > 0 {
			status += fmt.Sprintf(" (%d issues)", check.IssueCount)
		}
		r.Println("   " + status)

		for i, detail := range check.Details {
			if i >= 3 {
				r.Println(styles.Muted.Render(fmt.Sprintf("       ... and %d more", len(check.Details)-3)))
				break
			}
			r.Println(styles.Muted.Render("       - " + detail))
		}
	}
	r.Println("")

	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	scoreStyle := styles.Success
	if out.Score < 70 {
		scoreStyle = styles.Warning
	}
	if out.Score < 50 {
		scoreStyle = styles.Error
	}
	r.Printf("   Health Score: %s\n", scoreStyle.Render(fmt.Sprintf("%d/100", out.Score)))
	r.Println("")

	if len(out.Recommendations) > 0 {
		r.Println(styles.Header2.Render("Recommendations"))
		for i, rec := range out.Recommendations {
			r.Printf("   %d. %s\n", i+1, rec)
		}
		r.Println("")
	}
	return nil
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) error {
	r.Println("# Storyscript Project Health Report")
	r.Println("")

	r.Println("## Project Summary")
	r.Println("")
	r.Println(output.FormatKeyValue("Stories", fmt.Sprint(out.Summary.Stories)))
	r.Println(output.FormatKeyValue("Modules", fmt.Sprint(out.Summary.Modules)))
	r.Println(output.FormatKeyValue("Services", fmt.Sprint(out.Summary.Services)))
	r.Println(output.FormatKeyValue("Import Depth", fmt.Sprintf("%d levels", out.Summary.Depth)))
	r.Println(output.FormatKeyValue("Leaves", fmt.Sprint(out.Summary.Leaves)))
	r.Println("")

	r.Println("## Health Checks")
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println("### " + titleCaser.String(currentGroup))
			r.Println("")
		}

		line := fmt.Sprintf("- **[%s]** %s: %s", strings.ToUpper(check.Status), check.RuleID, check.Name)
		if check.IssueCount > 0 {
			line += fmt.Sprintf(" (%d issues)", check.IssueCount)
		}
		r.Println(line)
		for _, detail := range check.Details {
			r.Printf("  - %s\n", detail)
		}
	}
	r.Println("")

	r.Println("## Health Score")
	r.Println("")
	r.Printf("**%d/100**\n", out.Score)
	r.Println("")

	if len(out.Recommendations) > 0 {
		r.Println("## Recommendations")
		r.Println("")
		for i, rec := range out.Recommendations {
			r.Printf("%d. %s\n", i+1, rec)
		}
		r.Println("")
	}
	return nil
}
