package analytics

import (
	"time"

	"github.com/noah-isme/workhabits-api/internal/models"
)

// DashboardOptions tunes BuildDashboard.
type DashboardOptions struct {
	// StudentID scopes habit, trend, skill and recent views to one student.
	StudentID   string
	RecentLimit int
	Now         time.Time
}

// Dashboard bundles every analytics view.
type Dashboard struct {
	StudentID string            `json:"studentId,omitempty"`
	Summary   Summary           `json:"summary"`
	Overall   Mean              `json:"overall"`
	Habits    []HabitAverage    `json:"habits"`
	Groups    PerformanceGroups `json:"groups"`
	Trends    []MonthlyTrend    `json:"trends"`
	Ranking   []StudentScore    `json:"ranking"`
	Skills    []SkillScore      `json:"skills"`
	Recent    []RecentEntry     `json:"recent"`
}

// BuildDashboard computes all views. Summary and Ranking always cover the
// whole roster; the remaining views honour opts.StudentID.
func BuildDashboard(students []models.Student, entries []models.HabitEntry, opts DashboardOptions) Dashboard {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	scoped := entries
	if opts.StudentID != "" {
		scoped = ForStudent(entries, opts.StudentID)
	}

	habits := HabitAverages(scoped)
	return Dashboard{
		StudentID: opts.StudentID,
		Summary:   Summarize(students, entries, opts.Now),
		Overall:   OverallAverage(scoped),
		Habits:    habits,
		Groups:    GroupByStatus(habits),
		Trends:    MonthlyTrends(scoped),
		Ranking:   StudentRanking(entries, students),
		Skills:    SkillDistribution(scoped, ""),
		Recent:    RecentEntries(scoped, students, opts.RecentLimit),
	}
}
