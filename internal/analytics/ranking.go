package analytics

import (
	"sort"

	"github.com/noah-isme/workhabits-api/internal/models"
)

// StudentScore is a student's position in the comparison chart.
type StudentScore struct {
	StudentID string  `json:"studentId"`
	Name      string  `json:"name"`
	Average   float64 `json:"average"`
	Entries   int     `json:"entries"`
	Status    Status  `json:"status"`
}

// StudentRanking averages each student's per-entry means and sorts the
// result high to low. Each per-entry mean covers only the fields rated in
// that entry, and entries without ratings are skipped. Students without a
// rated entry are left out. Equal averages keep roster order.
func StudentRanking(entries []models.HabitEntry, students []models.Student) []StudentScore {
	type acc struct {
		sum   float64
		count int
	}
	per := make(map[string]*acc, len(students))
	for _, e := range entries {
		var t tally
		t.add(e.Values()...)
		if t.count == 0 {
			continue
		}
		a, ok := per[e.StudentID]
		if !ok {
			a = &acc{}
			per[e.StudentID] = a
		}
		a.sum += t.raw()
		a.count++
	}

	out := make([]StudentScore, 0, len(per))
	seen := make(map[string]struct{}, len(students))
	for _, s := range students {
		if _, dup := seen[s.ID]; dup {
			continue
		}
		seen[s.ID] = struct{}{}
		a, ok := per[s.ID]
		if !ok {
			continue
		}
		avg := Round2(a.sum / float64(a.count))
		out = append(out, StudentScore{
			StudentID: s.ID,
			Name:      s.FullName(),
			Average:   avg,
			Entries:   a.count,
			Status:    Classify(avg),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Average > out[j].Average
	})
	return out
}
