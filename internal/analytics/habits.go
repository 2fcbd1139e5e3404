package analytics

import "github.com/noah-isme/workhabits-api/internal/models"

// HabitAverage is the mean rating of one habit across a set of entries.
type HabitAverage struct {
	Key     models.HabitKey `json:"key"`
	Label   string          `json:"label"`
	Average float64         `json:"average"`
	Count   int             `json:"count"`
	Status  Status          `json:"status"`
}

// HabitAverages returns one row per habit in display order. Habits that were
// never rated have Count 0, Average 0 and StatusNoData.
func HabitAverages(entries []models.HabitEntry) []HabitAverage {
	tallies := make([]tally, len(models.HabitKeys))
	for _, e := range entries {
		for i, k := range models.HabitKeys {
			if v, ok := e.Rating(k); ok {
				tallies[i].add(v)
			}
		}
	}

	out := make([]HabitAverage, len(models.HabitKeys))
	for i, k := range models.HabitKeys {
		row := HabitAverage{Key: k, Label: k.Label(), Count: tallies[i].count, Status: StatusNoData}
		if tallies[i].count > 0 {
			row.Average = Round2(tallies[i].raw())
			row.Status = Classify(row.Average)
		}
		out[i] = row
	}
	return out
}

// RatedHabits drops habits without data.
func RatedHabits(avgs []HabitAverage) []HabitAverage {
	out := make([]HabitAverage, 0, len(avgs))
	for _, a := range avgs {
		if a.Count > 0 {
			out = append(out, a)
		}
	}
	return out
}

// OverallAverage is the flat mean of every rated field of every entry. It is
// not a mean of per-entry or per-habit means.
func OverallAverage(entries []models.HabitEntry) Mean {
	var t tally
	for _, e := range entries {
		t.add(e.Values()...)
	}
	return t.mean()
}

// EntryAverage is the mean of one entry's rated fields.
func EntryAverage(e models.HabitEntry) Mean {
	var t tally
	t.add(e.Values()...)
	return t.mean()
}

// PerformanceGroups buckets rated habits by status.
type PerformanceGroups struct {
	NeedsAttention []HabitAverage `json:"needsAttention"`
	Proficient     []HabitAverage `json:"proficient"`
	Excellent      []HabitAverage `json:"excellent"`
}

// GroupByStatus splits habit averages into performance groups, keeping display order.
func GroupByStatus(avgs []HabitAverage) PerformanceGroups {
	groups := PerformanceGroups{
		NeedsAttention: []HabitAverage{},
		Proficient:     []HabitAverage{},
		Excellent:      []HabitAverage{},
	}
	for _, a := range avgs {
		switch a.Status {
		case StatusNeedsAttention:
			groups.NeedsAttention = append(groups.NeedsAttention, a)
		case StatusProficient:
			groups.Proficient = append(groups.Proficient, a)
		case StatusExcellent:
			groups.Excellent = append(groups.Excellent, a)
		}
	}
	return groups
}

// SkillScore is one spoke of the skills radar.
type SkillScore struct {
	Key    models.HabitKey `json:"key"`
	Skill  string          `json:"skill"`
	Score  float64         `json:"score"`
	Status Status          `json:"status"`
}

// SkillDistribution reshapes habit averages for the radar view. A non-empty
// studentID restricts the entries first. Habits without data are omitted.
func SkillDistribution(entries []models.HabitEntry, studentID string) []SkillScore {
	if studentID != "" {
		entries = ForStudent(entries, studentID)
	}
	rated := RatedHabits(HabitAverages(entries))
	out := make([]SkillScore, 0, len(rated))
	for _, a := range rated {
		out = append(out, SkillScore{Key: a.Key, Skill: a.Label, Score: a.Average, Status: a.Status})
	}
	return out
}

// ForStudent returns the entries recorded for one student.
func ForStudent(entries []models.HabitEntry, studentID string) []models.HabitEntry {
	out := make([]models.HabitEntry, 0)
	for _, e := range entries {
		if e.StudentID == studentID {
			out = append(out, e)
		}
	}
	return out
}

// LiveAverage is the running mean of a draft entry's ratings. ok is false
// while nothing is rated.
func LiveAverage(r models.HabitRatings) (avg float64, ok bool) {
	var t tally
	t.add(r.Values()...)
	if t.count == 0 {
		return 0, false
	}
	return Round2(t.raw()), true
}
