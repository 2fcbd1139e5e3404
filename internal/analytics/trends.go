package analytics

import (
	"sort"

	"github.com/noah-isme/workhabits-api/internal/models"
)

// MonthKeyLayout formats the calendar month bucket of an entry.
const MonthKeyLayout = "2006-01"

// MonthlyTrend is the flat mean of all ratings recorded in one calendar month.
type MonthlyTrend struct {
	Month   string  `json:"month"`
	Average float64 `json:"average"`
	Ratings int     `json:"ratings"`
	Entries int     `json:"entries"`
	Status  Status  `json:"status"`
}

// MonthKey returns the YYYY-MM bucket of an entry, evaluated in UTC.
func MonthKey(e models.HabitEntry) string {
	return e.Date().Format(MonthKeyLayout)
}

// MonthlyTrends buckets entries by month, oldest first. Months with entries
// but no ratings are kept with StatusNoData so every entry lands in exactly one bucket.
func MonthlyTrends(entries []models.HabitEntry) []MonthlyTrend {
	type bucket struct {
		t       tally
		entries int
	}
	buckets := map[string]*bucket{}
	for _, e := range entries {
		key := MonthKey(e)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
		}
		b.entries++
		b.t.add(e.Values()...)
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]MonthlyTrend, 0, len(keys))
	for _, k := range keys {
		b := buckets[k]
		trend := MonthlyTrend{Month: k, Ratings: b.t.count, Entries: b.entries, Status: StatusNoData}
		if b.t.count > 0 {
			trend.Average = Round2(b.t.raw())
			trend.Status = Classify(trend.Average)
		}
		out = append(out, trend)
	}
	return out
}
