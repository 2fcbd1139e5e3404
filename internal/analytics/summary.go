package analytics

import (
	"sort"
	"time"

	"github.com/noah-isme/workhabits-api/internal/models"
)

// DefaultRecentLimit is the number of entries shown in the recent activity list.
const DefaultRecentLimit = 10

// recentNoteRunes caps note previews in the recent activity list.
const recentNoteRunes = 40

// Summary holds the dashboard headline counters.
type Summary struct {
	TotalStudents       int  `json:"totalStudents"`
	ActiveStudents      int  `json:"activeStudents"`
	TotalEntries        int  `json:"totalEntries"`
	StudentsWithEntries int  `json:"studentsWithEntries"`
	EntriesThisMonth    int  `json:"entriesThisMonth"`
	OverallAverage      Mean `json:"overallAverage"`
}

// Summarize computes headline counters. now decides which month is current.
func Summarize(students []models.Student, entries []models.HabitEntry, now time.Time) Summary {
	s := Summary{TotalStudents: len(students), TotalEntries: len(entries)}
	for _, st := range students {
		if st.Active {
			s.ActiveStudents++
		}
	}

	current := now.UTC().Format(MonthKeyLayout)
	withEntries := map[string]struct{}{}
	for _, e := range entries {
		withEntries[e.StudentID] = struct{}{}
		if MonthKey(e) == current {
			s.EntriesThisMonth++
		}
	}
	s.StudentsWithEntries = len(withEntries)
	s.OverallAverage = OverallAverage(entries)
	return s
}

// RecentEntry is a compact row of the recent activity list.
type RecentEntry struct {
	EntryID     string  `json:"entryId"`
	StudentID   string  `json:"studentId"`
	StudentName string  `json:"studentName"`
	EntryDate   int64   `json:"entryDate"`
	Average     Mean    `json:"average"`
	Notes       *string `json:"notes,omitempty"`
}

// RecentEntries returns the latest entries by entry date, newest first.
// Entries for students missing from the roster are labelled "Unknown".
func RecentEntries(entries []models.HabitEntry, students []models.Student, limit int) []RecentEntry {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	names := make(map[string]string, len(students))
	for _, s := range students {
		names[s.ID] = s.FullName()
	}

	sorted := make([]models.HabitEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].EntryDate != sorted[j].EntryDate {
			return sorted[i].EntryDate > sorted[j].EntryDate
		}
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}

	out := make([]RecentEntry, 0, len(sorted))
	for _, e := range sorted {
		name, ok := names[e.StudentID]
		if !ok {
			name = "Unknown"
		}
		out = append(out, RecentEntry{
			EntryID:     e.ID,
			StudentID:   e.StudentID,
			StudentName: name,
			EntryDate:   e.EntryDate,
			Average:     EntryAverage(e),
			Notes:       truncateNote(e.Notes),
		})
	}
	return out
}

func truncateNote(notes *string) *string {
	if notes == nil {
		return nil
	}
	r := []rune(*notes)
	if len(r) <= recentNoteRunes {
		v := *notes
		return &v
	}
	v := string(r[:recentNoteRunes]) + "..."
	return &v
}

// StudentOverview summarises one student's history for the entry form.
type StudentOverview struct {
	StudentID     string `json:"studentId"`
	Average       Mean   `json:"average"`
	Entries       int    `json:"entries"`
	LastEntryDate *int64 `json:"lastEntryDate,omitempty"`
}

// OverviewFor computes a StudentOverview from the student's entries.
func OverviewFor(studentID string, entries []models.HabitEntry) StudentOverview {
	own := ForStudent(entries, studentID)
	ov := StudentOverview{StudentID: studentID, Entries: len(own), Average: OverallAverage(own)}
	for _, e := range own {
		if ov.LastEntryDate == nil || e.EntryDate > *ov.LastEntryDate {
			d := e.EntryDate
			ov.LastEntryDate = &d
		}
	}
	return ov
}
