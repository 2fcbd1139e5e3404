package models

import "time"

// HabitKey identifies one of the twelve fixed work-habit dimensions.
type HabitKey string

const (
	HabitSelfReflection   HabitKey = "selfReflection"
	HabitTimeManagement   HabitKey = "timeManagement"
	HabitOrganization     HabitKey = "organization"
	HabitTaskCompletion   HabitKey = "taskCompletion"
	HabitAttention        HabitKey = "attention"
	HabitFollowDirections HabitKey = "followDirections"
	HabitProblemSolving   HabitKey = "problemSolving"
	HabitIndependence     HabitKey = "independence"
	HabitCooperation      HabitKey = "cooperation"
	HabitSocialSkills     HabitKey = "socialSkills"
	HabitWorkQuality      HabitKey = "workQuality"
	HabitWorkPace         HabitKey = "workPace"
)

// HabitKeys lists every habit in display order.
var HabitKeys = []HabitKey{
	HabitSelfReflection,
	HabitTimeManagement,
	HabitOrganization,
	HabitTaskCompletion,
	HabitAttention,
	HabitFollowDirections,
	HabitProblemSolving,
	HabitIndependence,
	HabitCooperation,
	HabitSocialSkills,
	HabitWorkQuality,
	HabitWorkPace,
}

var habitLabels = map[HabitKey]string{
	HabitSelfReflection:   "Self-Reflection",
	HabitTimeManagement:   "Time Management",
	HabitOrganization:     "Organization",
	HabitTaskCompletion:   "Task Completion",
	HabitAttention:        "Attention",
	HabitFollowDirections: "Follow Directions",
	HabitProblemSolving:   "Problem Solving",
	HabitIndependence:     "Independence",
	HabitCooperation:      "Cooperation",
	HabitSocialSkills:     "Social Skills",
	HabitWorkQuality:      "Work Quality",
	HabitWorkPace:         "Work Pace",
}

// Label returns the human readable habit name.
func (k HabitKey) Label() string {
	if label, ok := habitLabels[k]; ok {
		return label
	}
	return string(k)
}

// Valid reports whether k is one of the known habits.
func (k HabitKey) Valid() bool {
	_, ok := habitLabels[k]
	return ok
}

// Rating bounds.
const (
	RatingMin = 1
	RatingMax = 4
)

var ratingLabels = map[int]string{
	1: "Needs Improvement",
	2: "Developing",
	3: "Proficient",
	4: "Exemplary",
}

// RatingLabel describes a rating value, or "" when out of range.
func RatingLabel(rating int) string {
	return ratingLabels[rating]
}

// HabitRatings holds the optional score for each habit. A nil field means the
// habit was not assessed.
type HabitRatings struct {
	SelfReflection   *int `db:"self_reflection" json:"selfReflection,omitempty" validate:"omitnil,min=1,max=4"`
	TimeManagement   *int `db:"time_management" json:"timeManagement,omitempty" validate:"omitnil,min=1,max=4"`
	Organization     *int `db:"organization" json:"organization,omitempty" validate:"omitnil,min=1,max=4"`
	TaskCompletion   *int `db:"task_completion" json:"taskCompletion,omitempty" validate:"omitnil,min=1,max=4"`
	Attention        *int `db:"attention" json:"attention,omitempty" validate:"omitnil,min=1,max=4"`
	FollowDirections *int `db:"follow_directions" json:"followDirections,omitempty" validate:"omitnil,min=1,max=4"`
	ProblemSolving   *int `db:"problem_solving" json:"problemSolving,omitempty" validate:"omitnil,min=1,max=4"`
	Independence     *int `db:"independence" json:"independence,omitempty" validate:"omitnil,min=1,max=4"`
	Cooperation      *int `db:"cooperation" json:"cooperation,omitempty" validate:"omitnil,min=1,max=4"`
	SocialSkills     *int `db:"social_skills" json:"socialSkills,omitempty" validate:"omitnil,min=1,max=4"`
	WorkQuality      *int `db:"work_quality" json:"workQuality,omitempty" validate:"omitnil,min=1,max=4"`
	WorkPace         *int `db:"work_pace" json:"workPace,omitempty" validate:"omitnil,min=1,max=4"`
}

func (r *HabitRatings) field(k HabitKey) **int {
	switch k {
	case HabitSelfReflection:
		return &r.SelfReflection
	case HabitTimeManagement:
		return &r.TimeManagement
	case HabitOrganization:
		return &r.Organization
	case HabitTaskCompletion:
		return &r.TaskCompletion
	case HabitAttention:
		return &r.Attention
	case HabitFollowDirections:
		return &r.FollowDirections
	case HabitProblemSolving:
		return &r.ProblemSolving
	case HabitIndependence:
		return &r.Independence
	case HabitCooperation:
		return &r.Cooperation
	case HabitSocialSkills:
		return &r.SocialSkills
	case HabitWorkQuality:
		return &r.WorkQuality
	case HabitWorkPace:
		return &r.WorkPace
	}
	return nil
}

// Rating returns the score for k. Values at or below zero are treated as
// unrated so rows written with a zero sentinel aggregate the same as NULL.
func (r HabitRatings) Rating(k HabitKey) (int, bool) {
	f := r.field(k)
	if f == nil || *f == nil || **f <= 0 {
		return 0, false
	}
	return **f, true
}

// Set assigns the score for k; nil clears it.
func (r *HabitRatings) Set(k HabitKey, v *int) {
	if f := r.field(k); f != nil {
		*f = v
	}
}

// Values returns the rated scores in habit order.
func (r HabitRatings) Values() []int {
	out := make([]int, 0, len(HabitKeys))
	for _, k := range HabitKeys {
		if v, ok := r.Rating(k); ok {
			out = append(out, v)
		}
	}
	return out
}

// Merge copies every rating set in other onto r.
func (r *HabitRatings) Merge(other HabitRatings) {
	for _, k := range HabitKeys {
		if f := other.field(k); *f != nil {
			r.Set(k, *f)
		}
	}
}

// HabitEntry is one dated observation of a student's work habits.
type HabitEntry struct {
	ID        string `db:"id" json:"id"`
	StudentID string `db:"student_id" json:"studentId"`
	OwnerID   string `db:"owner_id" json:"ownerId"`
	// EntryDate is epoch milliseconds; only the calendar day is meaningful.
	EntryDate int64 `db:"entry_date" json:"entryDate"`
	HabitRatings
	Notes     *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Date converts EntryDate into a UTC time.
func (e HabitEntry) Date() time.Time {
	return time.UnixMilli(e.EntryDate).UTC()
}

// HabitEntryFilter narrows entry listings. Zero values mean "no constraint".
type HabitEntryFilter struct {
	StudentID string
	From      *int64
	To        *int64
	SortBy    string
	SortOrder string
	Limit     int
	Offset    int
}
