package models

import (
	"strings"
	"time"
)

// Student is a learner on a teacher's roster.
type Student struct {
	ID        string `db:"id" json:"id"`
	FirstName string `db:"first_name" json:"firstName"`
	LastName  string `db:"last_name" json:"lastName"`
	// StudentNumber is the optional school-issued identifier.
	StudentNumber *string   `db:"student_number" json:"studentId,omitempty"`
	Grade         *string   `db:"grade" json:"grade,omitempty"`
	Active        bool      `db:"active" json:"active"`
	OwnerID       string    `db:"owner_id" json:"ownerId"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

// FullName joins first and last name.
func (s Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	Active    *bool
	SortBy    string
	SortOrder string
	Page      int
	PageSize  int
}
