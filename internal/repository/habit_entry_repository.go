package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/workhabits-api/internal/models"
)

const habitColumns = `self_reflection, time_management, organization, task_completion, attention, follow_directions, problem_solving, independence, cooperation, social_skills, work_quality, work_pace`

const entryColumns = `id, student_id, owner_id, entry_date, ` + habitColumns + `, notes, created_at, updated_at`

var entrySorts = map[string]string{
	"entry_date": "entry_date",
	"created_at": "created_at",
}

// HabitEntryRepository persists habit entries. Every statement is scoped by owner_id.
type HabitEntryRepository struct {
	db *sqlx.DB
}

// NewHabitEntryRepository constructs a HabitEntryRepository.
func NewHabitEntryRepository(db *sqlx.DB) *HabitEntryRepository {
	return &HabitEntryRepository{db: db}
}

// List returns the owner's entries matching the filter and the total match
// count. A zero Limit returns every match.
func (r *HabitEntryRepository) List(ctx context.Context, ownerID string, filter models.HabitEntryFilter) ([]models.HabitEntry, int, error) {
	args := []interface{}{ownerID}
	conditions := []string{"owner_id = $1"}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("entry_date >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("entry_date <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	where := strings.Join(conditions, " AND ")
	query := fmt.Sprintf("SELECT %s FROM habit_entries WHERE %s ORDER BY %s, id ASC",
		entryColumns, where, orderClause(filter.SortBy, filter.SortOrder, entrySorts, "entry_date"))
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, max(filter.Offset, 0))
	}

	entries := []models.HabitEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list habit entries: %w", err)
	}
	if filter.Limit <= 0 {
		return entries, len(entries), nil
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM habit_entries WHERE "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count habit entries: %w", err)
	}
	return entries, total, nil
}

// FindByID fetches an owned entry. sql.ErrNoRows is returned unwrapped.
func (r *HabitEntryRepository) FindByID(ctx context.Context, ownerID, id string) (*models.HabitEntry, error) {
	query := "SELECT " + entryColumns + " FROM habit_entries WHERE id = $1 AND owner_id = $2"
	var entry models.HabitEntry
	if err := r.db.GetContext(ctx, &entry, query, id, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find habit entry: %w", err)
	}
	return &entry, nil
}

// Create inserts a habit entry.
func (r *HabitEntryRepository) Create(ctx context.Context, entry *models.HabitEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now
	const query = `INSERT INTO habit_entries (` + entryColumns + `)
        VALUES (:id, :student_id, :owner_id, :entry_date, :self_reflection, :time_management, :organization, :task_completion, :attention, :follow_directions, :problem_solving, :independence, :cooperation, :social_skills, :work_quality, :work_pace, :notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create habit entry: %w", err)
	}
	return nil
}

// Update overwrites the student, date, ratings and notes of an owned entry.
func (r *HabitEntryRepository) Update(ctx context.Context, entry *models.HabitEntry) error {
	entry.UpdatedAt = time.Now().UTC()
	const query = `UPDATE habit_entries SET student_id = :student_id, entry_date = :entry_date, self_reflection = :self_reflection, time_management = :time_management, organization = :organization, task_completion = :task_completion, attention = :attention, follow_directions = :follow_directions, problem_solving = :problem_solving, independence = :independence, cooperation = :cooperation, social_skills = :social_skills, work_quality = :work_quality, work_pace = :work_pace, notes = :notes, updated_at = :updated_at WHERE id = :id AND owner_id = :owner_id`
	res, err := r.db.NamedExecContext(ctx, query, entry)
	if err != nil {
		return fmt.Errorf("update habit entry: %w", err)
	}
	return expectAffected(res)
}

// Delete removes an owned entry.
func (r *HabitEntryRepository) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM habit_entries WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete habit entry: %w", err)
	}
	return expectAffected(res)
}

// DeleteByStudent removes every entry of one owned student.
func (r *HabitEntryRepository) DeleteByStudent(ctx context.Context, ownerID, studentID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM habit_entries WHERE student_id = $1 AND owner_id = $2`, studentID, ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete student entries: %w", err)
	}
	return affected(res)
}

// DeleteByOwner removes every entry of the owner.
func (r *HabitEntryRepository) DeleteByOwner(ctx context.Context, ownerID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM habit_entries WHERE owner_id = $1`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete owner entries: %w", err)
	}
	return affected(res)
}

func affected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
