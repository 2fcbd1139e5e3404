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

const studentColumns = `id, first_name, last_name, student_number, grade, active, owner_id, created_at, updated_at`

var studentSorts = map[string]string{
	"last_name":  "last_name",
	"first_name": "first_name",
	"created_at": "created_at",
}

// StudentRepository manages persistence for student records. Every statement
// is scoped by owner_id.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns the owner's students matching the filter together with the
// total match count. A PageSize of zero returns every match.
func (r *StudentRepository) List(ctx context.Context, ownerID string, filter models.StudentFilter) ([]models.Student, int, error) {
	args := []interface{}{ownerID}
	conditions := []string{"owner_id = $1"}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pos := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(LOWER(first_name) LIKE $%d OR LOWER(last_name) LIKE $%d OR LOWER(COALESCE(student_number, '')) LIKE $%d)", pos, pos, pos))
		args = append(args, "%"+strings.ToLower(search)+"%")
	}

	where := strings.Join(conditions, " AND ")
	query := fmt.Sprintf("SELECT %s FROM students WHERE %s ORDER BY %s",
		studentColumns, where, orderClause(filter.SortBy, filter.SortOrder, studentSorts, "created_at"))
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.PageSize, (page-1)*filter.PageSize)
	}

	students := []models.Student{}
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}
	if filter.PageSize <= 0 {
		return students, len(students), nil
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM students WHERE "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// ListAll returns the owner's full roster in a stable order, used as the
// tie-break order for analytics.
func (r *StudentRepository) ListAll(ctx context.Context, ownerID string) ([]models.Student, error) {
	query := "SELECT " + studentColumns + " FROM students WHERE owner_id = $1 ORDER BY last_name ASC, first_name ASC, id ASC"
	students := []models.Student{}
	if err := r.db.SelectContext(ctx, &students, query, ownerID); err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	return students, nil
}

// FindByID fetches an owned student. sql.ErrNoRows is returned unwrapped.
func (r *StudentRepository) FindByID(ctx context.Context, ownerID, id string) (*models.Student, error) {
	query := "SELECT " + studentColumns + " FROM students WHERE id = $1 AND owner_id = $2"
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

// CountByOwner returns how many students the owner has.
func (r *StudentRepository) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM students WHERE owner_id = $1", ownerID); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return total, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, first_name, last_name, student_number, grade, active, owner_id, created_at, updated_at)
        VALUES (:id, :first_name, :last_name, :student_number, :grade, :active, :owner_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update overwrites the mutable columns of an owned student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET first_name = :first_name, last_name = :last_name, student_number = :student_number, grade = :grade, active = :active, updated_at = :updated_at WHERE id = :id AND owner_id = :owner_id`
	res, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return expectAffected(res)
}

// Delete removes an owned student. Entries must be removed beforehand.
func (r *StudentRepository) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return expectAffected(res)
}

// DeleteByOwner removes every student of the owner and returns the count.
func (r *StudentRepository) DeleteByOwner(ctx context.Context, ownerID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE owner_id = $1`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete owner students: %w", err)
	}
	return affected(res)
}
