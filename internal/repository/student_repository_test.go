package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/workhabits-api/internal/models"
)

var studentRowColumns = []string{"id", "first_name", "last_name", "student_number", "grade", "active", "owner_id", "created_at", "updated_at"}

func TestStudentRepositoryListDefaults(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(studentRowColumns).
		AddRow("s1", "Emma", "Johnson", "STU001", "5th", true, "owner-1", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, first_name, last_name, student_number, grade, active, owner_id, created_at, updated_at FROM students WHERE owner_id = $1 ORDER BY created_at DESC")).
		WithArgs("owner-1").
		WillReturnRows(rows)

	students, total, err := repo.List(context.Background(), "owner-1", models.StudentFilter{})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "STU001", *students[0].StudentNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListFilteredAndPaged(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	active := true
	where := "owner_id = $1 AND active = $2 AND (LOWER(first_name) LIKE $3 OR LOWER(last_name) LIKE $3 OR LOWER(COALESCE(student_number, '')) LIKE $3)"
	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE "+where+" ORDER BY last_name ASC LIMIT 10 OFFSET 10")).
		WithArgs("owner-1", true, "%emma%").
		WillReturnRows(sqlmock.NewRows(studentRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students WHERE "+where)).
		WithArgs("owner-1", true, "%emma%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	students, total, err := repo.List(context.Background(), "owner-1", models.StudentFilter{
		Search: " Emma ", Active: &active, SortBy: "last_name", SortOrder: "asc", Page: 2, PageSize: 10,
	})
	require.NoError(t, err)
	assert.Empty(t, students)
	assert.Equal(t, 11, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByIDScopesOwner(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE id = $1 AND owner_id = $2")).
		WithArgs("s1", "intruder").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "intruder", "s1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").
		WithArgs(sqlmock.AnyArg(), "Emma", "Johnson", nil, nil, true, "owner-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	student := &models.Student{FirstName: "Emma", LastName: "Johnson", Active: true, OwnerID: "owner-1"}
	require.NoError(t, repo.Create(context.Background(), student))
	assert.NotEmpty(t, student.ID)
	assert.False(t, student.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateSetsMutableColumns(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	grade := "6th"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET first_name = ?, last_name = ?, student_number = ?, grade = ?, active = ?, updated_at = ? WHERE id = ? AND owner_id = ?")).
		WithArgs("Emma", "Johnson", nil, "6th", false, sqlmock.AnyArg(), "s1", "owner-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	student := &models.Student{ID: "s1", OwnerID: "owner-1", FirstName: "Emma", LastName: "Johnson", Grade: &grade}
	require.NoError(t, repo.Update(context.Background(), student))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Student{ID: "s1", OwnerID: "owner-1", FirstName: "A", LastName: "B"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDeleteAndCount(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM students WHERE id = $1 AND owner_id = $2")).
		WithArgs("s1", "owner-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students WHERE owner_id = $1")).
		WithArgs("owner-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM students WHERE owner_id = $1")).
		WithArgs("owner-1").
		WillReturnResult(sqlmock.NewResult(0, 4))

	require.NoError(t, repo.Delete(context.Background(), "owner-1", "s1"))
	count, err := repo.CountByOwner(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	deleted, err := repo.DeleteByOwner(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
