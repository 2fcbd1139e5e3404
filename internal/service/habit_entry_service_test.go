package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/workhabits-api/internal/analytics"
	"github.com/noah-isme/workhabits-api/internal/models"
	appErrors "github.com/noah-isme/workhabits-api/pkg/errors"
)

func newEntryServiceForTest(entries *memEntryRepo) (*HabitEntryService, *counterSpy, *cacheSpy) {
	students := newMemStudentRepo(
		models.Student{ID: "s1", FirstName: "Emma", LastName: "Johnson", Active: true, OwnerID: ownerA},
		models.Student{ID: "s2", FirstName: "Liam", LastName: "Williams", Active: true, OwnerID: ownerA},
		models.Student{ID: "sb", FirstName: "Noah", LastName: "Davis", Active: true, OwnerID: ownerB},
	)
	metrics := &counterSpy{}
	cache := newCacheSpy()
	svc := NewHabitEntryService(entries, students, &auditSpy{}, cache, metrics, nil, zap.NewNop())
	return svc, metrics, cache
}

func TestHabitEntryServiceCreate(t *testing.T) {
	entries := newMemEntryRepo()
	svc, metrics, cache := newEntryServiceForTest(entries)

	req := CreateHabitEntryRequest{StudentID: "s1", EntryDate: 1717200000000, Notes: strPtr("  focused today ")}
	req.Attention = intPtr(3)
	req.WorkPace = intPtr(4)

	entry, err := svc.Create(context.Background(), ownerA, req)
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, ownerA, entry.OwnerID)
	assert.Equal(t, []int{3, 4}, entry.Values())
	assert.Nil(t, entry.SelfReflection)
	require.NotNil(t, entry.Notes)
	assert.Equal(t, "focused today", *entry.Notes)
	assert.Equal(t, 1, metrics.entries)
	assert.Equal(t, []string{"owner-a"}, cache.invalidated)
}

func TestHabitEntryServiceCreateValidation(t *testing.T) {
	svc, metrics, _ := newEntryServiceForTest(newMemEntryRepo())

	req := CreateHabitEntryRequest{StudentID: "s1"}
	req.Attention = intPtr(5)
	req.Organization = intPtr(0)

	_, err := svc.Create(context.Background(), ownerA, req)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	fields := appFields(err)
	assert.Equal(t, "must be at most 4", fields["attention"])
	assert.Equal(t, "must be at least 1", fields["organization"])
	assert.Contains(t, fields, "entryDate")
	assert.Equal(t, 0, metrics.entries)
}

func TestHabitEntryServiceCreateRequiresOwnedStudent(t *testing.T) {
	svc, _, _ := newEntryServiceForTest(newMemEntryRepo())

	_, err := svc.Create(context.Background(), ownerA, CreateHabitEntryRequest{StudentID: "sb", EntryDate: 1})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.Create(context.Background(), ownerA, CreateHabitEntryRequest{StudentID: "missing", EntryDate: 1})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestHabitEntryServiceUpdateMergesRatings(t *testing.T) {
	existing := models.HabitEntry{ID: "e1", StudentID: "s1", OwnerID: ownerA, EntryDate: 10, Notes: strPtr("old")}
	existing.Attention = intPtr(2)
	existing.Cooperation = intPtr(3)
	entries := newMemEntryRepo(existing)
	svc, _, _ := newEntryServiceForTest(entries)

	req := UpdateHabitEntryRequest{Notes: strPtr("  ")}
	req.Attention = intPtr(4)
	updated, err := svc.Update(context.Background(), ownerA, "e1", req)
	require.NoError(t, err)

	v, ok := updated.Rating(models.HabitAttention)
	assert.True(t, ok)
	assert.Equal(t, 4, v)
	v, ok = updated.Rating(models.HabitCooperation)
	assert.True(t, ok)
	assert.Equal(t, 3, v)
	assert.Nil(t, updated.Notes)
	assert.Equal(t, int64(10), updated.EntryDate)

	_, err = svc.Update(context.Background(), ownerA, "e1", UpdateHabitEntryRequest{StudentID: strPtr("sb")})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.Update(context.Background(), ownerB, "e1", UpdateHabitEntryRequest{})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestHabitEntryServiceNotesLimitAppliesAfterTrim(t *testing.T) {
	entries := newMemEntryRepo(models.HabitEntry{ID: "e1", StudentID: "s1", OwnerID: ownerA, EntryDate: 10})
	svc, _, _ := newEntryServiceForTest(entries)

	padded := strings.Repeat("a", 995) + strings.Repeat(" ", 10)
	entry, err := svc.Create(context.Background(), ownerA, CreateHabitEntryRequest{StudentID: "s1", EntryDate: 10, Notes: &padded})
	require.NoError(t, err)
	assert.Len(t, *entry.Notes, 995)

	updated, err := svc.Update(context.Background(), ownerA, "e1", UpdateHabitEntryRequest{Notes: strPtr("  " + strings.Repeat("b", 1000) + "  ")})
	require.NoError(t, err)
	assert.Len(t, *updated.Notes, 1000)

	tooLong := strings.Repeat("c", 1001)
	_, err = svc.Create(context.Background(), ownerA, CreateHabitEntryRequest{StudentID: "s1", EntryDate: 10, Notes: &tooLong})
	require.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Equal(t, "must be at most 1000", appFields(err)["notes"])

	_, err = svc.Update(context.Background(), ownerA, "e1", UpdateHabitEntryRequest{Notes: &tooLong})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestHabitEntryServiceUpdateMovesToOwnedStudent(t *testing.T) {
	entries := newMemEntryRepo(models.HabitEntry{ID: "e1", StudentID: "s1", OwnerID: ownerA, EntryDate: 10})
	svc, _, _ := newEntryServiceForTest(entries)

	updated, err := svc.Update(context.Background(), ownerA, "e1", UpdateHabitEntryRequest{StudentID: strPtr("s2")})
	require.NoError(t, err)
	assert.Equal(t, "s2", updated.StudentID)

	stored, err := svc.Get(context.Background(), ownerA, "e1")
	require.NoError(t, err)
	assert.Equal(t, "s2", stored.StudentID)
}

func TestHabitEntryServiceListByStudent(t *testing.T) {
	entries := newMemEntryRepo(
		models.HabitEntry{ID: "e1", StudentID: "s1", OwnerID: ownerA, EntryDate: 10},
		models.HabitEntry{ID: "e2", StudentID: "s1", OwnerID: ownerA, EntryDate: 30},
		models.HabitEntry{ID: "e3", StudentID: "s2", OwnerID: ownerA, EntryDate: 20},
	)
	svc, _, _ := newEntryServiceForTest(entries)

	list, err := svc.ListByStudent(context.Background(), ownerA, "s1", models.HabitEntryFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "e2", list[0].ID)

	_, err = svc.ListByStudent(context.Background(), ownerA, "sb", models.HabitEntryFilter{})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	all, pagination, err := svc.ListAll(context.Background(), ownerA, models.HabitEntryFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, 3, pagination.TotalCount)
}

func TestHabitEntryServiceRecent(t *testing.T) {
	e1 := models.HabitEntry{ID: "e1", StudentID: "s1", OwnerID: ownerA, EntryDate: 10}
	e1.Attention = intPtr(2)
	e1.WorkPace = intPtr(4)
	e2 := models.HabitEntry{ID: "e2", StudentID: "gone", OwnerID: ownerA, EntryDate: 20}
	svc, _, _ := newEntryServiceForTest(newMemEntryRepo(e1, e2))

	recent, err := svc.Recent(context.Background(), ownerA, 0)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "e2", recent[0].EntryID)
	assert.Equal(t, "Unknown", recent[0].StudentName)
	assert.Equal(t, "Emma Johnson", recent[1].StudentName)
	assert.Equal(t, "3.00", recent[1].Average.String())
}

func TestHabitEntryServiceDelete(t *testing.T) {
	entries := newMemEntryRepo(models.HabitEntry{ID: "e1", StudentID: "s1", OwnerID: ownerA, EntryDate: 10})
	svc, _, _ := newEntryServiceForTest(entries)

	err := svc.Delete(context.Background(), ownerB, "e1", models.AuditContext{})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	require.NoError(t, svc.Delete(context.Background(), ownerA, "e1", models.AuditContext{}))
	_, err = svc.Get(context.Background(), ownerA, "e1")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestHabitEntryServicePreview(t *testing.T) {
	svc, _, _ := newEntryServiceForTest(newMemEntryRepo())

	var single models.HabitRatings
	single.TaskCompletion = intPtr(1)
	preview, err := svc.Preview(single)
	require.NoError(t, err)
	assert.Equal(t, 1.0, preview.Average)
	assert.Equal(t, "1.00", preview.Formatted)
	assert.Equal(t, analytics.StatusNeedsAttention, preview.Status)
	assert.Equal(t, 1, preview.Rated)

	empty, err := svc.Preview(models.HabitRatings{})
	require.NoError(t, err)
	assert.Equal(t, analytics.StatusNoData, empty.Status)
	assert.Empty(t, empty.Formatted)

	var bad models.HabitRatings
	bad.WorkQuality = intPtr(9)
	_, err = svc.Preview(bad)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
