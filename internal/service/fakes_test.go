package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/workhabits-api/internal/models"
	appErrors "github.com/noah-isme/workhabits-api/pkg/errors"
)

type memStudentRepo struct {
	mu         sync.Mutex
	students   map[string]models.Student
	order      []string
	seq        int
	lastFilter models.StudentFilter
	createErr  error
	listErr    error
}

func newMemStudentRepo(students ...models.Student) *memStudentRepo {
	repo := &memStudentRepo{students: make(map[string]models.Student)}
	for _, s := range students {
		repo.students[s.ID] = s
		repo.order = append(repo.order, s.ID)
	}
	return repo
}

func (m *memStudentRepo) List(ctx context.Context, ownerID string, filter models.StudentFilter) ([]models.Student, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFilter = filter
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	out := []models.Student{}
	for _, id := range m.order {
		s := m.students[id]
		if s.OwnerID != ownerID {
			continue
		}
		if filter.Active != nil && s.Active != *filter.Active {
			continue
		}
		out = append(out, s)
	}
	if filter.SortBy == "last_name" {
		sort.SliceStable(out, func(i, j int) bool { return out[i].LastName < out[j].LastName })
	}
	return out, len(out), nil
}

func (m *memStudentRepo) ListAll(ctx context.Context, ownerID string) ([]models.Student, error) {
	students, _, err := m.List(ctx, ownerID, models.StudentFilter{})
	return students, err
}

func (m *memStudentRepo) FindByID(ctx context.Context, ownerID, id string) (*models.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[id]
	if !ok || s.OwnerID != ownerID {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

func (m *memStudentRepo) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	students, _, err := m.List(ctx, ownerID, models.StudentFilter{})
	return len(students), err
}

func (m *memStudentRepo) Create(ctx context.Context, student *models.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.seq++
	if student.ID == "" {
		student.ID = fmt.Sprintf("stu-%d", m.seq)
	}
	student.CreatedAt = time.Now().UTC()
	student.UpdatedAt = student.CreatedAt
	m.students[student.ID] = *student
	m.order = append(m.order, student.ID)
	return nil
}

func (m *memStudentRepo) Update(ctx context.Context, student *models.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.students[student.ID]
	if !ok || existing.OwnerID != student.OwnerID {
		return sql.ErrNoRows
	}
	m.students[student.ID] = *student
	return nil
}

func (m *memStudentRepo) Delete(ctx context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[id]
	if !ok || s.OwnerID != ownerID {
		return sql.ErrNoRows
	}
	delete(m.students, id)
	m.order = remove(m.order, id)
	return nil
}

func (m *memStudentRepo) DeleteByOwner(ctx context.Context, ownerID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range append([]string(nil), m.order...) {
		if m.students[id].OwnerID == ownerID {
			delete(m.students, id)
			m.order = remove(m.order, id)
			n++
		}
	}
	return n, nil
}

type memEntryRepo struct {
	mu        sync.Mutex
	entries   map[string]models.HabitEntry
	order     []string
	seq       int
	createErr error
	failAfter int
	created   int
}

func newMemEntryRepo(entries ...models.HabitEntry) *memEntryRepo {
	repo := &memEntryRepo{entries: make(map[string]models.HabitEntry)}
	for _, e := range entries {
		repo.entries[e.ID] = e
		repo.order = append(repo.order, e.ID)
	}
	return repo
}

func (m *memEntryRepo) List(ctx context.Context, ownerID string, filter models.HabitEntryFilter) ([]models.HabitEntry, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.HabitEntry{}
	for _, id := range m.order {
		e := m.entries[id]
		if e.OwnerID != ownerID {
			continue
		}
		if filter.StudentID != "" && e.StudentID != filter.StudentID {
			continue
		}
		out = append(out, e)
	}
	asc := filter.SortOrder == "asc"
	sort.SliceStable(out, func(i, j int) bool {
		if asc {
			return out[i].EntryDate < out[j].EntryDate
		}
		return out[i].EntryDate > out[j].EntryDate
	})
	total := len(out)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, total, nil
}

func (m *memEntryRepo) FindByID(ctx context.Context, ownerID, id string) (*models.HabitEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok || e.OwnerID != ownerID {
		return nil, sql.ErrNoRows
	}
	return &e, nil
}

func (m *memEntryRepo) Create(ctx context.Context, entry *models.HabitEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil && m.created >= m.failAfter {
		return m.createErr
	}
	m.created++
	m.seq++
	if entry.ID == "" {
		entry.ID = fmt.Sprintf("ent-%d", m.seq)
	}
	m.entries[entry.ID] = *entry
	m.order = append(m.order, entry.ID)
	return nil
}

func (m *memEntryRepo) Update(ctx context.Context, entry *models.HabitEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.entries[entry.ID]
	if !ok || existing.OwnerID != entry.OwnerID {
		return sql.ErrNoRows
	}
	m.entries[entry.ID] = *entry
	return nil
}

func (m *memEntryRepo) Delete(ctx context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok || e.OwnerID != ownerID {
		return sql.ErrNoRows
	}
	delete(m.entries, id)
	m.order = remove(m.order, id)
	return nil
}

func (m *memEntryRepo) DeleteByStudent(ctx context.Context, ownerID, studentID string) (int64, error) {
	return m.deleteWhere(func(e models.HabitEntry) bool { return e.OwnerID == ownerID && e.StudentID == studentID }), nil
}

func (m *memEntryRepo) DeleteByOwner(ctx context.Context, ownerID string) (int64, error) {
	return m.deleteWhere(func(e models.HabitEntry) bool { return e.OwnerID == ownerID }), nil
}

func (m *memEntryRepo) deleteWhere(match func(models.HabitEntry) bool) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range append([]string(nil), m.order...) {
		if match(m.entries[id]) {
			delete(m.entries, id)
			m.order = remove(m.order, id)
			n++
		}
	}
	return n
}

func remove(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

type auditSpy struct {
	mu   sync.Mutex
	logs []*models.AuditLog
	err  error
}

func (a *auditSpy) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return a.err
}

// cacheSpy is an in-memory analytics cache storing JSON like Redis does.
type cacheSpy struct {
	mu          sync.Mutex
	values      map[string][]byte
	invalidated []string
	getErr      error
}

func newCacheSpy() *cacheSpy {
	return &cacheSpy{values: make(map[string][]byte)}
}

func (c *cacheSpy) GetOwned(ctx context.Context, ownerID, view string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return false, c.getErr
	}
	raw, ok := c.values[ownerKey(ownerID, view)]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *cacheSpy) SetOwned(ctx context.Context, ownerID, view string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[ownerKey(ownerID, view)] = raw
	return nil
}

func (c *cacheSpy) InvalidateOwner(ctx context.Context, ownerID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, ownerID)
	for key := range c.values {
		if strings.HasPrefix(key, ownerKey(ownerID, "")) {
			delete(c.values, key)
		}
	}
	return nil
}

type counterSpy struct {
	mu      sync.Mutex
	entries int
	seeds   []string
	reports []string
	queries []string
}

func (c *counterSpy) RecordEntry() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries++
}

func (c *counterSpy) RecordSeed(outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seeds = append(c.seeds, outcome)
}

func (c *counterSpy) RecordReportJob(reportType, status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports = append(c.reports, reportType+":"+status)
}

func (c *counterSpy) ObserveDBQuery(label string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = append(c.queries, label)
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func appCode(err error) string {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func appFields(err error) map[string]string {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr.Fields
	}
	return nil
}
