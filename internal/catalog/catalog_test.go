package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/solvefy/solvefy/internal/model"
	"github.com/solvefy/solvefy/internal/store"
)

const sampleYAML = `
- id: s1
  name: Toán
  createdBy: u1
  createdAt: "2024-01-15T10:30:00.000Z"
  children:
    - id: g1
      name: Lớp 1
      children:
        - id: b1
          name: Toán 1 Kết nối tri thức
          publicationYear: 2023
          children:
            - id: l1
              name: Bài 1. Các số 0, 1, 2
              sortOrder: 2
            - id: l2
              name: Bài 2. Các số 3, 4, 5
              sortOrder: 1
- id: s2
  name: Âm nhạc
  isActive: false
  children:
    - id: g2
      name: Lớp 3
      children:
        - id: b2
          name: Âm nhạc 3
`

func TestParseAndFlatten(t *testing.T) {
	nodes, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rows, err := Flatten(nodes, now)
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}

	if len(rows.Subjects) != 2 || len(rows.Grades) != 2 || len(rows.Books) != 2 || len(rows.Lessons) != 2 {
		t.Fatalf("rows = %d/%d/%d/%d", len(rows.Subjects), len(rows.Grades), len(rows.Books), len(rows.Lessons))
	}

	s := rows.Subjects[0]
	if s.Slug != "toan" || s.Icon != "🔢" || !s.IsActive {
		t.Errorf("subject = %+v", s)
	}
	if want := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC); !s.CreatedAt.Equal(want) || !s.UpdatedAt.Equal(want) {
		t.Errorf("subject timestamps = %v, %v", s.CreatedAt, s.UpdatedAt)
	}
	if rows.Subjects[1].Icon != store.DefaultSubjectIcon {
		t.Errorf("unknown subject icon = %q", rows.Subjects[1].Icon)
	}

	g := rows.Grades[0]
	if g.SubjectID != "s1" || g.Level != 1 || g.Slug != "lop-1" {
		t.Errorf("grade = %+v", g)
	}
	if !g.CreatedAt.Equal(now) {
		t.Errorf("grade createdAt = %v, want fallback %v", g.CreatedAt, now)
	}
	if rows.Grades[1].Level != 3 {
		t.Errorf("grade level = %d, want 3", rows.Grades[1].Level)
	}

	b := rows.Books[0]
	if b.SubjectID != "s1" || b.GradeID != "g1" || b.Publisher != "Kết nối tri thức" || b.PublicationYear != 2023 {
		t.Errorf("book = %+v", b)
	}
	if b.Slug != "toan-1-ket-noi-tri-thuc-b1" {
		t.Errorf("book slug = %q", b.Slug)
	}
	if rows.Books[1].Publisher != store.UnknownPublisher {
		t.Errorf("book publisher = %q", rows.Books[1].Publisher)
	}

	l := rows.Lessons[0]
	if l.BookID != "b1" || l.GradeID != "g1" || l.SubjectID != "s1" || l.SortOrder != 2 {
		t.Errorf("lesson = %+v", l)
	}
	if l.Slug != "bai-1-cac-so-0-1-2-l1" {
		t.Errorf("lesson slug = %q", l.Slug)
	}

	for _, row := range []bool{rows.Subjects[1].IsActive, rows.Grades[1].IsActive, rows.Books[1].IsActive} {
		if row {
			t.Error("inactive subject should deactivate its descendants")
		}
	}
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing name", `[{"id": "s1"}]`},
		{"numeric id", `[{"id": 5, "name": "Toán"}]`},
		{"not a list", `{"id": "s1", "name": "Toán"}`},
		{"bad child", `[{"id": "s1", "name": "Toán", "children": [{"name": "Lớp 1"}]}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			var serr *SchemaError
			if !errors.As(err, &serr) {
				t.Fatalf("err = %v, want *SchemaError", err)
			}
			if len(serr.Problems) == 0 {
				t.Error("expected at least one problem")
			}
		})
	}

	if _, err := Parse([]byte("")); err == nil {
		t.Error("empty document should fail")
	}
}

func TestFlattenRejectsDeepNesting(t *testing.T) {
	doc := `[{"id":"s1","name":"S","children":[{"id":"g1","name":"G","children":[{"id":"b1","name":"B","children":[{"id":"l1","name":"L","children":[{"id":"x","name":"X"}]}]}]}]}]`
	nodes, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := Flatten(nodes, time.Now()); err == nil {
		t.Error("expected an error for a fifth level")
	}
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	b, err := store.NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	st, err := store.New(context.Background(), b)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestImportFile(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "categories.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	stats, skipped, err := ImportFile(ctx, st, path)
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if skipped || stats.Added[store.Lessons] != 2 {
		t.Fatalf("first import: skipped=%v stats=%+v", skipped, stats)
	}

	lessons, err := st.ListLessons(ctx, store.LessonFilter{BookID: "b1"})
	if err != nil {
		t.Fatalf("ListLessons: %v", err)
	}
	if len(lessons) != 2 || lessons[0].ID != "l2" {
		t.Errorf("lessons = %+v, want l2 first by sortOrder", lessons)
	}

	if _, skipped, err := ImportFile(ctx, st, path); err != nil || !skipped {
		t.Errorf("second import: skipped=%v err=%v", skipped, err)
	}

	changed := sampleYAML + `
- id: s3
  name: Khoa học
`
	if err := os.WriteFile(path, []byte(changed), 0o644); err != nil {
		t.Fatal(err)
	}
	stats, skipped, err = ImportFile(ctx, st, path)
	if err != nil || skipped {
		t.Fatalf("changed import: skipped=%v err=%v", skipped, err)
	}
	if stats.Added[store.Subjects] != 1 || stats.Skipped[store.Subjects] != 2 {
		t.Errorf("changed import stats = %+v", stats)
	}
}

func TestCheck(t *testing.T) {
	snap := model.Snapshot{
		Subjects: []model.Subject{{ID: "s1"}, {ID: "s2"}},
		Grades:   []model.Grade{{ID: "g1", SubjectID: "s1"}, {ID: "g2", SubjectID: "s9"}},
		Books: []model.Book{
			{ID: "b1", GradeID: "g1", SubjectID: "s1"},
			{ID: "b2", GradeID: "g1", SubjectID: "s2"},
		},
		Lessons: []model.Lesson{
			{ID: "l1", BookID: "b1", GradeID: "g1", SubjectID: "s1"},
			{ID: "l2", BookID: "b9", GradeID: "g1", SubjectID: "s1"},
		},
		Questions: []model.Question{{ID: "q1", LessonID: "l1"}, {ID: "q2", LessonID: "l7"}},
	}

	problems := Check(snap)
	want := []string{
		"grades g2: references non-existent subject s9",
		"books b2: subjectId s2 differs from grade g1 subjectId s1",
		"lessons l2: references non-existent book b9",
		"questions q2: references non-existent lesson l7",
	}
	if len(problems) != len(want) {
		t.Fatalf("problems = %v", problems)
	}
	for i, p := range problems {
		if !strings.HasPrefix(p.String(), want[i]) {
			t.Errorf("problem %d = %q, want %q", i, p, want[i])
		}
	}

	if got := Check(model.Snapshot{}); len(got) != 0 {
		t.Errorf("empty snapshot problems = %v", got)
	}
}
