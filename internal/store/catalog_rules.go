package store

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/solvefy/solvefy/internal/model"
)

var subjectIcons = map[string]string{
	"Toán":       "🔢",
	"Tiếng Việt": "📖",
	"Tiếng Anh":  "🇺🇸",
	"Khoa học":   "🔬",
}

// DefaultSubjectIcon is used for subjects without a known icon.
const DefaultSubjectIcon = "📚"

// SubjectIcon picks the icon shown next to a subject name.
func SubjectIcon(name string) string {
	if icon, ok := subjectIcons[strings.TrimSpace(name)]; ok {
		return icon
	}
	return DefaultSubjectIcon
}

var reFirstNumber = regexp.MustCompile(`\d+`)

// GradeLevel is the first number in a grade name, or 1 when there is none.
func GradeLevel(name string) int {
	m := reFirstNumber.FindString(name)
	if m == "" {
		return 1
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 1
	}
	return n
}

var publishers = []string{"Kết nối tri thức", "Chân trời sáng tạo", "Cánh diều"}

// UnknownPublisher is recorded for books whose name names no known series.
const UnknownPublisher = "Unknown"

// Publisher detects the textbook series from a book name.
func Publisher(bookName string) string {
	for _, p := range publishers {
		if strings.Contains(bookName, p) {
			return p
		}
	}
	return UnknownPublisher
}

// CatalogRows is a batch of already flattened catalog records.
type CatalogRows struct {
	Subjects []model.Subject
	Grades   []model.Grade
	Books    []model.Book
	Lessons  []model.Lesson
}

// ImportStats counts what ImportCatalog added and skipped.
type ImportStats struct {
	Added   map[string]int `json:"added"`
	Skipped map[string]int `json:"skipped"`
}

// ImportCatalog appends rows whose ids are not stored yet. All four
// collections are committed together.
func (s *Store) ImportCatalog(ctx context.Context, rows CatalogRows) (ImportStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := ImportStats{Added: map[string]int{}, Skipped: map[string]int{}}
	cs := changeset{}

	if err := importInto(ctx, s, cs, Subjects, rows.Subjects, func(v model.Subject) string { return v.ID }, stats); err != nil {
		return stats, err
	}
	if err := importInto(ctx, s, cs, Grades, rows.Grades, func(v model.Grade) string { return v.ID }, stats); err != nil {
		return stats, err
	}
	if err := importInto(ctx, s, cs, Books, rows.Books, func(v model.Book) string { return v.ID }, stats); err != nil {
		return stats, err
	}
	if err := importInto(ctx, s, cs, Lessons, rows.Lessons, func(v model.Lesson) string { return v.ID }, stats); err != nil {
		return stats, err
	}

	if len(cs) == 0 {
		return stats, nil
	}
	if err := s.commit(ctx, cs); err != nil {
		return stats, err
	}
	slog.Info("imported catalog", "added", stats.Added, "skipped", stats.Skipped)
	return stats, nil
}

func importInto[T any](ctx context.Context, s *Store, cs changeset, name string, rows []T, id func(T) string, stats ImportStats) error {
	if len(rows) == 0 {
		return nil
	}
	existing, err := load[T](ctx, s, name)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(existing))
	for _, v := range existing {
		seen[id(v)] = true
	}
	added := 0
	for _, r := range rows {
		if seen[id(r)] {
			stats.Skipped[name]++
			continue
		}
		seen[id(r)] = true
		existing = append(existing, r)
		added++
	}
	stats.Added[name] = added
	if added == 0 {
		return nil
	}
	return stage(cs, name, existing)
}
