package store

import (
	"context"
	"fmt"

	"github.com/solvefy/solvefy/internal/apperr"
	"github.com/solvefy/solvefy/internal/model"
)

// UserOverview returns a user with their progress, bookmarks and counts.
func (s *Store) UserOverview(ctx context.Context, id string) (model.UserOverview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users, err := load[model.User](ctx, s, Users)
	if err != nil {
		return model.UserOverview{}, err
	}
	u, i := find(users, func(u model.User) bool { return u.ID == id })
	if i < 0 {
		return model.UserOverview{}, apperr.NotFound("User")
	}
	progress, err := load[model.Progress](ctx, s, Progress)
	if err != nil {
		return model.UserOverview{}, err
	}
	bookmarks, err := load[model.Bookmark](ctx, s, Bookmarks)
	if err != nil {
		return model.UserOverview{}, err
	}

	progress = filter(progress, func(p model.Progress) bool { return p.UserID == id })
	bookmarks = filter(bookmarks, func(b model.Bookmark) bool { return b.UserID == id })
	return model.UserOverview{
		User:      u.Profile(),
		Progress:  progress,
		Bookmarks: bookmarks,
		Stats: model.UserStats{
			TotalCompleted: countCompleted(progress),
			TotalBookmarks: len(bookmarks),
		},
	}, nil
}

func countCompleted(progress []model.Progress) int {
	n := 0
	for _, p := range progress {
		if p.Status == model.ProgressCompleted {
			n++
		}
	}
	return n
}

// ExportProgress builds one report per user with completed lessons and
// bookmarks resolved to their names.
func (s *Store) ExportProgress(ctx context.Context) (model.ProgressExport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := s.loadCatalog(ctx, false)
	if err != nil {
		return model.ProgressExport{}, fmt.Errorf("load catalog: %w", err)
	}
	users, err := load[model.User](ctx, s, Users)
	if err != nil {
		return model.ProgressExport{}, fmt.Errorf("load users: %w", err)
	}
	progress, err := load[model.Progress](ctx, s, Progress)
	if err != nil {
		return model.ProgressExport{}, fmt.Errorf("load progress: %w", err)
	}
	bookmarks, err := load[model.Bookmark](ctx, s, Bookmarks)
	if err != nil {
		return model.ProgressExport{}, fmt.Errorf("load bookmarks: %w", err)
	}

	lessons := indexBy(c.lessons, func(l model.Lesson) string { return l.ID })
	books := indexBy(c.books, func(b model.Book) string { return b.ID })
	subjects := indexBy(c.subjects, func(v model.Subject) string { return v.ID })

	results := make([]model.UserReport, 0, len(users))
	for _, u := range users {
		rep := model.UserReport{
			User:      u.Profile(),
			Completed: []model.CompletedEntry{},
			Bookmarks: []model.BookmarkEntry{},
		}
		for _, p := range progress {
			if p.UserID != u.ID || p.Status != model.ProgressCompleted {
				continue
			}
			entry := model.CompletedEntry{LessonID: p.LessonID, CompletedAt: p.CompletedAt}
			if l, ok := lessons[p.LessonID]; ok {
				entry.LessonName = l.Name
				entry.BookName = books[l.BookID].Name
				entry.SubjectName = subjects[l.SubjectID].Name
			}
			rep.Completed = append(rep.Completed, entry)
		}
		for _, bm := range bookmarks {
			if bm.UserID != u.ID {
				continue
			}
			b := books[bm.BookID]
			rep.Bookmarks = append(rep.Bookmarks, model.BookmarkEntry{
				BookID:       bm.BookID,
				BookName:     b.Name,
				Publisher:    b.Publisher,
				BookmarkedAt: bm.BookmarkedAt,
			})
		}
		rep.Stats = model.UserStats{
			TotalCompleted: len(rep.Completed),
			TotalBookmarks: len(rep.Bookmarks),
		}
		results = append(results, rep)
	}

	return model.ProgressExport{
		GeneratedAt: s.timestamp(),
		NumUsers:    len(users),
		NumLessons:  len(c.lessons),
		Results:     results,
	}, nil
}

func indexBy[T any](items []T, key func(T) string) map[string]T {
	m := make(map[string]T, len(items))
	for _, it := range items {
		m[key(it)] = it
	}
	return m
}
