package model

import "time"

// ProgressExport is the top-level JSON structure for a progress report export.
type ProgressExport struct {
	GeneratedAt time.Time    `json:"generatedAt"`
	NumUsers    int          `json:"numUsers"`
	NumLessons  int          `json:"numLessons"`
	Results     []UserReport `json:"results"`
}

// UserReport holds one user's progress and bookmarks.
type UserReport struct {
	User      Profile          `json:"user"`
	Completed []CompletedEntry `json:"completed"`
	Bookmarks []BookmarkEntry  `json:"bookmarks"`
	Stats     UserStats        `json:"stats"`
}

// CompletedEntry is one completed lesson, resolved to names for export.
type CompletedEntry struct {
	LessonID    string    `json:"lessonId"`
	LessonName  string    `json:"lessonName"`
	BookName    string    `json:"bookName"`
	SubjectName string    `json:"subjectName"`
	CompletedAt time.Time `json:"completedAt"`
}

// BookmarkEntry is one bookmarked book, resolved to names for export.
type BookmarkEntry struct {
	BookID       string    `json:"bookId"`
	BookName     string    `json:"bookName"`
	Publisher    string    `json:"publisher"`
	BookmarkedAt time.Time `json:"bookmarkedAt"`
}

// UserStats summarizes a user's activity.
type UserStats struct {
	TotalCompleted int `json:"totalCompleted"`
	TotalBookmarks int `json:"totalBookmarks"`
}

// UserOverview is the payload of a single-user lookup.
type UserOverview struct {
	User      Profile    `json:"user"`
	Progress  []Progress `json:"progress"`
	Bookmarks []Bookmark `json:"bookmarks"`
	Stats     UserStats  `json:"stats"`
}
