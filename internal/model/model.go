package model

import (
	"context"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleStudent is a student user role.
	UserRoleStudent UserRole = "student"
	// UserRoleTeacher is a teacher user role.
	UserRoleTeacher UserRole = "teacher"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// User represents a system user as stored in the users collection.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	FullName     string    `json:"fullName"`
	Role         UserRole  `json:"role"`
	Avatar       string    `json:"avatar,omitempty"`
	CreatedAt    time.Time `json:"createdAt,omitzero"`

	// LegacyPassword is the clear-text password of rows written before hashing
	// was introduced. It is dropped once the user logs in and the row is
	// upgraded to a hash.
	LegacyPassword string `json:"password,omitempty"`
}

// Profile is the public view of a user, without credentials.
type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	FullName  string    `json:"fullName"`
	Role      UserRole  `json:"role"`
	Avatar    string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// Profile strips credentials from the user.
func (u User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		Username:  u.Username,
		FullName:  u.FullName,
		Role:      u.Role,
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt,
	}
}

// HasRole reports whether the user has one of the given roles.
func (u User) HasRole(roles ...UserRole) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the session is past its expiry at now.
func (s AuthSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

type sessionCtxKey struct{}

// ContextWithSessionID stores the auth session id of the current request.
func ContextWithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, id)
}

// SessionIDFromContext returns the auth session id, or "" for anonymous requests.
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionCtxKey{}).(string)
	return id
}

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}

// Subject is the root of the catalog hierarchy.
type Subject struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Icon        string    `json:"icon"`
	Description string    `json:"description,omitempty"`
	SortOrder   int       `json:"sortOrder"`
	IsActive    bool      `json:"isActive"`
	CreatedBy   string    `json:"createdBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitzero"`
	UpdatedAt   time.Time `json:"updatedAt,omitzero"`
}

// Grade belongs to a subject.
type Grade struct {
	ID          string    `json:"_id"`
	SubjectID   string    `json:"subjectId"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Level       int       `json:"level"`
	Description string    `json:"description,omitempty"`
	SortOrder   int       `json:"sortOrder"`
	IsActive    bool      `json:"isActive"`
	CreatedBy   string    `json:"createdBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitzero"`
	UpdatedAt   time.Time `json:"updatedAt,omitzero"`
}

// Book belongs to a grade. SubjectID is denormalized from the grade.
type Book struct {
	ID              string    `json:"_id"`
	GradeID         string    `json:"gradeId"`
	SubjectID       string    `json:"subjectId"`
	Name            string    `json:"name"`
	Publisher       string    `json:"publisher"`
	Slug            string    `json:"slug"`
	Description     string    `json:"description,omitempty"`
	CoverImageURL   string    `json:"coverImageUrl,omitempty"`
	PublicationYear int       `json:"publicationYear,omitempty"`
	SortOrder       int       `json:"sortOrder"`
	IsActive        bool      `json:"isActive"`
	CreatedBy       string    `json:"createdBy,omitempty"`
	CreatedAt       time.Time `json:"createdAt,omitzero"`
	UpdatedAt       time.Time `json:"updatedAt,omitzero"`
}

// Lesson belongs to a book. GradeID and SubjectID are denormalized from the book.
type Lesson struct {
	ID          string    `json:"_id"`
	BookID      string    `json:"bookId"`
	GradeID     string    `json:"gradeId"`
	SubjectID   string    `json:"subjectId"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Content     string    `json:"content,omitempty"`
	Description string    `json:"description,omitempty"`
	SortOrder   int       `json:"sortOrder"`
	IsActive    bool      `json:"isActive"`
	CreatedBy   string    `json:"createdBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitzero"`
	UpdatedAt   time.Time `json:"updatedAt,omitzero"`
}

// Question is asked under a lesson.
type Question struct {
	ID        string    `json:"id"`
	LessonID  string    `json:"lessonId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Slug      string    `json:"slug"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// VideoType identifies where an answer's video is hosted.
type VideoType string

const (
	VideoYouTube  VideoType = "youtube"
	VideoVimeo    VideoType = "vimeo"
	VideoUploaded VideoType = "uploaded"
)

// Answer is a user's answer to a question.
type Answer struct {
	ID             string     `json:"id"`
	QuestionID     string     `json:"questionId"`
	Answer         string     `json:"answer"`
	Explain        string     `json:"explain"`
	VideoURL       *string    `json:"videoUrl,omitempty"`
	VideoType      *VideoType `json:"videoType,omitempty"`
	VideoThumbnail *string    `json:"videoThumbnail"`
	CreatedBy      string     `json:"createdBy"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Bookmark marks a book for a user.
type Bookmark struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	BookID       string    `json:"bookId"`
	BookmarkedAt time.Time `json:"bookmarkedAt"`
}

// ProgressStatus is the completion state of a lesson for a user.
type ProgressStatus string

// ProgressCompleted is the only status the service writes.
const ProgressCompleted ProgressStatus = "completed"

// Progress records that a user completed a lesson.
type Progress struct {
	ID          string         `json:"id"`
	UserID      string         `json:"userId"`
	LessonID    string         `json:"lessonId"`
	Status      ProgressStatus `json:"status"`
	CompletedAt time.Time      `json:"completedAt"`
}

// PageMeta describes a paginated list.
type PageMeta struct {
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"totalPages"`
	Filters    map[string]string `json:"filters"`
}

// Page is one slice of a filtered collection.
type Page[T any] struct {
	Items []T
	Meta  PageMeta
}

// Breadcrumb is the resolved ancestry of a catalog leaf. Missing ancestors are nil.
type Breadcrumb struct {
	Subject  *Subject  `json:"subject"`
	Grade    *Grade    `json:"grade"`
	Book     *Book     `json:"book"`
	Lesson   *Lesson   `json:"lesson"`
	Question *Question `json:"question,omitempty"`
}

// BookNode is a book with its lessons.
type BookNode struct {
	Book
	Lessons []Lesson `json:"lessons"`
}

// GradeNode is a grade with its books.
type GradeNode struct {
	Grade
	Books []BookNode `json:"books"`
}

// SubjectTree is a subject with its full grade/book/lesson hierarchy.
type SubjectTree struct {
	Subject
	Grades []GradeNode `json:"grades"`
}

// Snapshot is the legacy all-collections payload.
type Snapshot struct {
	Questions []Question `json:"questions"`
	Subjects  []Subject  `json:"subjects"`
	Grades    []Grade    `json:"grades"`
	Books     []Book     `json:"books"`
	Lessons   []Lesson   `json:"lessons"`
	Users     []Profile  `json:"users"`
}

// QuestionWithAnswer is the legacy single-question payload.
type QuestionWithAnswer struct {
	Question *Question `json:"question"`
	Answer   *Answer   `json:"answer"`
}

// SubmissionResult is the outcome of the deprecated answer-grading shortcut.
type SubmissionResult struct {
	IsCorrect     bool            `json:"isCorrect"`
	CorrectAnswer *string         `json:"correctAnswer"`
	Explanation   *string         `json:"explanation"`
	Progress      SubmissionEntry `json:"progress"`
}

// SubmissionEntry is the transient progress entry returned with a submission.
type SubmissionEntry struct {
	ID          string         `json:"id"`
	UserID      string         `json:"userId"`
	QuestionID  string         `json:"questionId"`
	Status      ProgressStatus `json:"status"`
	UserAnswer  string         `json:"userAnswer"`
	IsCorrect   bool           `json:"isCorrect"`
	Attempts    int            `json:"attempts"`
	CompletedAt time.Time      `json:"completedAt"`
}
