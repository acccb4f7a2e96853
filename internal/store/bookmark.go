package store

import (
	"context"
	"log/slog"
	"slices"

	"github.com/solvefy/solvefy/internal/apperr"
	"github.com/solvefy/solvefy/internal/model"
)

// BookmarkFilter narrows ListBookmarks.
type BookmarkFilter struct {
	UserID string
	BookID string
}

// BookmarkInput is the payload for AddBookmark.
type BookmarkInput struct {
	UserID string `json:"userId" validate:"required"`
	BookID string `json:"bookId" validate:"required"`
}

// ListBookmarks returns the bookmarks matching every set filter.
func (s *Store) ListBookmarks(ctx context.Context, f BookmarkFilter) ([]model.Bookmark, error) {
	bookmarks, err := readAll[model.Bookmark](ctx, s, Bookmarks)
	if err != nil {
		return nil, err
	}
	return filter(bookmarks, func(b model.Bookmark) bool {
		return (f.UserID == "" || b.UserID == f.UserID) &&
			(f.BookID == "" || b.BookID == f.BookID)
	}), nil
}

// AddBookmark bookmarks an existing book for a user. A second bookmark of the
// same book by the same user is a conflict.
func (s *Store) AddBookmark(ctx context.Context, in BookmarkInput) (model.Bookmark, error) {
	trim(&in.UserID, &in.BookID)
	if err := checkInput(in); err != nil {
		return model.Bookmark{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	books, err := load[model.Book](ctx, s, Books)
	if err != nil {
		return model.Bookmark{}, err
	}
	if _, i := find(books, func(b model.Book) bool { return b.ID == in.BookID }); i < 0 {
		return model.Bookmark{}, apperr.NotFound("Book")
	}

	bookmarks, err := load[model.Bookmark](ctx, s, Bookmarks)
	if err != nil {
		return model.Bookmark{}, err
	}
	if slices.ContainsFunc(bookmarks, func(b model.Bookmark) bool {
		return b.UserID == in.UserID && b.BookID == in.BookID
	}) {
		return model.Bookmark{}, apperr.Conflict("BookmarkExists")
	}

	bm := model.Bookmark{
		ID:           s.nextMillisID("ub"),
		UserID:       in.UserID,
		BookID:       in.BookID,
		BookmarkedAt: s.timestamp(),
	}
	if err := save(ctx, s, Bookmarks, append(bookmarks, bm)); err != nil {
		return model.Bookmark{}, err
	}
	slog.Info("added bookmark", "id", bm.ID, "user_id", bm.UserID, "book_id", bm.BookID)
	return bm, nil
}

// RemoveBookmark deletes the bookmark of a book by a user.
func (s *Store) RemoveBookmark(ctx context.Context, in BookmarkInput) error {
	trim(&in.UserID, &in.BookID)
	if err := checkInput(in); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bookmarks, err := load[model.Bookmark](ctx, s, Bookmarks)
	if err != nil {
		return err
	}
	_, i := find(bookmarks, func(b model.Bookmark) bool {
		return b.UserID == in.UserID && b.BookID == in.BookID
	})
	if i < 0 {
		return apperr.NotFound("Bookmark")
	}
	return save(ctx, s, Bookmarks, append(bookmarks[:i:i], bookmarks[i+1:]...))
}
