package store

import (
	"github.com/solvefy/solvefy/internal/model"
)

// Default page sizes.
const (
	DefaultBookLimit     = 20
	DefaultQuestionLimit = 50
)

// paginate slices items for a 1-based page. Non-positive page or limit fall
// back to 1 and defLimit. A page past the end yields an empty slice.
func paginate[T any](items []T, page, limit, defLimit int, filters map[string]string) model.Page[T] {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defLimit
	}
	total := len(items)

	totalPages := 0
	if total > 0 {
		totalPages = (total-1)/limit + 1
	}
	// (page-1)*limit < total for every existing page.
	start, end := total, total
	if page <= totalPages {
		start = (page - 1) * limit
		end = start + min(limit, total-start)
	}

	out := make([]T, end-start)
	copy(out, items[start:end])

	if filters == nil {
		filters = map[string]string{}
	}
	return model.Page[T]{
		Items: out,
		Meta: model.PageMeta{
			Total:      total,
			Page:       page,
			Limit:      limit,
			TotalPages: totalPages,
			Filters:    filters,
		},
	}
}

// filterSet records the non-empty filter values applied to a list.
type filterSet map[string]string

func (f filterSet) add(key, value string) bool {
	if value == "" {
		return false
	}
	f[key] = value
	return true
}
