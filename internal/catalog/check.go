package catalog

import (
	"fmt"

	"github.com/solvefy/solvefy/internal/model"
)

// Problem is one broken reference or denormalization mismatch.
type Problem struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
	Message    string `json:"message"`
}

func (p Problem) String() string {
	return fmt.Sprintf("%s %s: %s", p.Collection, p.ID, p.Message)
}

// Check validates the references between the catalog collections and the
// questions. Denormalized parent ids are compared with the values they were
// copied from.
func Check(snap model.Snapshot) []Problem {
	subjects := make(map[string]bool, len(snap.Subjects))
	for _, s := range snap.Subjects {
		subjects[s.ID] = true
	}
	grades := make(map[string]model.Grade, len(snap.Grades))
	for _, g := range snap.Grades {
		grades[g.ID] = g
	}
	books := make(map[string]model.Book, len(snap.Books))
	for _, b := range snap.Books {
		books[b.ID] = b
	}
	lessons := make(map[string]bool, len(snap.Lessons))
	for _, l := range snap.Lessons {
		lessons[l.ID] = true
	}

	var problems []Problem
	report := func(collection, id, format string, args ...any) {
		problems = append(problems, Problem{Collection: collection, ID: id, Message: fmt.Sprintf(format, args...)})
	}

	for _, g := range snap.Grades {
		if !subjects[g.SubjectID] {
			report("grades", g.ID, "references non-existent subject %s", g.SubjectID)
		}
	}

	for _, b := range snap.Books {
		g, ok := grades[b.GradeID]
		if !ok {
			report("books", b.ID, "references non-existent grade %s", b.GradeID)
		}
		if !subjects[b.SubjectID] {
			report("books", b.ID, "references non-existent subject %s", b.SubjectID)
		}
		if ok && g.SubjectID != b.SubjectID {
			report("books", b.ID, "subjectId %s differs from grade %s subjectId %s", b.SubjectID, g.ID, g.SubjectID)
		}
	}

	for _, l := range snap.Lessons {
		b, ok := books[l.BookID]
		if !ok {
			report("lessons", l.ID, "references non-existent book %s", l.BookID)
		}
		if _, found := grades[l.GradeID]; !found {
			report("lessons", l.ID, "references non-existent grade %s", l.GradeID)
		}
		if !subjects[l.SubjectID] {
			report("lessons", l.ID, "references non-existent subject %s", l.SubjectID)
		}
		if ok {
			if b.GradeID != l.GradeID {
				report("lessons", l.ID, "gradeId %s differs from book %s gradeId %s", l.GradeID, b.ID, b.GradeID)
			}
			if b.SubjectID != l.SubjectID {
				report("lessons", l.ID, "subjectId %s differs from book %s subjectId %s", l.SubjectID, b.ID, b.SubjectID)
			}
		}
	}

	for _, q := range snap.Questions {
		if !lessons[q.LessonID] {
			report("questions", q.ID, "references non-existent lesson %s", q.LessonID)
		}
	}
	return problems
}
