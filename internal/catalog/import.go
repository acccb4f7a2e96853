// Package catalog imports nested category documents into the flat catalog
// collections and checks the references between them.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/solvefy/solvefy/internal/model"
	"github.com/solvefy/solvefy/internal/slug"
	"github.com/solvefy/solvefy/internal/store"
)

//go:embed schema.json
var schemaJSON string

var schema = gojsonschema.NewStringLoader(schemaJSON)

// Node is one entry of a category document. Subjects contain grades,
// grades contain books and books contain lessons.
type Node struct {
	ID              string `yaml:"id"`
	Name            string `yaml:"name"`
	Description     string `yaml:"description"`
	Content         string `yaml:"content"`
	CoverImageURL   string `yaml:"coverImageUrl"`
	PublicationYear int    `yaml:"publicationYear"`
	SortOrder       int    `yaml:"sortOrder"`
	IsActive        *bool  `yaml:"isActive"`
	CreatedBy       string `yaml:"createdBy"`
	CreatedAt       string `yaml:"createdAt"`
	UpdatedAt       string `yaml:"updatedAt"`
	Children        []Node `yaml:"children"`
}

// SchemaError lists the schema violations of a document.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return "invalid catalog document: " + strings.Join(e.Problems, "; ")
}

// Parse decodes a YAML or JSON category document and validates it against
// the embedded schema.
func Parse(data []byte) ([]Node, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode catalog document: %w", err)
	}
	if raw == nil {
		return nil, errors.New("catalog document is empty")
	}
	result, err := gojsonschema.Validate(schema, gojsonschema.NewGoLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("validate catalog document: %w", err)
	}
	if !result.Valid() {
		serr := &SchemaError{}
		for _, e := range result.Errors() {
			serr.Problems = append(serr.Problems, e.String())
		}
		return nil, serr
	}

	var nodes []Node
	if err := yaml.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("decode catalog document: %w", err)
	}
	return nodes, nil
}

// Flatten turns subject trees into catalog rows. Icons, grade levels,
// publishers and slugs are derived from names. A node is inactive when it or
// any ancestor is marked inactive. Timestamps that are missing or unparsable
// fall back to now.
func Flatten(nodes []Node, now time.Time) (store.CatalogRows, error) {
	var rows store.CatalogRows
	for _, sn := range nodes {
		sActive := active(sn, true)
		sCreated, sUpdated := stamps(sn, now)
		rows.Subjects = append(rows.Subjects, model.Subject{
			ID:          sn.ID,
			Name:        sn.Name,
			Slug:        slug.Make(sn.Name),
			Icon:        store.SubjectIcon(sn.Name),
			Description: sn.Description,
			SortOrder:   sn.SortOrder,
			IsActive:    sActive,
			CreatedBy:   sn.CreatedBy,
			CreatedAt:   sCreated,
			UpdatedAt:   sUpdated,
		})

		for _, gn := range sn.Children {
			gActive := active(gn, sActive)
			gCreated, gUpdated := stamps(gn, now)
			rows.Grades = append(rows.Grades, model.Grade{
				ID:          gn.ID,
				SubjectID:   sn.ID,
				Name:        gn.Name,
				Slug:        slug.Make(gn.Name),
				Level:       store.GradeLevel(gn.Name),
				Description: gn.Description,
				SortOrder:   gn.SortOrder,
				IsActive:    gActive,
				CreatedBy:   gn.CreatedBy,
				CreatedAt:   gCreated,
				UpdatedAt:   gUpdated,
			})

			for _, bn := range gn.Children {
				bActive := active(bn, gActive)
				bCreated, bUpdated := stamps(bn, now)
				rows.Books = append(rows.Books, model.Book{
					ID:              bn.ID,
					GradeID:         gn.ID,
					SubjectID:       sn.ID,
					Name:            bn.Name,
					Publisher:       store.Publisher(bn.Name),
					Slug:            slug.WithID(bn.Name, bn.ID, 0),
					Description:     bn.Description,
					CoverImageURL:   bn.CoverImageURL,
					PublicationYear: bn.PublicationYear,
					SortOrder:       bn.SortOrder,
					IsActive:        bActive,
					CreatedBy:       bn.CreatedBy,
					CreatedAt:       bCreated,
					UpdatedAt:       bUpdated,
				})

				for _, ln := range bn.Children {
					if len(ln.Children) > 0 {
						return store.CatalogRows{}, fmt.Errorf("lesson %s has children; documents nest four levels at most", ln.ID)
					}
					lCreated, lUpdated := stamps(ln, now)
					rows.Lessons = append(rows.Lessons, model.Lesson{
						ID:          ln.ID,
						BookID:      bn.ID,
						GradeID:     gn.ID,
						SubjectID:   sn.ID,
						Name:        ln.Name,
						Slug:        slug.WithID(ln.Name, ln.ID, 0),
						Content:     ln.Content,
						Description: ln.Description,
						SortOrder:   ln.SortOrder,
						IsActive:    active(ln, bActive),
						CreatedBy:   ln.CreatedBy,
						CreatedAt:   lCreated,
						UpdatedAt:   lUpdated,
					})
				}
			}
		}
	}
	return rows, nil
}

func active(n Node, parent bool) bool {
	if !parent {
		return false
	}
	return n.IsActive == nil || *n.IsActive
}

func stamps(n Node, now time.Time) (created, updated time.Time) {
	created = parseTime(n.CreatedAt, now)
	updated = parseTime(n.UpdatedAt, created)
	return created, updated
}

func parseTime(s string, fallback time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return fallback
}
