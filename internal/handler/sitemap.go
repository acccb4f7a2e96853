package handler

import (
	"encoding/xml"
	"log/slog"
	"net/http"
	"time"

	"github.com/solvefy/solvefy/internal/model"
)

type urlset struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string  `xml:"loc"`
	LastMod    string  `xml:"lastmod,omitempty"`
	ChangeFreq string  `xml:"changefreq"`
	Priority   float64 `xml:"priority"`
}

func lastMod(updated, created time.Time) string {
	t := updated
	if t.IsZero() {
		t = created
	}
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// buildSitemap lists the public pages of the site under base.
func buildSitemap(base string, snap model.Snapshot, now time.Time) urlset {
	today := now.UTC().Format(time.RFC3339)
	set := urlset{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs: []sitemapURL{
			{Loc: base + "/", LastMod: today, ChangeFreq: "daily", Priority: 1},
			{Loc: base + "/login", LastMod: today, ChangeFreq: "monthly", Priority: 0.5},
		},
	}
	add := func(loc, mod, freq string, prio float64) {
		set.URLs = append(set.URLs, sitemapURL{Loc: base + loc, LastMod: mod, ChangeFreq: freq, Priority: prio})
	}

	for _, s := range snap.Subjects {
		add("/"+s.Slug, lastMod(s.UpdatedAt, s.CreatedAt), "weekly", 0.9)
		for _, g := range snap.Grades {
			if g.SubjectID == s.ID {
				add("/"+s.Slug+"/"+g.Slug, lastMod(g.UpdatedAt, g.CreatedAt), "weekly", 0.8)
			}
		}
	}
	for _, b := range snap.Books {
		add("/book/"+b.Slug, lastMod(b.UpdatedAt, b.CreatedAt), "weekly", 0.7)
		for _, l := range snap.Lessons {
			if l.BookID == b.ID {
				add("/book/"+b.Slug+"/"+l.Slug, lastMod(l.UpdatedAt, l.CreatedAt), "weekly", 0.6)
			}
		}
	}
	for _, q := range snap.Questions {
		add("/cau-hoi/"+q.Slug, lastMod(q.UpdatedAt, q.CreatedAt), "daily", 0.5)
	}
	return set
}

func (h *Handler) handleSitemap(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Snapshot(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	base := h.config.BaseURL
	if base == "" {
		base = "http://" + r.Host
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	if _, err := w.Write([]byte(xml.Header)); err != nil {
		return
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(buildSitemap(base, snap, time.Now())); err != nil {
		slog.Error("failed to write sitemap", "error", err)
	}
}
