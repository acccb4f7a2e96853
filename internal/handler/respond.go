package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/solvefy/solvefy/internal/apperr"
	appI18n "github.com/solvefy/solvefy/internal/i18n"
	"github.com/solvefy/solvefy/internal/model"
)

const maxBodyBytes = 1 << 20

type successBody struct {
	Success      bool   `json:"success"`
	Data         any    `json:"data"`
	Meta         any    `json:"meta,omitempty"`
	Message      string `json:"message,omitempty"`
	IsBookmarked *bool  `json:"isBookmarked,omitempty"`
}

type errorBody struct {
	Success bool     `json:"success"`
	Error   string   `json:"error"`
	Fields  []string `json:"fields,omitempty"`
}

// listMeta is the meta block of unpaginated lists.
type listMeta struct {
	Total   int               `json:"total"`
	Filters map[string]string `json:"filters,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

func ok(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, successBody{Success: true, Data: data})
}

func list[T any](w http.ResponseWriter, items []T, filters map[string]string) {
	if items == nil {
		items = []T{}
	}
	writeJSON(w, http.StatusOK, successBody{
		Success: true,
		Data:    items,
		Meta:    listMeta{Total: len(items), Filters: filters},
	})
}

func page[T any](w http.ResponseWriter, p model.Page[T]) {
	writeJSON(w, http.StatusOK, successBody{Success: true, Data: p.Items, Meta: p.Meta})
}

func (h *Handler) done(w http.ResponseWriter, r *http.Request, status int, data any, msgID string) {
	writeJSON(w, status, successBody{Success: true, Data: data, Message: h.message(r, msgID)})
}

func (h *Handler) message(r *http.Request, msgID string) string {
	return appI18n.T(r.Context(), msgID)
}

func statusFor(k apperr.Kind) int {
	switch k {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the error envelope. Messages are localized; causes of server
// errors are logged and never sent.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	e, isApp := apperr.As(err)
	if !isApp {
		e = &apperr.Error{Kind: apperr.KindInternal, MessageID: "InternalError", Err: err}
	}
	status := statusFor(e.Kind)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}

	var msg string
	if e.Kind == apperr.KindValidation && len(e.Fields) > 0 {
		msg = appI18n.Td(r.Context(), e.MessageID, map[string]any{"Fields": strings.Join(e.Fields, ", ")})
	} else {
		msg = h.message(r, e.MessageID)
	}
	writeJSON(w, status, errorBody{Error: msg, Fields: e.Fields})
}

// decode reads a JSON body into dst. An empty body leaves dst unchanged so
// that validation can name the missing fields.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperr.Invalid("InvalidRequest")
	}
	return nil
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}

// filters collects the non-empty query parameters among keys.
func filters(r *http.Request, keys ...string) map[string]string {
	out := map[string]string{}
	q := r.URL.Query()
	for _, k := range keys {
		if v := strings.TrimSpace(q.Get(k)); v != "" {
			out[k] = v
		}
	}
	return out
}
