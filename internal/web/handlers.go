package web

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Kuma3D/PTTracker/internal/errors"
	"github.com/Kuma3D/PTTracker/internal/ops"
	"github.com/Kuma3D/PTTracker/internal/session"
	"github.com/Kuma3D/PTTracker/internal/tag"
)

// Handlers contains HTTP route handlers for the session inspector.
type Handlers struct {
	mgr      *session.Manager
	renderer *Renderer
}

// HandleList handles GET /sessions: the tracked session list.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	input := ops.ListInput{
		Limit:  parseIntParam(r, "limit", 20),
		Offset: parseIntParam(r, "offset", 0),
	}

	result, err := ops.List(h.mgr.DB(), input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, r, "list", ListPageData{
		PageData: PageData{
			Title:   "Sessions",
			Version: h.renderer.version,
			Nav:     "sessions",
		},
		Items:      result.Items,
		Pagination: result.Pagination,
	})
}

// HandleSearch handles GET /sessions/search: message text search.
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	role := r.URL.Query().Get("role")
	sessionRef := r.URL.Query().Get("session")

	data := SearchPageData{
		PageData: PageData{
			Title:   "Search",
			Version: h.renderer.version,
			Nav:     "search",
		},
		Query:    query,
		Role:     role,
		Session:  sessionRef,
		HasQuery: query != "",
	}

	if query == "" {
		// If htmx targets #results (user cleared the search box), return just the results fragment
		if r.Header.Get("HX-Target") == "results" {
			h.renderer.renderBlock(w, http.StatusOK, "search", "search-results", data)
			return
		}
		h.renderer.renderPage(w, r, "search", data)
		return
	}

	input := ops.SearchInput{
		Query:   query,
		Session: ptrString(sessionRef),
		Role:    ptrString(role),
		Limit:   parseIntParam(r, "limit", 20),
		Offset:  parseIntParam(r, "offset", 0),
	}

	result, err := ops.Search(h.mgr.DB(), input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	data.Items = result.Items
	data.Pagination = result.Pagination

	// If htmx targets #results, render only the results fragment
	if r.Header.Get("HX-Target") == "results" {
		h.renderer.renderBlock(w, http.StatusOK, "search", "search-results", data)
		return
	}

	h.renderer.renderPage(w, r, "search", data)
}

// HandleDetail handles GET /sessions/{id}: transcript, live state, prompt
// preview and settings for one session.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("session ID is required"))
		return
	}

	fetched, err := ops.Fetch(h.mgr.DB(), ops.FetchInput{Session: id})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	state, err := ops.Latest(h.mgr, ops.LatestInput{Session: id, IncludePrompt: true})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	messages := make([]MessageRow, len(fetched.Messages))
	for i, m := range fetched.Messages {
		messages[i] = MessageRow{
			MessageView: m,
			Narrative:   renderMarkdown(tag.Strip(m.Text)),
		}
	}

	h.renderer.renderPage(w, r, "detail", DetailPageData{
		PageData: PageData{
			Title:   fetched.Name,
			Version: h.renderer.version,
			Nav:     "sessions",
		},
		Session:  fetched,
		Messages: messages,
		State:    state.Snapshot,
		Header:   state.Header,
		Prompt:   state.Prompt,
		Settings: fetched.Settings,
		Saved:    parseBoolParam(r, "saved"),
	})
}

// HandleSettings handles POST /sessions/{id}/settings, applying the settings
// form. Every checkbox is submitted as a definite value: browsers omit
// unchecked boxes, so absence means false rather than "keep current".
func (h *Handlers) HandleSettings(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("session ID is required"))
		return
	}

	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	patch := ops.SettingsPatch{
		Enabled:         formBool(r, "enabled"),
		TrackCharacters: formBool(r, "track_characters"),
		ShowTime:        formBool(r, "show_time"),
		ShowLocation:    formBool(r, "show_location"),
		ShowWeather:     formBool(r, "show_weather"),
		ShowHeart:       formBool(r, "show_heart"),
		ShowCharacters:  formBool(r, "show_characters"),
	}

	var err error
	if patch.ScanDepth, err = formInt(r, "scan_depth"); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if patch.DefaultHeartPoints, err = formInt(r, "default_heart_points"); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if patch.PromptDepth, err = formInt(r, "prompt_depth"); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	result, err := ops.Update(h.mgr, ops.UpdateInput{Session: id, Patch: patch})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	target := "/sessions/" + url.PathEscape(id) + "?saved=1"

	// HTMX request: redirect via HX-Redirect header
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}

	// JSON request
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		renderJSON(w, http.StatusOK, map[string]any{
			"settings": result.Settings,
		})
		return
	}

	// Default: redirect back to the session page
	http.Redirect(w, r, target, http.StatusFound)
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}

// ptrString returns a pointer to s if non-empty, nil otherwise.
func ptrString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// formBool reads a checkbox form field as a definite boolean.
func formBool(r *http.Request, name string) *bool {
	v := r.FormValue(name)
	b := v == "on" || v == "true" || v == "1"
	return &b
}

// formInt parses an optional integer form field. Empty fields return nil so
// the setting keeps its current value.
func formInt(r *http.Request, name string) (*int, error) {
	v := r.FormValue(name)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, errors.NewInvalidRequest(name + " must be an integer")
	}
	return &n, nil
}
