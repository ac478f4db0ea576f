package server

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"activityportal/internal/activities"
	"activityportal/internal/database"
	"activityportal/internal/portal"
)

var templateFuncs = template.FuncMap{
	"spotsLabel": func(n int) string {
		return strconv.Itoa(n) + " spots left"
	},
}

type actionFunc func(ctx context.Context, session, activity, email string) portal.Outcome

type pageData struct {
	View        activities.View
	Categories  []activities.CategoryOption
	Filter      activities.Filter
	LoadFailed  bool
	Form        portal.FormValues
	Message     *portal.Message
	HideInMs    int64
	CSRFField   template.HTML
	Placeholder string
	Notices     notices
}

type notices struct {
	Empty          string
	NoParticipants string
	LoadFailed     string
}

var pageNotices = notices{
	Empty:          activities.NoActivitiesNotice,
	NoParticipants: activities.NoParticipantsNotice,
	LoadFailed:     activities.LoadFailedNotice,
}

// renderOnlyParam marks a request that re-renders the current snapshot
// instead of fetching: filter changes and the redirect after an action.
const renderOnlyParam = "filter"

// handleIndex renders the full page. A plain page load fetches the
// activities first; when that fails the list shows the load-failure notice
// and the previous snapshot is kept for the JSON API. A render-only request
// uses the snapshot as is, unless nothing has been loaded yet.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	session := s.sessionID(w, r)

	var loadErr error
	store, version := s.portal.Snapshot()
	if r.URL.Query().Get(renderOnlyParam) == "" || version == 0 {
		loadErr = s.portal.LoadActivities(r.Context())
		store, _ = s.portal.Snapshot()
	}

	categories := activities.Categories(store)
	filter := activities.FilterFromQuery(r.URL.Query()).Normalize(categories)

	data := pageData{
		Categories:  activities.CategoryOptions(categories, filter.Category),
		Filter:      filter,
		LoadFailed:  loadErr != nil,
		Form:        s.portal.Messages().TakeForm(session),
		CSRFField:   csrf.TemplateField(r),
		Placeholder: activities.SelectPlaceholder,
		Notices:     pageNotices,
	}
	if loadErr == nil {
		data.View = activities.Render(activities.Apply(store, filter, s.collator(r)))
	}

	if msg, ok := s.portal.Messages().Current(session); ok {
		data.Message = &msg
		data.HideInMs = time.Until(msg.ExpiresAt).Milliseconds()
		if data.HideInMs < 0 {
			data.HideInMs = 0
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.Execute(w, data); err != nil {
		s.logger.Error("error rendering page", zap.Error(err))
	}
}

func (s *Server) handleSignupForm(w http.ResponseWriter, r *http.Request) {
	s.handleForm(w, r, s.portal.Signup)
}

func (s *Server) handleUnregisterForm(w http.ResponseWriter, r *http.Request) {
	s.handleForm(w, r, s.portal.Unregister)
}

// handleForm runs the action and redirects back to the page with the
// visitor's filters intact. The action already refreshed the store when it
// succeeded, so the page only re-renders.
func (s *Server) handleForm(w http.ResponseWriter, r *http.Request, run actionFunc) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	session := s.sessionID(w, r)
	run(r.Context(), session, r.PostForm.Get("activity"), r.PostForm.Get("email"))

	q := activities.FilterFromQuery(r.PostForm).Query()
	q.Set(renderOnlyParam, "1")
	http.Redirect(w, r, "/?"+q.Encode(), http.StatusSeeOther)
}

type activityJSON struct {
	Name string `json:"name"`
	activities.Activity
	SpotsLeft int `json:"spots_left"`
}

// handleAPIActivities runs the pipeline over the current snapshot without
// refetching.
func (s *Server) handleAPIActivities(w http.ResponseWriter, r *http.Request) {
	store, version := s.portal.Snapshot()
	categories := activities.Categories(store)
	filter := activities.FilterFromQuery(r.URL.Query()).Normalize(categories)

	entries := activities.Apply(store, filter, s.collator(r))
	list := make([]activityJSON, 0, len(entries))
	for _, e := range entries {
		a := e.Activity
		if a.Participants == nil {
			a.Participants = []string{}
		}
		list = append(list, activityJSON{Name: e.Name, Activity: a, SpotsLeft: e.Activity.SpotsLeft()})
	}
	if categories == nil {
		categories = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"activities": list,
		"categories": categories,
		"version":    version,
	})
}

func (s *Server) handleAPISignup(w http.ResponseWriter, r *http.Request) {
	s.handleAPIAction(w, r, s.portal.Signup)
}

func (s *Server) handleAPIUnregister(w http.ResponseWriter, r *http.Request) {
	s.handleAPIAction(w, r, s.portal.Unregister)
}

func (s *Server) handleAPIAction(w http.ResponseWriter, r *http.Request, run actionFunc) {
	name, err := url.PathUnescape(mux.Vars(r)["name"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"kind": portal.KindError, "message": "Invalid activity name"})
		return
	}

	out := run(r.Context(), s.peekSession(r), name, r.URL.Query().Get("email"))

	status := out.StatusCode
	switch {
	case out.Kind == portal.KindSuccess && status == 0:
		status = http.StatusOK
	case out.Rejected:
		status = http.StatusBadRequest
	case out.Kind == portal.KindError && status == 0:
		status = http.StatusBadGateway
	}

	writeJSON(w, status, map[string]interface{}{
		"kind":    out.Kind,
		"message": out.Message,
	})
}

func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := s.logs.RecentActions(r.Context(), r.URL.Query().Get("activity"), limit)
	if err != nil {
		http.Error(w, "Failed to get actions", http.StatusInternalServerError)
		s.logger.Error("error getting actions", zap.Error(err))
		return
	}
	if entries == nil {
		entries = []database.ActionLog{}
	}

	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// collator picks the sort order for the visitor's Accept-Language.
func (s *Server) collator(r *http.Request) activities.Comparer {
	tag := activities.MatchLocale(r.Header.Get("Accept-Language"), s.opts.DefaultLocale)
	return activities.NewCollator(tag)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
