package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/goliatone/go-crmpanel/pkg/catalog"
	"github.com/goliatone/go-crmpanel/pkg/notify"
	"github.com/goliatone/go-crmpanel/pkg/ui"
	"github.com/goliatone/go-crmpanel/pkg/widgets"
)

// DefaultTabSets lists the tab strips of the record detail pages.
func DefaultTabSets() map[string][]ui.Tab {
	return map[string][]ui.Tab{
		"client": {
			{Name: "addresses", Title: "آدرس ها"},
			{Name: "phone_numbers", Title: "شماره تماس ها"},
			{Name: "payments", Title: "پرداخت ها"},
			{Name: "services", Title: "خدمات"},
			{Name: "calls", Title: "تماس ها"},
		},
		"personnel": {
			{Name: "phone_numbers", Title: "شماره تماس ها"},
			{Name: "skills", Title: "مهارت ها"},
			{Name: "services", Title: "خدمات"},
		},
		"patient": {
			{Name: "phone_numbers", Title: "شماره تماس ها"},
			{Name: "services", Title: "خدمات"},
		},
	}
}

// TabsView is the tab strip with the grid options of its tables.
type TabsView struct {
	Section string             `json:"section"`
	Active  int                `json:"active"`
	Changed bool               `json:"changed"`
	Tabs    []ui.TabView       `json:"tabs"`
	Grid    widgets.GridConfig `json:"grid"`
}

const tabKeyPrefix = "tabs:"

func (s *Server) getTabs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := sessionID(ctx)
	query := r.URL.Query()
	section := strings.TrimSpace(query.Get("section"))
	set, ok := s.tabSets[section]
	if !ok {
		writeError(w, http.StatusNotFound, CodeNotFound, "unknown tab set", map[string]any{"section": section})
		return
	}

	stored, err := s.sessions.Get(ctx, sid, tabKeyPrefix+section)
	if err != nil {
		stored = ""
	}
	tabs := ui.NewTabs(set, stored)

	changed := false
	if raw := query.Get("active"); raw != "" {
		idx, ok := ui.ParseTabIndex(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid tab index", map[string]any{"active": raw})
			return
		}
		changed, err = tabs.Activate(idx)
		if errors.Is(err, ui.ErrTabRange) {
			writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error(), nil)
			return
		}
		if changed {
			if err := s.sessions.Set(ctx, sid, tabKeyPrefix+section, raw); err != nil {
				s.log(ctx).WithError(err).Error("server: persist tab")
			}
		}
	}

	writeJSON(w, http.StatusOK, TabsView{
		Section: section,
		Active:  tabs.Active(),
		Changed: changed,
		Tabs:    tabs.Views(),
		Grid:    widgets.TabTable(),
	})
}

func (s *Server) getSidebar(w http.ResponseWriter, r *http.Request) {
	view, err := s.sidebar.Load(r.Context(), sessionID(r.Context()))
	s.writeSidebar(w, r, view, err, true)
}

func (s *Server) toggleSidebar(w http.ResponseWriter, r *http.Request) {
	view, err := s.sidebar.Toggle(r.Context(), sessionID(r.Context()))
	s.writeSidebar(w, r, view, err, true)
}

func (s *Server) followMenuItem(w http.ResponseWriter, r *http.Request) {
	view, err := s.sidebar.FollowMenuItem(r.Context(), sessionID(r.Context()))
	s.writeSidebar(w, r, view, err, false)
}

// writeSidebar answers a sidebar request. The menuState cookie mirrors the
// stored state, so it is only written when persist is set.
func (s *Server) writeSidebar(w http.ResponseWriter, r *http.Request, view ui.SidebarView, err error, persist bool) {
	if err != nil {
		s.log(r.Context()).WithError(err).Error("server: sidebar state")
		writeError(w, http.StatusInternalServerError, CodeInternal, err.Error(), nil)
		return
	}
	if persist {
		http.SetCookie(w, &http.Cookie{
			Name:     ui.MenuStateKey,
			Value:    view.State,
			Path:     "/",
			SameSite: http.SameSiteLaxMode,
		})
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) lookupCatalog(w http.ResponseWriter, r *http.Request) {
	term := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("q")))
	if term == "" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "missing catalog term", nil)
		return
	}
	options, err := s.catalog.Lookup(r.Context(), term)
	if err != nil {
		s.log(r.Context()).WithError(err).WithField("term", term).Error("server: catalog lookup failed")
		s.backendFailed(w, r, &notify.Collector{}, err)
		return
	}
	writeJSON(w, http.StatusOK, catalog.ToPicker(options))
}
