package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/goliatone/go-crmpanel/pkg/backend"
	"github.com/goliatone/go-crmpanel/pkg/navigation"
	"github.com/goliatone/go-crmpanel/pkg/notify"
)

// BackVisibleHeader tells htmx callers whether to show the back control.
const BackVisibleHeader = "X-Preview-Back"

func (s *Server) openPreview(w http.ResponseWriter, r *http.Request) {
	link := strings.TrimSpace(r.URL.Query().Get("link"))
	view, err := s.navigator.Open(r.Context(), sessionID(r.Context()), link)
	s.writeView(w, r, view, err)
}

func (s *Server) drillPreview(w http.ResponseWriter, r *http.Request) {
	values, err := readValues(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error(), nil)
		return
	}
	current := strings.TrimSpace(values.Get("current"))
	link := strings.TrimSpace(values.Get("link"))
	view, err := s.navigator.Drill(r.Context(), sessionID(r.Context()), current, link)
	s.writeView(w, r, view, err)
}

func (s *Server) backPreview(w http.ResponseWriter, r *http.Request) {
	view, err := s.navigator.Back(r.Context(), sessionID(r.Context()))
	s.writeView(w, r, view, err)
}

// writeView answers a navigation. Rows without a link, a back press on an
// empty stack and superseded loads leave the pane untouched (204).
func (s *Server) writeView(w http.ResponseWriter, r *http.Request, view navigation.View, err error) {
	switch {
	case errors.Is(err, navigation.ErrNoLink), errors.Is(err, navigation.ErrEmptyStack), errors.Is(err, navigation.ErrStale):
		w.WriteHeader(http.StatusNoContent)
		return
	case errors.Is(err, backend.ErrForeignLink):
		s.log(r.Context()).WithError(err).Warn("server: refused preview link")
		writeError(w, http.StatusBadRequest, CodeBadRequest, "preview link outside backend origin", nil)
		return
	case err != nil:
		s.log(r.Context()).WithError(err).Error("server: preview load failed")
		s.backendFailed(w, r, &notify.Collector{}, err)
		return
	}

	w.Header().Set(BackVisibleHeader, strconv.FormatBool(view.BackVisible))
	if isHTMX(r) {
		writeHTML(w, http.StatusOK, view.HTML)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
