package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-crmpanel/pkg/backend"
	"github.com/goliatone/go-crmpanel/pkg/document"
	"github.com/goliatone/go-crmpanel/pkg/form"
	"github.com/goliatone/go-crmpanel/pkg/formschema"
	"github.com/goliatone/go-crmpanel/pkg/formview"
	"github.com/goliatone/go-crmpanel/pkg/intl"
	"github.com/goliatone/go-crmpanel/pkg/marshal"
	"github.com/goliatone/go-crmpanel/pkg/model"
	"github.com/goliatone/go-crmpanel/pkg/notify"
	"github.com/goliatone/go-crmpanel/pkg/rows"
	"github.com/goliatone/go-crmpanel/pkg/widgets"
)

// FormSummary is one entry of the form list.
type FormSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// FormView is a localized definition with its widget bindings and an empty
// document.
type FormView struct {
	Form     model.FormModel    `json:"form"`
	Bindings []widgets.Binding  `json:"bindings"`
	Document *document.Document `json:"document"`
}

// SubmitResult reports a submission.
type SubmitResult struct {
	Valid      bool                `json:"valid"`
	Errors     map[string][]string `json:"errors,omitempty"`
	FormErrors []string            `json:"form_errors,omitempty"`
	Payload    *marshal.Object     `json:"payload,omitempty"`
	Response   map[string]any      `json:"response,omitempty"`
}

// RowResult reports a row change together with the section's rows.
type RowResult struct {
	Section string               `json:"section"`
	Row     *document.Row        `json:"row,omitempty"`
	Pickers []rows.PickerBinding `json:"pickers,omitempty"`
	Rows    []document.Row       `json:"rows"`
}

func (s *Server) lookupForm(w http.ResponseWriter, r *http.Request) (model.FormModel, bool) {
	id := mux.Vars(r)["form"]
	f, err := s.forms.Form(id)
	if errors.Is(err, formschema.ErrUnknownForm) {
		writeError(w, http.StatusNotFound, CodeNotFound, err.Error(), map[string]any{"form": id})
		return model.FormModel{}, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, CodeInternal, err.Error(), nil)
		return model.FormModel{}, false
	}
	return f, true
}

func (s *Server) listForms(w http.ResponseWriter, r *http.Request) {
	locale := intl.LocaleFrom(r.Context())
	out := make([]FormSummary, 0)
	for _, f := range s.forms.List() {
		f = intl.LocalizeForm(f, locale, s.bundle, nil)
		out = append(out, FormSummary{ID: f.ID, Title: f.Title})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getForm(w http.ResponseWriter, r *http.Request) {
	f, ok := s.lookupForm(w, r)
	if !ok {
		return
	}
	localized := intl.LocalizeForm(f, intl.LocaleFrom(r.Context()), s.bundle, nil)
	if isHTMX(r) {
		s.writeForm(w, r, http.StatusOK, f, document.New(f))
		return
	}
	writeJSON(w, http.StatusOK, FormView{
		Form:     localized,
		Bindings: s.widgets.Bindings(f),
		Document: document.New(f),
	})
}

func (s *Server) validateForm(w http.ResponseWriter, r *http.Request) {
	f, ok := s.lookupForm(w, r)
	if !ok {
		return
	}
	doc, err := readDocument(r, f)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error(), nil)
		return
	}

	toasts := &notify.Collector{}
	result := s.engine.Validate(doc,
		form.WithLocale(intl.LocaleFrom(r.Context())),
		form.WithRequestNotifier(toasts),
	)
	s.metrics.Validation(f.ID, result.Valid)
	s.flushToasts(w, r, toasts)

	status := http.StatusOK
	if !result.Valid {
		status = http.StatusUnprocessableEntity
	}
	if isHTMX(r) {
		s.writeForm(w, r, status, f, doc, formview.WithErrors(result.Failed()))
		return
	}
	writeJSON(w, status, result)
}

func (s *Server) submitForm(w http.ResponseWriter, r *http.Request) {
	f, ok := s.lookupForm(w, r)
	if !ok {
		return
	}
	doc, err := readDocument(r, f)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error(), nil)
		return
	}
	ctx := r.Context()
	locale := intl.LocaleFrom(ctx)
	toasts := &notify.Collector{}

	result := s.engine.Validate(doc, form.WithLocale(locale), form.WithRequestNotifier(toasts))
	s.metrics.Validation(f.ID, result.Valid)
	personID := strings.TrimSpace(r.URL.Query().Get("person_id"))
	if !result.Valid {
		s.flushToasts(w, r, toasts)
		if isHTMX(r) {
			s.writeForm(w, r, http.StatusUnprocessableEntity, f, doc,
				formview.WithErrors(result.Failed()), formview.WithPersonID(personID))
			return
		}
		writeJSON(w, http.StatusUnprocessableEntity, SubmitResult{Errors: result.Failed()})
		return
	}

	payload := marshal.New(f, s.cloner(toasts)).Payload(doc, personID)

	var response map[string]any
	err = s.backend.Submit(ctx, f.SubmitEndpoint, payload, &response)
	s.metrics.Submission(f.ID, err)
	if err != nil {
		s.submitFailed(w, r, f, doc, toasts, err)
		return
	}

	toasts.Notify(notify.Success(
		s.bundle.T(locale, "Toast.SubmitSuccessHeading"),
		s.bundle.T(locale, "Toast.SubmitSuccessText"),
	))
	s.flushToasts(w, r, toasts)
	if isHTMX(r) {
		s.writeForm(w, r, http.StatusOK, f, doc, formview.WithPersonID(personID))
		return
	}
	writeJSON(w, http.StatusOK, SubmitResult{Valid: true, Payload: payload, Response: response})
}

func (s *Server) submitFailed(w http.ResponseWriter, r *http.Request, f model.FormModel, doc *document.Document, toasts *notify.Collector, err error) {
	if be, ok := backend.AsError(err); ok && be.IsValidation() {
		locale := intl.LocaleFrom(r.Context())
		mapping := form.MapServerErrors(doc, be.Fields)
		toasts.Notify(notify.Error(
			s.bundle.T(locale, "Toast.InvalidHeading"),
			s.bundle.T(locale, "Toast.InvalidText"),
		))
		s.flushToasts(w, r, toasts)
		if isHTMX(r) {
			s.writeForm(w, r, http.StatusUnprocessableEntity, f, doc,
				formview.WithErrors(mapping.Fields), formview.WithFormErrors(mapping.Form),
				formview.WithPersonID(r.URL.Query().Get("person_id")))
			return
		}
		writeJSON(w, http.StatusUnprocessableEntity, SubmitResult{
			Errors:     mapping.Fields,
			FormErrors: mapping.Form,
		})
		return
	}

	s.log(r.Context()).WithError(err).WithField("form", f.ID).Error("server: submission failed")
	s.backendFailed(w, r, toasts, err)
}

func (s *Server) getRecord(w http.ResponseWriter, r *http.Request) {
	f, ok := s.lookupForm(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	ctx := r.Context()
	toasts := &notify.Collector{}

	record, err := s.backend.Record(ctx, f.RecordEndpoint, id)
	if err != nil {
		s.log(ctx).WithError(err).WithFields(logrus.Fields{"form": f.ID, "record": id}).Error("server: record fetch failed")
		s.backendFailed(w, r, toasts, err)
		return
	}

	doc := document.New(f)
	if err := marshal.New(f, s.cloner(toasts)).Populate(ctx, doc, record); err != nil {
		s.log(ctx).WithError(err).WithField("form", f.ID).Error("server: populate failed")
		s.backendFailed(w, r, toasts, err)
		return
	}
	s.flushToasts(w, r, toasts)
	if isHTMX(r) {
		s.writeForm(w, r, http.StatusOK, f, doc)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) addRow(w http.ResponseWriter, r *http.Request) {
	f, ok := s.lookupForm(w, r)
	if !ok {
		return
	}
	sectionID := mux.Vars(r)["section"]
	doc, err := readDocument(r, f)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error(), nil)
		return
	}
	toasts := &notify.Collector{}

	added, err := s.cloner(toasts).Add(r.Context(), doc, sectionID)
	s.metrics.RowChange(f.ID, "add", err)
	if errors.Is(err, document.ErrUnknownSection) {
		writeError(w, http.StatusNotFound, CodeNotFound, err.Error(), map[string]any{"section": sectionID})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, CodeInternal, err.Error(), nil)
		return
	}
	s.flushToasts(w, r, toasts)
	if isHTMX(r) {
		s.writeSection(w, r, f, doc, sectionID)
		return
	}
	writeJSON(w, http.StatusOK, RowResult{
		Section: sectionID,
		Row:     &added.Row,
		Pickers: added.Pickers,
		Rows:    doc.Rows(sectionID),
	})
}

func (s *Server) deleteRow(w http.ResponseWriter, r *http.Request) {
	f, ok := s.lookupForm(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	sectionID, rowID := vars["section"], vars["row"]
	doc, err := readDocument(r, f)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error(), nil)
		return
	}
	toasts := &notify.Collector{}

	err = s.cloner(toasts).Delete(doc, sectionID, rowID)
	s.metrics.RowChange(f.ID, "delete", err)
	s.flushToasts(w, r, toasts)
	switch {
	case errors.Is(err, rows.ErrLastRow):
		writeError(w, http.StatusConflict, CodeLastRow, err.Error(), map[string]any{
			"section": sectionID,
			"rows":    doc.Rows(sectionID),
		})
	case errors.Is(err, document.ErrUnknownSection), errors.Is(err, document.ErrUnknownRow):
		writeError(w, http.StatusNotFound, CodeNotFound, err.Error(), map[string]any{"section": sectionID, "row": rowID})
	case err != nil:
		writeError(w, http.StatusInternalServerError, CodeInternal, err.Error(), nil)
	case isHTMX(r):
		s.writeSection(w, r, f, doc, sectionID)
	default:
		writeJSON(w, http.StatusOK, RowResult{Section: sectionID, Rows: doc.Rows(sectionID)})
	}
}

// writeForm renders the localized form as HTML with the document's state.
func (s *Server) writeForm(w http.ResponseWriter, r *http.Request, status int, f model.FormModel, doc *document.Document, opts ...formview.RenderOption) {
	locale := intl.LocaleFrom(r.Context())
	localized := intl.LocalizeForm(f, locale, s.bundle, nil)
	opts = append([]formview.RenderOption{formview.WithLabels(s.formLabels(locale))}, opts...)
	html, err := s.formView.Form(localized, doc, opts...)
	if err != nil {
		s.log(r.Context()).WithError(err).WithField("form", f.ID).Error("server: render form")
		writeError(w, http.StatusInternalServerError, CodeInternal, err.Error(), nil)
		return
	}
	writeHTML(w, status, html)
}

// writeSection renders one repeatable section after a row change.
func (s *Server) writeSection(w http.ResponseWriter, r *http.Request, f model.FormModel, doc *document.Document, sectionID string) {
	locale := intl.LocaleFrom(r.Context())
	localized := intl.LocalizeForm(f, locale, s.bundle, nil)
	html, err := s.formView.Section(localized, doc, sectionID, formview.WithLabels(s.formLabels(locale)))
	if err != nil {
		s.log(r.Context()).WithError(err).WithField("form", f.ID).Error("server: render section")
		writeError(w, http.StatusInternalServerError, CodeInternal, err.Error(), nil)
		return
	}
	writeHTML(w, http.StatusOK, html)
}

func (s *Server) formLabels(locale string) formview.Labels {
	return formview.Labels{
		Submit:    s.bundle.T(locale, "Actions.Submit"),
		Validate:  s.bundle.T(locale, "Actions.Validate"),
		DeleteRow: s.bundle.T(locale, "Actions.DeleteRow"),
	}
}

// cloner builds a per-request cloner whose toasts land in the collector.
func (s *Server) cloner(toasts notify.Notifier) *rows.Cloner {
	return rows.NewCloner(
		rows.WithIDs(s.rowIDs),
		rows.WithCatalog(s.catalog),
		rows.WithNotifier(toasts),
		rows.WithLogger(s.logger),
	)
}

func (s *Server) backendFailed(w http.ResponseWriter, r *http.Request, toasts *notify.Collector, err error) {
	locale := intl.LocaleFrom(r.Context())
	toasts.Notify(notify.Error(
		s.bundle.T(locale, "Toast.ServerErrorHeading"),
		s.bundle.T(locale, "Toast.ServerErrorText"),
	))
	s.flushToasts(w, r, toasts)
	writeError(w, http.StatusBadGateway, CodeBackend, err.Error(), nil)
}
