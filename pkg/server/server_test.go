package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-crmpanel/pkg/backend"
	"github.com/goliatone/go-crmpanel/pkg/catalog"
	"github.com/goliatone/go-crmpanel/pkg/config"
	"github.com/goliatone/go-crmpanel/pkg/notify"
	"github.com/goliatone/go-crmpanel/pkg/server"
	"github.com/goliatone/go-crmpanel/pkg/ui"
)

type fakeBackend struct {
	mu        sync.Mutex
	submitted []string
	submitErr error
	record    map[string]any
	pages     map[string]string
}

func (f *fakeBackend) Record(_ context.Context, endpoint, id string) (map[string]any, error) {
	if f.record == nil {
		return nil, errors.New("backend: down")
	}
	return f.record, nil
}

func (f *fakeBackend) Submit(_ context.Context, endpoint string, payload any, out any) error {
	if f.submitErr != nil {
		return f.submitErr
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.submitted = append(f.submitted, string(raw))
	f.mu.Unlock()
	if resp, ok := out.(*map[string]any); ok {
		*resp = map[string]any{"id": "17"}
	}
	return nil
}

func (f *fakeBackend) Fetch(_ context.Context, link string) ([]byte, error) {
	if strings.Contains(link, "://") {
		return nil, fmt.Errorf("%w: %q", backend.ErrForeignLink, link)
	}
	page, ok := f.pages[link]
	if !ok {
		return nil, &backend.Error{Method: http.MethodGet, URL: link, Status: http.StatusNotFound}
	}
	return []byte(page), nil
}

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (s *seqIDs) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return "900" + string(rune('0'+s.n))
}

type harness struct {
	t       *testing.T
	handler http.Handler
	backend *fakeBackend
	cookies []*http.Cookie
	status  int
}

func newHarness(t *testing.T, fb *fakeBackend, opts ...server.Option) *harness {
	t.Helper()
	cfg, err := config.FromMap(map[string]string{"LOG_LEVEL": "silent"})
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if fb == nil {
		fb = &fakeBackend{}
	}
	src := catalog.SourceFunc(func(_ context.Context, term string) ([]catalog.Option, error) {
		return []catalog.Option{{ID: "1", Title: term + "-one"}, {ID: "2", Title: term + "-two"}}, nil
	})
	base := []server.Option{
		server.WithBackend(fb),
		server.WithCatalog(src),
		server.WithRowIDs(&seqIDs{}),
	}
	srv, err := server.New(cfg, append(base, opts...)...)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return &harness{t: t, handler: srv.Router(), backend: fb}
}

func (h *harness) do(method, target, contentType, body string, headers ...string) *httptest.ResponseRecorder {
	h.t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	for _, c := range h.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == "sid" {
			h.cookies = []*http.Cookie{c}
		}
	}
	return rec
}

func (h *harness) form(method, target string, values url.Values) *httptest.ResponseRecorder {
	return h.do(method, target, "application/x-www-form-urlencoded", values.Encode())
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func toasts(t *testing.T, rec *httptest.ResponseRecorder) []notify.Toast {
	t.Helper()
	header := rec.Header().Get(notify.TriggerHeader)
	if header == "" {
		return nil
	}
	var payload map[string][]notify.Toast
	if err := json.Unmarshal([]byte(header), &payload); err != nil {
		t.Fatalf("decode trigger: %v", err)
	}
	return payload["toast"]
}

func validClient() url.Values {
	return url.Values{
		"national-code":      {"۰۰۱۲۳۴۵۶۷۸"},
		"firstname":          {"Ali"},
		"lastname":           {"Rezaei"},
		"birthdate":          {"۱۳۷۰/۰۱/۰۲"},
		"gender":             {"M"},
		"phone-number-1":     {"09120000000"},
		"service-location-1": {"Tehran"},
	}
}

func TestHealthIssuesSessionAndRequestID(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected request id header")
	}
	if len(h.cookies) != 1 {
		t.Fatalf("expected a session cookie")
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc")
	again := httptest.NewRecorder()
	h.handler.ServeHTTP(again, req)
	if got := again.Header().Get("X-Request-ID"); got != "abc" {
		t.Fatalf("request id not propagated, got %q", got)
	}
}

func TestListForms(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(http.MethodGet, "/panel/forms", "", "")
	forms := decode[[]server.FormSummary](t, rec)
	var ids []string
	for _, f := range forms {
		ids = append(ids, f.ID)
	}
	if diff := cmp.Diff([]string{"client", "patient", "personnel"}, ids); diff != "" {
		t.Fatalf("forms mismatch (-want +got):\n%s", diff)
	}
}

func TestGetFormLocalizesAndBindsWidgets(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(http.MethodGet, "/panel/forms/personnel", "", "", "Accept-Language", "en-US,en;q=0.9")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Language"); got != "en" {
		t.Fatalf("expected en, got %q", got)
	}
	var view struct {
		Form struct {
			Fields []struct {
				ID    string `json:"id"`
				Label string `json:"label"`
			} `json:"fields"`
		} `json:"form"`
		Bindings []struct {
			FieldID string `json:"fieldId"`
			Widget  string `json:"widget"`
		} `json:"bindings"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(view.Form.Fields) == 0 || view.Form.Fields[0].ID != "national-code" {
		t.Fatalf("unexpected fields %+v", view.Form.Fields)
	}
	if view.Form.Fields[0].Label == "کد ملی" {
		t.Fatalf("expected english label")
	}
	if len(view.Bindings) == 0 {
		t.Fatalf("expected widget bindings")
	}

	if rec := h.do(http.MethodGet, "/panel/forms/orders", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown form, got %d", rec.Code)
	}
}

func TestValidateReportsFieldErrorsAndToast(t *testing.T) {
	h := newHarness(t, nil)
	values := validClient()
	values.Del("national-code")

	rec := h.form(http.MethodPost, "/panel/forms/client/validate", values)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	result := decode[struct {
		Valid  bool                `json:"valid"`
		Errors map[string][]string `json:"errors"`
	}](t, rec)
	if result.Valid {
		t.Fatalf("expected invalid result")
	}
	if len(result.Errors["national-code"]) == 0 {
		t.Fatalf("expected national-code error, got %v", result.Errors)
	}
	if len(result.Errors["firstname"]) != 0 {
		t.Fatalf("firstname must pass, got %v", result.Errors["firstname"])
	}
	if got := toasts(t, rec); len(got) != 1 || got[0].Icon != notify.IconError {
		t.Fatalf("expected one error toast, got %+v", got)
	}

	rec = h.form(http.MethodPost, "/panel/forms/client/validate", validClient())
	if rec.Code != http.StatusOK {
		t.Fatalf("expected valid document, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSubmitForwardsMarshalledPayload(t *testing.T) {
	fb := &fakeBackend{}
	h := newHarness(t, fb)

	rec := h.form(http.MethodPost, "/panel/forms/client/submit?person_id=42", validClient())
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if len(fb.submitted) != 1 {
		t.Fatalf("expected one submission, got %d", len(fb.submitted))
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(fb.submitted[0]), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["national_code"] != "0012345678" || payload["gender"] != "M" || payload["person_id"] != "42" {
		t.Fatalf("unexpected payload %v", payload)
	}
	if diff := cmp.Diff([]any{"CLIENT"}, payload["types"]); diff != "" {
		t.Fatalf("types mismatch (-want +got):\n%s", diff)
	}
	if got := toasts(t, rec); len(got) != 1 || got[0].Icon != notify.IconSuccess {
		t.Fatalf("expected success toast, got %+v", got)
	}
}

func TestSubmitInvalidNeverReachesBackend(t *testing.T) {
	fb := &fakeBackend{}
	h := newHarness(t, fb)
	values := validClient()
	values.Set("birthdate", "2020-01-01")

	rec := h.form(http.MethodPost, "/panel/forms/client/submit", values)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status %d", rec.Code)
	}
	if len(fb.submitted) != 0 {
		t.Fatalf("submission must be blocked")
	}
	result := decode[server.SubmitResult](t, rec)
	if diff := cmp.Diff([]string{"birthdate"}, keys(result.Errors)); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmitBackendFailures(t *testing.T) {
	fb := &fakeBackend{submitErr: &backend.Error{
		Method: http.MethodPost,
		Status: http.StatusBadRequest,
		Fields: map[string][]string{"national_code": {"duplicate"}, "non_field_errors": {"rejected"}},
	}}
	h := newHarness(t, fb)

	rec := h.form(http.MethodPost, "/panel/forms/client/submit", validClient())
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	result := decode[server.SubmitResult](t, rec)
	if diff := cmp.Diff([]string{"duplicate"}, result.Errors["national-code"]); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"rejected"}, result.FormErrors); diff != "" {
		t.Fatalf("form errors mismatch (-want +got):\n%s", diff)
	}

	fb.submitErr = errors.New("dial tcp: refused")
	rec = h.form(http.MethodPost, "/panel/forms/client/submit", validClient())
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status %d", rec.Code)
	}
	envelope := decode[server.ErrorResponse](t, rec)
	if envelope.Code != server.CodeBackend {
		t.Fatalf("unexpected code %q", envelope.Code)
	}
	if got := toasts(t, rec); len(got) != 1 || got[0].Icon != notify.IconError {
		t.Fatalf("expected error toast, got %+v", got)
	}
}

func TestGetRecordPopulatesDocument(t *testing.T) {
	fb := &fakeBackend{record: map[string]any{
		"first_name":    "Sara",
		"gender":        "F",
		"phone_numbers": []any{map[string]any{"number": "0912"}, map[string]any{"number": "0935"}},
	}}
	h := newHarness(t, fb)

	rec := h.do(http.MethodGet, "/panel/forms/client/records/7", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var snap struct {
		Elements []struct {
			ID      string   `json:"id"`
			Values  []string `json:"values"`
			Checked bool     `json:"checked"`
		} `json:"elements"`
		Sections []struct {
			ID   string            `json:"id"`
			Rows []json.RawMessage `json:"rows"`
		} `json:"sections"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	found := map[string]bool{}
	for _, el := range snap.Elements {
		if el.ID == "firstname" && len(el.Values) == 1 && el.Values[0] == "Sara" {
			found["firstname"] = true
		}
		if el.ID == "female" && el.Checked {
			found["female"] = true
		}
	}
	if !found["firstname"] || !found["female"] {
		t.Fatalf("record not populated: %s", rec.Body.String())
	}
	for _, section := range snap.Sections {
		if section.ID == "phones" && len(section.Rows) != 2 {
			t.Fatalf("expected two phone rows, got %d", len(section.Rows))
		}
	}

	fb.record = nil
	if rec := h.do(http.MethodGet, "/panel/forms/client/records/7", "", ""); rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestDeleteRowRefusesLastRow(t *testing.T) {
	h := newHarness(t, nil)
	values := url.Values{"phone-number-1": {"0912"}}

	rec := h.form(http.MethodDelete, "/panel/forms/client/sections/phones/rows/phones-1", values)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if envelope := decode[server.ErrorResponse](t, rec); envelope.Code != server.CodeLastRow {
		t.Fatalf("unexpected code %q", envelope.Code)
	}
	if got := toasts(t, rec); len(got) != 1 || got[0].Heading != "امکان حذف وجود ندارد" {
		t.Fatalf("expected refusal toast, got %+v", got)
	}

	values.Set("phone-number-2", "0935")
	rec = h.form(http.MethodDelete, "/panel/forms/client/sections/phones/rows/phones-1", values)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	result := decode[server.RowResult](t, rec)
	if len(result.Rows) != 1 || result.Rows[0].ID != "phones-2" {
		t.Fatalf("expected only phones-2 left, got %+v", result.Rows)
	}

	if rec := h.form(http.MethodDelete, "/panel/forms/client/sections/phones/rows/phones-9", values); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown row, got %d", rec.Code)
	}
}

func TestAddRowBindsPickerOptions(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.form(http.MethodPost, "/panel/forms/personnel/sections/skills/rows", url.Values{})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	result := decode[server.RowResult](t, rec)
	if result.Row == nil || result.Row.ID != "skills-9001" {
		t.Fatalf("unexpected row %+v", result.Row)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("expected the default row plus the new one, got %d", len(result.Rows))
	}
	if len(result.Pickers) != 1 || result.Pickers[0].Term != catalog.TermSkill || len(result.Pickers[0].Options) != 2 {
		t.Fatalf("unexpected pickers %+v", result.Pickers)
	}

	if rec := h.form(http.MethodPost, "/panel/forms/personnel/sections/pets/rows", url.Values{}); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown section, got %d", rec.Code)
	}
}

func (h *harness) htmx(method, target string, values url.Values, headers ...string) *goquery.Document {
	h.t.Helper()
	rec := h.do(method, target, "application/x-www-form-urlencoded", values.Encode(), append([]string{"HX-Request", "true"}, headers...)...)
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		h.t.Fatalf("%s %s: expected html, got %q: %s", method, target, ct, rec.Body.String())
	}
	h.status = rec.Code
	page, err := goquery.NewDocumentFromReader(rec.Body)
	if err != nil {
		h.t.Fatalf("parse html: %v", err)
	}
	return page
}

func TestFormRoutesRenderHTMLForHTMX(t *testing.T) {
	fb := &fakeBackend{record: map[string]any{"first_name": "Sara", "gender": "F"}}
	h := newHarness(t, fb)

	page := h.htmx(http.MethodGet, "/panel/forms/client", nil, "Accept-Language", "en")
	if h.status != http.StatusOK || page.Find("form#form-client").Length() != 1 {
		t.Fatalf("status %d, missing form", h.status)
	}
	if page.Find("#section-phones .form-row-container-hidden").Length() != 1 {
		t.Fatal("expected a hidden phone template row")
	}
	if got := strings.TrimSpace(page.Find("button[type=submit]").Text()); got != "Save" {
		t.Fatalf("submit label = %q", got)
	}

	values := validClient()
	values.Del("national-code")
	page = h.htmx(http.MethodPost, "/panel/forms/client/validate", values)
	if h.status != http.StatusUnprocessableEntity {
		t.Fatalf("validate status %d", h.status)
	}
	slot := page.Find("#national-code").Closest(".form-input-container").Find(".form-input-error")
	if strings.TrimSpace(slot.Text()) == "" {
		t.Fatal("expected national-code error in its slot")
	}
	if v, _ := page.Find("#firstname").Attr("value"); v != "Ali" {
		t.Fatalf("posted value lost: %q", v)
	}

	page = h.htmx(http.MethodPost, "/panel/forms/client/sections/phones/rows", url.Values{"phone-number-1": {"0912"}})
	if h.status != http.StatusOK || page.Find("form").Length() != 0 {
		t.Fatalf("expected a section fragment, status %d", h.status)
	}
	if got := page.Find("#section-phones > .form-row-container").Length(); got != 2 {
		t.Fatalf("expected 2 phone rows after add, got %d", got)
	}

	page = h.htmx(http.MethodGet, "/panel/forms/client/records/7", nil)
	if v, _ := page.Find("#firstname").Attr("value"); h.status != http.StatusOK || v != "Sara" {
		t.Fatalf("record not rendered, status %d value %q", h.status, v)
	}
	if _, checked := page.Find("#female").Attr("checked"); !checked {
		t.Fatal("record gender not checked")
	}
}

func previewPage(title, link string) string {
	row := `{"name": {"title": "Name", "value": "` + title + `"}`
	if link != "" {
		row += `, "link": "` + link + `"`
	}
	row += `}`
	return `{"title": "` + title + `", "table": {"name": {"title": "Name", "value": "` + title + `"}},` +
		`"data_tables": [{"title": "Related", "data": [` + row + `]}]}`
}

func TestPreviewDrillDownAndBack(t *testing.T) {
	fb := &fakeBackend{pages: map[string]string{
		"/clients/1/preview/": previewPage("Ali", "/calls/5/preview/"),
		"/calls/5/preview/":   previewPage("Call", ""),
	}}
	h := newHarness(t, fb)

	rec := h.do(http.MethodGet, "/panel/preview?link="+url.QueryEscape("/clients/1/preview/"), "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("open status %d: %s", rec.Code, rec.Body.String())
	}
	view := decode[struct {
		HTML        string   `json:"html"`
		GridIDs     []string `json:"grid_ids"`
		BackVisible bool     `json:"back_visible"`
		Current     string   `json:"current"`
	}](t, rec)
	if view.BackVisible || view.Current != "/clients/1/preview/" {
		t.Fatalf("unexpected open view %+v", view)
	}
	if diff := cmp.Diff([]string{"dt-0"}, view.GridIDs); diff != "" {
		t.Fatalf("grid ids mismatch (-want +got):\n%s", diff)
	}

	rec = h.form(http.MethodPost, "/panel/preview/drill", url.Values{"link": {"/calls/5/preview/"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("drill status %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(server.BackVisibleHeader) != "true" {
		t.Fatalf("back control must be visible after a drill")
	}

	rec = h.do(http.MethodPost, "/panel/preview/back", "", "", "HX-Request", "true")
	if rec.Code != http.StatusOK {
		t.Fatalf("back status %d", rec.Code)
	}
	if rec.Header().Get(server.BackVisibleHeader) != "false" {
		t.Fatalf("back control must hide once the stack is empty")
	}
	doc, err := goquery.NewDocumentFromReader(rec.Body)
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	if doc.Find("table#dt-0").Length() != 1 {
		t.Fatalf("expected the first page grid after going back")
	}

	if rec := h.do(http.MethodPost, "/panel/preview/back", "", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("back on empty stack must be a no-op, got %d", rec.Code)
	}
	if rec := h.form(http.MethodPost, "/panel/preview/drill", url.Values{"link": {""}}); rec.Code != http.StatusNoContent {
		t.Fatalf("drill without link must be a no-op, got %d", rec.Code)
	}
	if rec := h.do(http.MethodGet, "/panel/preview?link=/missing/", "", ""); rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 for a failed fetch, got %d", rec.Code)
	}
	foreign := url.Values{"link": {"http://169.254.169.254/latest/meta-data"}}
	if rec := h.form(http.MethodPost, "/panel/preview/drill", foreign); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a link outside the backend, got %d", rec.Code)
	}
}

func TestSidebarTogglePersists(t *testing.T) {
	h := newHarness(t, nil)
	type sidebar struct {
		Expanded bool   `json:"expanded"`
		State    string `json:"state"`
	}

	if got := decode[sidebar](t, h.do(http.MethodGet, "/panel/sidebar", "", "")); !got.Expanded {
		t.Fatalf("sidebar must default to expanded")
	}
	if got := decode[sidebar](t, h.do(http.MethodPost, "/panel/sidebar/toggle", "", "")); got.State != "closed" {
		t.Fatalf("expected closed after toggle, got %+v", got)
	}
	rec := h.do(http.MethodPost, "/panel/sidebar/follow", "", "")
	if got := decode[sidebar](t, rec); !got.Expanded {
		t.Fatalf("following a menu item flips the view")
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == ui.MenuStateKey {
			t.Fatalf("following a menu item must not rewrite the %s cookie, got %q", c.Name, c.Value)
		}
	}
	if got := decode[sidebar](t, h.do(http.MethodGet, "/panel/sidebar", "", "")); got.State != "closed" {
		t.Fatalf("following a menu item must not persist, got %+v", got)
	}
}

func TestTabsActivateAndRemember(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(http.MethodGet, "/panel/tabs?section=client&active=2", "", "")
	view := decode[server.TabsView](t, rec)
	if view.Active != 2 || !view.Changed {
		t.Fatalf("unexpected view %+v", view)
	}
	if view.Tabs[2].ButtonClass != "open-tab bg-white" || view.Tabs[0].ContainerClass != "hidden" {
		t.Fatalf("unexpected classes %+v", view.Tabs)
	}

	view = decode[server.TabsView](t, h.do(http.MethodGet, "/panel/tabs?section=client&active=tab-button-2", "", ""))
	if view.Active != 2 || view.Changed {
		t.Fatalf("re-activating the active tab must be a no-op, got %+v", view)
	}
	view = decode[server.TabsView](t, h.do(http.MethodGet, "/panel/tabs?section=client", "", ""))
	if view.Active != 2 {
		t.Fatalf("active tab not remembered, got %d", view.Active)
	}

	if rec := h.do(http.MethodGet, "/panel/tabs?section=client&active=9", "", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out of range tab, got %d", rec.Code)
	}
	if rec := h.do(http.MethodGet, "/panel/tabs?section=orders", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown tab set, got %d", rec.Code)
	}
}

func TestCatalogLookup(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(http.MethodGet, "/panel/catalog?q=role", "", "")
	got := decode[[]catalog.PickerItem](t, rec)
	want := []catalog.PickerItem{{ID: "1", Text: "ROLE-one"}, {ID: "2", Text: "ROLE-two"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
	if rec := h.do(http.MethodGet, "/panel/catalog", "", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without a term, got %d", rec.Code)
	}
}

func TestOpenAPIMetricsAndNotFound(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(http.MethodGet, "/openapi.json", "", "")
	doc := decode[map[string]any](t, rec)
	paths, _ := doc["paths"].(map[string]any)
	if _, ok := paths["/panel/preview/drill"]; !ok {
		t.Fatalf("openapi document misses the drill route")
	}

	h.do(http.MethodGet, "/health", "", "")
	rec = h.do(http.MethodGet, "/metrics", "", "")
	if !strings.Contains(rec.Body.String(), `crmpanel_http_requests_total{method="GET",route="/health",status="200"}`) {
		t.Fatalf("request metric missing:\n%s", rec.Body.String())
	}

	rec = h.do(http.MethodGet, "/nowhere", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d", rec.Code)
	}
	if envelope := decode[server.ErrorResponse](t, rec); envelope.Code != server.CodeNotFound {
		t.Fatalf("unexpected envelope %+v", envelope)
	}
}

func keys(m map[string][]string) []string {
	var out []string
	for k, v := range m {
		if len(v) > 0 {
			out = append(out, k)
		}
	}
	return out
}
