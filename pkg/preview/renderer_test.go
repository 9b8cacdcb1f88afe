package preview_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	theme "github.com/goliatone/go-theme"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-crmpanel/pkg/preview"
	"github.com/goliatone/go-crmpanel/pkg/testsupport"
)

func newRenderer(t *testing.T, opts ...preview.Option) *preview.Renderer {
	t.Helper()
	r, err := preview.New(opts...)
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	return r
}

func TestRender_SplitsDetailsAndRendersEmptyGrid(t *testing.T) {
	raw := []byte(`{
		"buttons": [],
		"table": {"a": {"title": "Name", "value": "Ali"}, "b": {"title": "Age", "value": 30}},
		"data_tables": [{"title": "Calls", "data": []}]
	}`)

	result, err := newRenderer(t).RenderJSON(raw)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(result.GridIDs) != 0 {
		t.Fatalf("expected no grid ids, got %v", result.GridIDs)
	}

	doc := testsupport.ParseHTML(t, result.HTML)
	columns := doc.Find(`div[data-preview="details"] table`)
	if columns.Length() != 2 {
		t.Fatalf("expected two detail columns, got %d", columns.Length())
	}
	first := columns.Eq(0).Find("tr")
	second := columns.Eq(1).Find("tr")
	if first.Length() != 1 || second.Length() != 1 {
		t.Fatalf("expected 1/1 split, got %d/%d", first.Length(), second.Length())
	}
	if got := testsupport.Texts(first.Find("td")); !cmp.Equal(got, []string{"Name", "Ali"}) {
		t.Fatalf("first column cells: %v", got)
	}
	if got := testsupport.Texts(second.Find("td")); !cmp.Equal(got, []string{"Age", "۳۰"}) {
		t.Fatalf("second column cells: %v", got)
	}
	if !first.HasClass("bg-searchbox") {
		t.Fatal("expected first detail row to be banded")
	}
	if second.HasClass("bg-searchbox") {
		t.Fatal("expected second detail row not to be banded")
	}

	pane := doc.Find(`div[data-preview="grid"]`)
	if pane.Length() != 1 {
		t.Fatalf("expected one grid pane, got %d", pane.Length())
	}
	if pane.Find("table").Length() != 0 {
		t.Fatal("empty grid must not render a table")
	}
	if got := strings.TrimSpace(pane.Find("span.text-failed").Text()); got != "داده یافت نشد" {
		t.Fatalf("unexpected empty text %q", got)
	}
	if doc.Find("script[data-grid-init]").Length() != 0 {
		t.Fatal("no init script expected without grids")
	}
}

func TestRender_GridsGetSequentialIDs(t *testing.T) {
	raw := []byte(`{
		"title": "پرونده",
		"buttons": [{"title": "ویرایش", "link": "/edit/7/", "icon": "<svg viewBox=\"0 0 4 4\"><script>alert(1)</script><path d=\"M0 0\"/></svg>"}],
		"table": {
			"z": {"title": "کد", "value": "123", "link": "/people/123/"},
			"a": {"title": "نام", "value": ""},
			"m": {"title": "شهر", "value": null}
		},
		"data_tables": [
			{"title": "Orders", "data": [
				{"id": 4, "date": {"title": "تاریخ", "value": "1402/01/05"}, "cost": {"title": "مبلغ", "value": 2500}, "link": "/orders/4/"},
				{"date": {"title": "تاریخ", "value": ""}, "cost": {"title": "مبلغ", "value": 10}}
			]},
			{"title": "Calls", "data": []},
			{"title": "Notes", "data": [{"text": {"title": "متن", "value": "ok"}}]}
		]
	}`)

	result, err := newRenderer(t).RenderJSON(raw, preview.WithSelected("/orders/4/"))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if diff := cmp.Diff([]string{"dt-0", "dt-1"}, result.GridIDs); diff != "" {
		t.Fatalf("grid ids mismatch (-want +got):\n%s", diff)
	}

	doc := testsupport.ParseHTML(t, result.HTML)

	button := doc.Find(`div[data-preview="buttons"] a`)
	if href, _ := button.Attr("href"); href != "/edit/7/" {
		t.Fatalf("unexpected button href %q", href)
	}
	if button.Find("script").Length() != 0 || button.Find("path").Length() != 1 {
		t.Fatalf("icon not sanitised: %s", result.HTML)
	}

	columns := doc.Find(`div[data-preview="details"] table`)
	if got := testsupport.Texts(columns.Eq(0).Find("td")); !cmp.Equal(got, []string{"کد", "۱۲۳", "نام", "-"}) {
		t.Fatalf("first column mismatch: %v", got)
	}
	if got := testsupport.Texts(columns.Eq(1).Find("td")); !cmp.Equal(got, []string{"شهر", "-"}) {
		t.Fatalf("second column mismatch: %v", got)
	}
	if href, _ := columns.Eq(0).Find("a").Attr("href"); href != "/people/123/" {
		t.Fatalf("linked value href must keep ascii digits, got %q", href)
	}
	if !columns.Eq(1).Find("tr").HasClass("bg-searchbox") {
		t.Fatal("third detail row (index 2) should be banded")
	}

	orders := doc.Find("table#dt-0")
	if got := testsupport.Texts(orders.Find("th")); !cmp.Equal(got, []string{"تاریخ", "مبلغ"}) {
		t.Fatalf("headers mismatch: %v", got)
	}
	if cls, _ := orders.Attr("data-selected-class"); cls != "selected-row" {
		t.Fatalf("grid must expose the selected class, got %q", cls)
	}
	rows := orders.Find("tbody tr")
	if got := testsupport.Texts(rows.Eq(0).Find("td")); !cmp.Equal(got, []string{"۱۴۰۲/۰۱/۰۵", "۲۵۰۰"}) {
		t.Fatalf("row cells mismatch: %v", got)
	}
	if link, _ := rows.Eq(0).Attr("data-link"); link != "/orders/4/" {
		t.Fatalf("missing data-link, got %q", link)
	}
	if !rows.Eq(0).HasClass("cursor-pointer") || !rows.Eq(0).HasClass("selected-row") {
		t.Fatal("linked selected row should be clickable and selected")
	}
	if _, ok := rows.Eq(1).Attr("data-link"); ok {
		t.Fatal("row without link must not carry data-link")
	}
	if got := testsupport.Texts(rows.Eq(1).Find("td")); !cmp.Equal(got, []string{"-", "۱۰"}) {
		t.Fatalf("second row mismatch: %v", got)
	}
	if doc.Find("table#dt-1").Length() != 1 {
		t.Fatal("expected third grid to take dt-1")
	}

	var init struct {
		IDs     []string       `json:"ids"`
		Options map[string]any `json:"options"`
	}
	script := doc.Find("script[data-grid-init]").Text()
	if err := json.Unmarshal([]byte(script), &init); err != nil {
		t.Fatalf("decode init script: %v", err)
	}
	if !cmp.Equal(init.IDs, result.GridIDs) {
		t.Fatalf("init ids %v != %v", init.IDs, result.GridIDs)
	}
	if init.Options["paging"] != false {
		t.Fatalf("expected inform table options, got %v", init.Options)
	}
}

func TestDecode_RejectsInvalidDocuments(t *testing.T) {
	cases := map[string]string{
		"malformed":      `{"table": `,
		"button no link": `{"buttons": [{"title": "x"}], "table": {}, "data_tables": []}`,
		"grid no title":  `{"buttons": [], "table": {}, "data_tables": [{"data": []}]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := preview.Decode([]byte(raw))
			if !errors.Is(err, preview.ErrInvalidDocument) {
				t.Fatalf("expected ErrInvalidDocument, got %v", err)
			}
		})
	}
}

func TestSplitDetails(t *testing.T) {
	cells := func(n int) []preview.Cell { return make([]preview.Cell, n) }
	for n, want := range map[int][2]int{0: {0, 0}, 1: {1, 0}, 2: {1, 1}, 5: {3, 2}, 6: {3, 3}} {
		first, second := preview.SplitDetails(cells(n))
		if len(first) != want[0] || len(second) != want[1] {
			t.Fatalf("n=%d: got %d/%d, want %v", n, len(first), len(second), want)
		}
	}
}

func TestClassesFromSelection(t *testing.T) {
	selection := &theme.Selection{
		Theme:   "crm",
		Variant: "dark",
		Manifest: &theme.Manifest{
			Name:    "crm",
			Version: "1.0.0",
			Tokens:  map[string]string{preview.TokenBand: "bg-stripe", preview.TokenEmpty: "text-muted"},
			Variants: map[string]theme.Variant{
				"dark": {Tokens: map[string]string{preview.TokenBand: "bg-slate-700"}},
			},
		},
	}

	classes := preview.ClassesFromSelection(selection)
	if classes.Band != "bg-slate-700" {
		t.Fatalf("variant token should win, got %q", classes.Band)
	}
	if classes.Empty != "text-muted" {
		t.Fatalf("manifest token not applied, got %q", classes.Empty)
	}
	if classes.Pane != preview.DefaultClasses().Pane {
		t.Fatalf("unset tokens must keep defaults")
	}

	result, err := newRenderer(t, preview.WithTheme(selection)).RenderJSON([]byte(`{"table": {"a": {"title": "t", "value": "v"}}, "data_tables": [{"title": "x", "data": []}]}`))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	doc := testsupport.ParseHTML(t, result.HTML)
	if doc.Find("tr.bg-slate-700").Length() != 1 || doc.Find("span.text-muted").Length() != 1 {
		t.Fatalf("themed classes missing: %s", result.HTML)
	}
}

func TestSelectTheme(t *testing.T) {
	selection, err := preview.SelectTheme("", "compact")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if selection.Theme != preview.ThemeName || selection.Variant != "compact" {
		t.Fatalf("unexpected selection %+v", selection)
	}
	if got := preview.ClassesFromSelection(selection).Grid; got != "text-black text-xs" {
		t.Fatalf("compact grid class not applied, got %q", got)
	}

	if _, err := preview.SelectTheme("missing", ""); err == nil {
		t.Fatalf("expected unknown theme error")
	}
	if _, err := preview.SelectTheme(preview.ThemeName, "neon"); err == nil {
		t.Fatalf("expected unknown variant error")
	}
}
