package document_test

import (
	"encoding/json"
	"errors"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-crmpanel/pkg/document"
	"github.com/goliatone/go-crmpanel/pkg/model"
)

func testForm() model.FormModel {
	return model.FormModel{
		ID: "personnel",
		Fields: []model.Field{
			{ID: "firstname", Kind: model.KindText},
			{ID: "gender", Kind: model.KindRadio, Options: []model.Option{
				{ID: "male", Data: "M"},
				{ID: "female", Data: "F"},
			}},
			{ID: "personnel-role", Kind: model.KindMultiSelect},
		},
		Sections: []model.Section{
			{ID: "phones", Template: []model.Field{
				{ID: "phone-number-0", Kind: model.KindText},
				{ID: "phone-number-note-0", Kind: model.KindText},
			}},
			{ID: "skills", Template: []model.Field{
				{ID: "skill-0", Kind: model.KindSelect},
				{ID: "skill-pts-0", Kind: model.KindText},
			}},
		},
	}
}

func TestNewBuildsTemplateAndFloorRows(t *testing.T) {
	doc := document.New(testForm())

	phones, ok := doc.Section("phones")
	if !ok {
		t.Fatalf("expected phones section")
	}
	if !phones.Template.Hidden {
		t.Fatalf("expected template row to be hidden")
	}
	if diff := cmp.Diff([]string{"phone-number-0", "phone-number-note-0"}, phones.Template.Fields); diff != "" {
		t.Fatalf("template fields mismatch (-want +got):\n%s", diff)
	}
	if len(phones.Rows) != 1 {
		t.Fatalf("expected one visible row, got %d", len(phones.Rows))
	}
	if diff := cmp.Diff([]string{"phone-number-1", "phone-number-note-1"}, phones.Rows[0].Fields); diff != "" {
		t.Fatalf("row fields mismatch (-want +got):\n%s", diff)
	}

	for _, id := range doc.VisibleIDs() {
		if model.IsTemplateID(id) {
			t.Fatalf("template element %q reported as visible", id)
		}
	}
}

func TestCheckClearsSiblings(t *testing.T) {
	doc := document.New(testForm())
	if err := doc.Check("male"); err != nil {
		t.Fatalf("check male: %v", err)
	}
	if err := doc.CheckData("gender", "F"); err != nil {
		t.Fatalf("check data: %v", err)
	}
	if doc.Checked("male") || !doc.Checked("female") {
		t.Fatalf("expected only female to be checked")
	}
	if err := doc.Check("firstname"); err == nil {
		t.Fatalf("expected non-option check to fail")
	}
}

func TestAppendAndRemoveRows(t *testing.T) {
	doc := document.New(testForm())

	row, err := doc.AppendRow("phones", "1700000000001")
	if err != nil {
		t.Fatalf("append row: %v", err)
	}
	if row.ID != "phones-1700000000001" {
		t.Fatalf("unexpected row id %q", row.ID)
	}
	if err := doc.Set("phone-number-1700000000001", "0912"); err != nil {
		t.Fatalf("set cloned value: %v", err)
	}
	if _, err := doc.AppendRow("phones", "1700000000001"); err == nil {
		t.Fatalf("expected duplicate suffix to fail")
	}

	if got := doc.Collect("phone-number"); len(got) != 2 || got[1] != "0912" {
		t.Fatalf("unexpected collected values %v", got)
	}

	if err := doc.RemoveRow("phones", "phones-1"); err != nil {
		t.Fatalf("remove row: %v", err)
	}
	if doc.Has("phone-number-1") {
		t.Fatalf("expected removed row elements to be dropped")
	}
	if err := doc.RemoveRow("phones", "phones-1"); !errors.Is(err, document.ErrUnknownRow) {
		t.Fatalf("expected ErrUnknownRow, got %v", err)
	}
	if _, err := doc.AppendRow("nope", "1"); !errors.Is(err, document.ErrUnknownSection) {
		t.Fatalf("expected ErrUnknownSection, got %v", err)
	}
}

func TestFromValuesDiscoversClonedRows(t *testing.T) {
	values := url.Values{
		"firstname":                       {"Ali"},
		"gender":                          {"M"},
		"personnel-role":                  {"1", "3"},
		"phone-number-0":                  {"ignored template"},
		"phone-number-1700000000200":      {"0913"},
		"phone-number-1700000000100":      {"0912"},
		"phone-number-note-1700000000100": {"home"},
		"skill-1700000000300":             {"7"},
		"skill-pts-1700000000300":         {"12"},
	}

	doc, err := document.FromValues(testForm(), values)
	if err != nil {
		t.Fatalf("from values: %v", err)
	}

	if diff := cmp.Diff([]string{"0912", "0913"}, doc.Collect("phone-number")); diff != "" {
		t.Fatalf("phone numbers mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"home", ""}, doc.Collect("phone-number-note")); diff != "" {
		t.Fatalf("notes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"12"}, doc.Collect("skill-pts")); diff != "" {
		t.Fatalf("skill pts mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"M"}, doc.Collect("gender")); diff != "" {
		t.Fatalf("gender mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"1", "3"}, doc.Collect("personnel-role")); diff != "" {
		t.Fatalf("roles mismatch (-want +got):\n%s", diff)
	}
	if got := doc.Value("phone-number-0"); got != "" {
		t.Fatalf("expected template value to be ignored, got %q", got)
	}
}

func TestFromJSONAndMarshal(t *testing.T) {
	raw := []byte(`{"firstname":"Sara","female":true,"phone-number-5":"0935","personnel-role":[2]}`)
	doc, err := document.FromJSON(testForm(), raw)
	if err != nil {
		t.Fatalf("from json: %v", err)
	}
	if !doc.Checked("female") {
		t.Fatalf("expected female option to be checked")
	}
	if diff := cmp.Diff([]string{"2"}, doc.Values("personnel-role")); diff != "" {
		t.Fatalf("roles mismatch (-want +got):\n%s", diff)
	}

	encoded, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded struct {
		Form     string `json:"form"`
		Sections []struct {
			ID   string `json:"id"`
			Rows []struct {
				Fields []string `json:"fields"`
			} `json:"rows"`
		} `json:"sections"`
	}
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Form != "personnel" || len(decoded.Sections) != 2 {
		t.Fatalf("unexpected snapshot %+v", decoded)
	}
	if diff := cmp.Diff([]string{"phone-number-5", "phone-number-note-5"}, decoded.Sections[0].Rows[0].Fields); diff != "" {
		t.Fatalf("snapshot row mismatch (-want +got):\n%s", diff)
	}

	if _, err := document.FromJSON(testForm(), []byte(`{"firstname":{"a":1}}`)); err == nil {
		t.Fatalf("expected nested object to be rejected")
	}
}

func TestFromJSONKeepsNumberLiterals(t *testing.T) {
	raw := []byte(`{"firstname":1234567890,"phone-number-5":9123456789,"personnel-role":[2,"3",20000000]}`)
	doc, err := document.FromJSON(testForm(), raw)
	if err != nil {
		t.Fatalf("from json: %v", err)
	}
	if got := doc.Value("firstname"); got != "1234567890" {
		t.Fatalf("firstname = %q", got)
	}
	if got := doc.Value("phone-number-5"); got != "9123456789" {
		t.Fatalf("phone = %q", got)
	}
	if diff := cmp.Diff([]string{"2", "3", "20000000"}, doc.Values("personnel-role")); diff != "" {
		t.Fatalf("roles mismatch (-want +got):\n%s", diff)
	}
}
