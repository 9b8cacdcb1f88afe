package marshal_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-crmpanel/pkg/document"
	"github.com/goliatone/go-crmpanel/pkg/marshal"
	"github.com/goliatone/go-crmpanel/pkg/model"
)

func clientForm() model.FormModel {
	return model.FormModel{
		ID:  "client",
		Tag: "CLIENT",
		Fields: []model.Field{
			{ID: "national-code", Key: "national_code", Kind: model.KindText},
			{ID: "firstname", Key: "first_name", Kind: model.KindText},
			{ID: "birthdate", Key: "birth_date", Kind: model.KindDate},
			{ID: "gender", Key: "gender", Kind: model.KindRadio, Options: []model.Option{
				{ID: "male", Data: "M"}, {ID: "female", Data: "F"},
			}},
			{ID: "tags", Key: "tags", Kind: model.KindMultiSelect},
			{ID: "address", Key: "address", Kind: model.KindText},
		},
		Sections: []model.Section{{
			ID: "phones", Key: "phone_numbers",
			Template: []model.Field{
				{ID: "phone-number-0", Key: "number", Kind: model.KindText},
				{ID: "phone-number-note-0", Key: "note", Kind: model.KindText},
			},
		}},
	}
}

func TestPayloadSkipsFalsyAndAddsTypes(t *testing.T) {
	doc := document.New(clientForm())
	_ = doc.Set("national-code", " ۰۰۱۲۳ ")
	_ = doc.Set("firstname", "Ali")
	_ = doc.Set("birthdate", "۱۴۰۰/۰۱/۰۲")
	_ = doc.Check("female")
	_ = doc.Set("phone-number-1", "0912")
	if _, err := doc.AppendRow("phones", "1700000000001"); err != nil {
		t.Fatalf("append: %v", err)
	}

	m := marshal.New(clientForm(), nil)
	payload := m.Payload(doc, "42")

	encoded, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	want := `{"national_code":"00123","first_name":"Ali","birth_date":"1400/01/02","gender":"F",` +
		`"phone_numbers":[{"number":"0912"}],"types":["CLIENT"],"person_id":"42"}`
	if string(encoded) != want {
		t.Fatalf("payload mismatch\nwant %s\ngot  %s", want, encoded)
	}

	if _, present := payload.Get("address"); present {
		t.Fatalf("empty address must be skipped")
	}
	if _, present := m.Payload(doc, "").Get(marshal.KeyPersonID); present {
		t.Fatalf("person_id must only be sent when editing")
	}
}

func TestPopulateWritesRecordAndSynthesisesRows(t *testing.T) {
	var record map[string]any
	raw := `{
		"national_code": "0012",
		"first_name": "Sara",
		"gender": "F",
		"tags": [{"id": 3, "title": "vip"}, 5],
		"phone_numbers": [{"number": "0912", "note": "home"}, {"number": "0935"}, {"number": 21}],
		"unknown": "ignored"
	}`
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}

	m := marshal.New(clientForm(), nil)
	doc := document.New(clientForm())
	if err := m.Populate(context.Background(), doc, record); err != nil {
		t.Fatalf("populate: %v", err)
	}

	if doc.Value("firstname") != "Sara" || !doc.Checked("female") {
		t.Fatalf("scalar fields not populated")
	}
	if diff := cmp.Diff([]string{"3", "5"}, doc.Values("tags")); diff != "" {
		t.Fatalf("tags mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"0912", "0935", "21"}, doc.Collect("phone-number")); diff != "" {
		t.Fatalf("phone rows mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"home", "", ""}, doc.Collect("phone-number-note")); diff != "" {
		t.Fatalf("notes mismatch (-want +got):\n%s", diff)
	}

	encoded, err := json.Marshal(m.Payload(doc, ""))
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	want := `{"national_code":"0012","first_name":"Sara","gender":"F","tags":["3","5"],` +
		`"phone_numbers":[{"number":"0912","note":"home"},{"number":"0935"},{"number":"21"}],"types":["CLIENT"]}`
	if string(encoded) != want {
		t.Fatalf("round trip payload mismatch\nwant %s\ngot  %s", want, encoded)
	}
}

func TestPopulateRejectsMalformedSections(t *testing.T) {
	m := marshal.New(clientForm(), nil)
	doc := document.New(clientForm())
	err := m.Populate(context.Background(), doc, map[string]any{"phone_numbers": "0912"})
	if err == nil {
		t.Fatalf("expected non-list section value to fail")
	}
}

func TestKeysFollowDeclarationOrder(t *testing.T) {
	want := []string{"national_code", "first_name", "birth_date", "gender", "tags", "address", "phone_numbers"}
	if diff := cmp.Diff(want, marshal.New(clientForm(), nil).Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
}
