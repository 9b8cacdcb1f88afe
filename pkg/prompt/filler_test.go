package prompt_test

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-crmpanel/pkg/catalog"
	"github.com/goliatone/go-crmpanel/pkg/form"
	"github.com/goliatone/go-crmpanel/pkg/marshal"
	"github.com/goliatone/go-crmpanel/pkg/model"
	"github.com/goliatone/go-crmpanel/pkg/prompt"
	"github.com/goliatone/go-crmpanel/pkg/rows"
	"github.com/goliatone/go-crmpanel/pkg/testsupport"
)

type scriptedDriver struct {
	inputs    []string
	selects   []int
	multis    [][]int
	confirms  []bool
	infos     []string
	messages  []string
	inputPos  int
	selectPos int
	multiPos  int
	confPos   int
	failWith  error
}

func (s *scriptedDriver) Input(_ context.Context, cfg prompt.InputConfig) (string, error) {
	if s.failWith != nil {
		return "", s.failWith
	}
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted for " + cfg.Message)
	}
	s.messages = append(s.messages, cfg.Message)
	val := s.inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *scriptedDriver) Confirm(_ context.Context, _ prompt.ConfirmConfig) (bool, error) {
	if s.confPos >= len(s.confirms) {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirms[s.confPos]
	s.confPos++
	return val, nil
}

func (s *scriptedDriver) Select(_ context.Context, _ prompt.SelectConfig) (int, error) {
	if s.selectPos >= len(s.selects) {
		return -1, errors.New("no select scripted")
	}
	val := s.selects[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *scriptedDriver) MultiSelect(_ context.Context, _ prompt.SelectConfig) ([]int, error) {
	if s.multiPos >= len(s.multis) {
		return nil, errors.New("no multiselect scripted")
	}
	val := s.multis[s.multiPos]
	s.multiPos++
	return val, nil
}

func (s *scriptedDriver) Info(_ context.Context, msg string) error {
	s.infos = append(s.infos, msg)
	return nil
}

type fixedIDs struct{ n int }

func (f *fixedIDs) Next() string {
	f.n++
	return strconv.Itoa(499 + f.n)
}

func clientForm(t *testing.T) model.FormModel {
	t.Helper()
	return testsupport.MustForm(t, "client")
}

func tags() catalog.Source {
	return catalog.SourceFunc(func(_ context.Context, term string) ([]catalog.Option, error) {
		return []catalog.Option{{ID: "7", Title: "VIP"}, {ID: "8", Title: "Regular"}}, nil
	})
}

func TestFillRetriesInvalidInputAndBuildsPayload(t *testing.T) {
	driver := &scriptedDriver{
		inputs: []string{
			"abc", "۰۰۱۲۳", // national-code, first attempt rejected
			"Ali", "Rezaei", "۱۳۷۰/۰۱/۰۲",
			"0912", "", // phone row
			"Tehran", "", // service location row
		},
		selects:  []int{1},
		multis:   [][]int{{0}},
		confirms: []bool{false, false},
	}
	f := clientForm(t)
	filler := prompt.New(prompt.WithDriver(driver), prompt.WithCatalog(tags()))

	doc, err := filler.Fill(context.Background(), f)
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if len(driver.infos) == 0 || driver.infos[0] != "ورودی باید به فرمت تماما عدد باشد" {
		t.Fatalf("expected digits notice first, got %v", driver.infos)
	}
	if driver.messages[0] != "کد ملی *" || driver.messages[1] != driver.messages[0] {
		t.Fatalf("expected the national code prompt to repeat, got %v", driver.messages[:2])
	}

	result := form.NewEngine(nil).Validate(doc)
	if !result.Valid {
		t.Fatalf("expected a valid document, got %v", result.Failed())
	}

	raw, err := json.Marshal(marshal.New(f, nil).Payload(doc, ""))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["national_code"] != "00123" || payload["gender"] != "F" {
		t.Fatalf("unexpected payload %v", payload)
	}
	if diff := cmp.Diff([]any{"7"}, payload["tags"]); diff != "" {
		t.Fatalf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestFillAddsSectionRows(t *testing.T) {
	driver := &scriptedDriver{
		inputs: []string{
			"123", "Ali", "Rezaei", "1370/01/02",
			"0912", "home", "0935", "work",
			"Tehran", "",
		},
		selects:  []int{0},
		multis:   [][]int{{}},
		confirms: []bool{true, false, false},
	}
	f := clientForm(t)
	filler := prompt.New(
		prompt.WithDriver(driver),
		prompt.WithCatalog(tags()),
		prompt.WithCloner(rows.NewCloner(rows.WithIDs(&fixedIDs{}))),
	)

	doc, err := filler.Fill(context.Background(), f)
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	phones := doc.Rows("phones")
	if len(phones) != 2 {
		t.Fatalf("expected two phone rows, got %d", len(phones))
	}
	if got := doc.Value("phone-number-500"); got != "0935" {
		t.Fatalf("second row value mismatch: %q", got)
	}
	if diff := cmp.Diff([]string{"home", "work"}, doc.Collect("phone-number-note-0")); diff != "" {
		t.Fatalf("notes mismatch (-want +got):\n%s", diff)
	}
}

func TestFillPropagatesAbort(t *testing.T) {
	driver := &scriptedDriver{failWith: prompt.ErrAborted}
	_, err := prompt.New(prompt.WithDriver(driver)).Fill(context.Background(), clientForm(t))
	if !errors.Is(err, prompt.ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
}

func TestFillFallsBackWhenCatalogFails(t *testing.T) {
	driver := &scriptedDriver{
		inputs:   []string{"1", "A", "B", "1370/01/02", "0912", "", "X", ""},
		selects:  []int{0},
		confirms: []bool{false, false},
	}
	broken := catalog.SourceFunc(func(context.Context, string) ([]catalog.Option, error) {
		return nil, errors.New("catalog down")
	})

	doc, err := prompt.New(prompt.WithDriver(driver), prompt.WithCatalog(broken)).Fill(context.Background(), clientForm(t))
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if driver.multiPos != 0 {
		t.Fatalf("multiselect without options must be skipped")
	}
	if len(doc.Values("client-tags")) != 0 {
		t.Fatalf("expected no tags")
	}
}
