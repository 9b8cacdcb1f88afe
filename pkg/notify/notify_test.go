package notify_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-crmpanel/pkg/notify"
)

func TestDefaults(t *testing.T) {
	got := notify.Error("اشکال در اطلاعات فرم", "موارد ذکر شده در فرم را اصلاح کنید")
	want := notify.Toast{
		Heading:    "اشکال در اطلاعات فرم",
		Text:       "موارد ذکر شده در فرم را اصلاح کنید",
		Icon:       notify.IconError,
		Position:   "bottom-left",
		TextAlign:  "right",
		HideAfter:  4000,
		Transition: "slide",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("toast mismatch (-want +got):\n%s", diff)
	}
}

func TestCollectorWritesTriggerHeader(t *testing.T) {
	var c notify.Collector
	h := http.Header{}
	if err := c.WriteHeader(h); err != nil {
		t.Fatalf("write empty header: %v", err)
	}
	if h.Get(notify.TriggerHeader) != "" {
		t.Fatalf("expected no header without toasts")
	}

	c.Notify(notify.Success("ثبت شد", "saved"))
	c.Notify(notify.Warning("careful", ""))
	if err := c.WriteHeader(h); err != nil {
		t.Fatalf("write header: %v", err)
	}

	raw := h.Get(notify.TriggerHeader)
	for i := 0; i < len(raw); i++ {
		if raw[i] >= 0x80 {
			t.Fatalf("expected ascii header, got %q", raw)
		}
	}

	var decoded map[string][]notify.Toast
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		t.Fatalf("decode header: %v", err)
	}
	if len(decoded["toast"]) != 2 || decoded["toast"][0].Heading != "ثبت شد" {
		t.Fatalf("unexpected trigger payload %+v", decoded)
	}
}
