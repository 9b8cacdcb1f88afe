package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/goliatone/go-crmpanel/pkg/document"
	"github.com/goliatone/go-crmpanel/pkg/model"
	"github.com/goliatone/go-crmpanel/pkg/notify"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Message string         `json:"message"`
	Code    string         `json:"code"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// Error codes.
const (
	CodeValidation = "validation"
	CodeBackend    = "backend_unavailable"
	CodeLastRow    = "last_row"
	CodeNotFound   = "not_found"
	CodeBadRequest = "bad_request"
	CodeInternal   = "internal"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeHTML(w http.ResponseWriter, status int, html string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, html)
}

func writeError(w http.ResponseWriter, status int, code, message string, meta map[string]any) {
	writeJSON(w, status, ErrorResponse{Message: message, Code: code, Meta: meta})
}

// flushToasts writes the collected toasts as an HX-Trigger header. It must run
// before the status line is written.
func (s *Server) flushToasts(w http.ResponseWriter, r *http.Request, toasts *notify.Collector) {
	if err := toasts.WriteHeader(w.Header()); err != nil {
		s.log(r.Context()).WithError(err).Error("server: encode toasts")
	}
}

func isHTMX(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("HX-Request"), "true")
}

func isJSON(r *http.Request) bool {
	return strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "application/json")
}

// readValues decodes a JSON object or an urlencoded body into form values.
func readValues(r *http.Request) (url.Values, error) {
	if isJSON(r) {
		raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			return nil, err
		}
		if len(strings.TrimSpace(string(raw))) == 0 {
			return url.Values{}, nil
		}
		var payload map[string]any
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, err
		}
		values := make(url.Values, len(payload))
		for key, value := range payload {
			switch v := value.(type) {
			case string:
				values.Set(key, v)
			case []any:
				for _, item := range v {
					if s, ok := item.(string); ok {
						values.Add(key, s)
					}
				}
			}
		}
		return values, nil
	}
	return formBody(r)
}

// formBody parses an urlencoded body for any method; ParseForm ignores the
// body of DELETE requests.
func formBody(r *http.Request) (url.Values, error) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	return url.ParseQuery(string(raw))
}

// readDocument builds the posted document. JSON bodies go through the
// document decoder so numbers and radio flags are accepted.
func readDocument(r *http.Request, form model.FormModel) (*document.Document, error) {
	if isJSON(r) {
		raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			return nil, err
		}
		if len(strings.TrimSpace(string(raw))) == 0 {
			return document.FromValues(form, url.Values{})
		}
		return document.FromJSON(form, raw)
	}
	values, err := formBody(r)
	if err != nil {
		return nil, err
	}
	return document.FromValues(form, values)
}
