// Package apidoc describes the panel's HTTP surface and the backend payload
// of every form as an OpenAPI 3 document.
package apidoc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-crmpanel/pkg/model"
)

// Version is reported in the document info block.
const Version = "1.0.0"

// Route is one documented endpoint.
type Route struct {
	Method      string
	Path        string
	OperationID string
	Summary     string
	Tag         string
	// Body names a component schema used as JSON request body.
	Body string
	// Response names a component schema returned with 200.
	Response string
	// Query lists query parameter names.
	Query []string
}

// Routes lists every endpoint served by the panel.
func Routes() []Route {
	return []Route{
		{Method: http.MethodGet, Path: "/panel/forms", OperationID: "listForms", Summary: "List form definitions", Tag: "forms", Response: "FormList"},
		{Method: http.MethodGet, Path: "/panel/forms/{form}", OperationID: "getForm", Summary: "Form definition and widget bindings", Tag: "forms", Response: "FormView"},
		{Method: http.MethodPost, Path: "/panel/forms/{form}/validate", OperationID: "validateForm", Summary: "Validate posted values", Tag: "forms", Body: "Values", Response: "ValidationResult"},
		{Method: http.MethodPost, Path: "/panel/forms/{form}/submit", OperationID: "submitForm", Summary: "Validate, marshal and forward to the backend", Tag: "forms", Body: "Values", Response: "SubmitResult", Query: []string{"person_id"}},
		{Method: http.MethodGet, Path: "/panel/forms/{form}/records/{id}", OperationID: "getRecord", Summary: "Fetch a record and populate the form", Tag: "forms", Response: "Values"},
		{Method: http.MethodPost, Path: "/panel/forms/{form}/sections/{section}/rows", OperationID: "addRow", Summary: "Add a row to a repeatable section", Tag: "rows", Body: "Values", Response: "RowResult"},
		{Method: http.MethodDelete, Path: "/panel/forms/{form}/sections/{section}/rows/{row}", OperationID: "deleteRow", Summary: "Delete a row from a repeatable section", Tag: "rows", Body: "Values", Response: "RowResult"},
		{Method: http.MethodGet, Path: "/panel/preview", OperationID: "openPreview", Summary: "Open a preview from the page grid", Tag: "preview", Response: "PreviewView", Query: []string{"link"}},
		{Method: http.MethodPost, Path: "/panel/preview/drill", OperationID: "drillPreview", Summary: "Drill into a row inside the preview", Tag: "preview", Body: "DrillRequest", Response: "PreviewView"},
		{Method: http.MethodPost, Path: "/panel/preview/back", OperationID: "backPreview", Summary: "Return to the previous preview", Tag: "preview", Response: "PreviewView"},
		{Method: http.MethodGet, Path: "/panel/sidebar", OperationID: "getSidebar", Summary: "Current sidebar state", Tag: "ui", Response: "Sidebar"},
		{Method: http.MethodPost, Path: "/panel/sidebar/toggle", OperationID: "toggleSidebar", Summary: "Toggle and persist the sidebar", Tag: "ui", Response: "Sidebar"},
		{Method: http.MethodPost, Path: "/panel/sidebar/follow", OperationID: "followMenuItem", Summary: "Flip the sidebar for a menu navigation without persisting", Tag: "ui", Response: "Sidebar"},
		{Method: http.MethodGet, Path: "/panel/tabs", OperationID: "getTabs", Summary: "Tab classes for the active tab", Tag: "ui", Response: "Tabs", Query: []string{"active", "section"}},
		{Method: http.MethodGet, Path: "/panel/catalog", OperationID: "lookupCatalog", Summary: "Picker options for a catalog term", Tag: "catalog", Response: "CatalogOptions", Query: []string{"q"}},
		{Method: http.MethodGet, Path: "/health", OperationID: "health", Summary: "Liveness check", Tag: "ops", Response: "Health"},
	}
}

// Build assembles the document for the given forms.
func Build(forms []model.FormModel) (*openapi3.T, error) {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:   "crmpanel",
			Version: Version,
		},
		Paths: openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas: commonSchemas(),
		},
	}

	sorted := append([]model.FormModel{}, forms...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	for _, form := range sorted {
		doc.Components.Schemas[PayloadSchemaName(form.ID)] = openapi3.NewSchemaRef("", PayloadSchema(form))
	}

	for _, route := range Routes() {
		item := doc.Paths.Value(route.Path)
		if item == nil {
			item = &openapi3.PathItem{}
			doc.Paths.Set(route.Path, item)
		}
		item.SetOperation(route.Method, operation(route, doc.Components.Schemas))
	}

	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("apidoc: invalid document: %w", err)
	}
	return doc, nil
}

func operation(route Route, schemas openapi3.Schemas) *openapi3.Operation {
	op := openapi3.NewOperation()
	op.OperationID = route.OperationID
	op.Summary = route.Summary
	op.Tags = []string{route.Tag}

	for _, name := range pathParams(route.Path) {
		op.AddParameter(openapi3.NewPathParameter(name).WithSchema(openapi3.NewStringSchema()))
	}
	for _, name := range route.Query {
		op.AddParameter(openapi3.NewQueryParameter(name).WithSchema(openapi3.NewStringSchema()))
	}
	if route.Body != "" {
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().WithJSONSchemaRef(ref(schemas, route.Body)),
		}
	}

	ok := openapi3.NewResponse().WithDescription("OK")
	if route.Response != "" {
		ok = ok.WithJSONSchemaRef(ref(schemas, route.Response))
	}
	op.AddResponse(http.StatusOK, ok)
	op.AddResponse(0, openapi3.NewResponse().WithDescription("Error").WithJSONSchemaRef(ref(schemas, "Error")))
	return op
}

func pathParams(path string) []string {
	var out []string
	for i := 0; i < len(path); i++ {
		if path[i] != '{' {
			continue
		}
		for j := i + 1; j < len(path); j++ {
			if path[j] == '}' {
				out = append(out, path[i+1:j])
				i = j
				break
			}
		}
	}
	return out
}

// ref points at a component schema and carries its value so the document
// validates without a loader pass.
func ref(schemas openapi3.Schemas, name string) *openapi3.SchemaRef {
	var value *openapi3.Schema
	if s, ok := schemas[name]; ok {
		value = s.Value
	}
	return openapi3.NewSchemaRef("#/components/schemas/"+name, value)
}

// PayloadSchemaName names the component schema of a form payload.
func PayloadSchemaName(formID string) string {
	return "Payload_" + formID
}

// PayloadSchema describes the JSON body a form submits to the backend.
func PayloadSchema(form model.FormModel) *openapi3.Schema {
	schema := openapi3.NewObjectSchema()
	for _, field := range form.Fields {
		schema.WithProperty(field.PayloadKey(), fieldSchema(field))
		if field.Required {
			schema.Required = append(schema.Required, field.PayloadKey())
		}
	}
	for _, section := range form.Sections {
		row := openapi3.NewObjectSchema()
		for _, field := range section.Template {
			row.WithProperty(field.PayloadKey(), fieldSchema(field))
		}
		schema.WithProperty(section.PayloadKey(), openapi3.NewArraySchema().WithItems(row))
	}
	schema.WithProperty("types", openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema()))
	schema.WithProperty("person_id", openapi3.NewStringSchema())
	return schema
}

func fieldSchema(field model.Field) *openapi3.Schema {
	switch {
	case field.Kind.MultiValued():
		return openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())
	case field.Kind == model.KindRadio && len(field.Options) > 0:
		values := make([]any, 0, len(field.Options))
		for _, opt := range field.Options {
			v := opt.Data
			if v == "" {
				v = opt.ID
			}
			values = append(values, v)
		}
		return openapi3.NewStringSchema().WithEnum(values...)
	default:
		return openapi3.NewStringSchema()
	}
}

// CheckPayload validates a marshalled payload against the form schema.
func CheckPayload(form model.FormModel, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("apidoc: encode payload: %w", err)
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return fmt.Errorf("apidoc: decode payload: %w", err)
	}
	if err := PayloadSchema(form).VisitJSON(value); err != nil {
		return fmt.Errorf("apidoc: payload for %s: %w", form.ID, err)
	}
	return nil
}

func commonSchemas() openapi3.Schemas {
	str := openapi3.NewStringSchema
	strList := func() *openapi3.Schema { return openapi3.NewArraySchema().WithItems(str()) }
	obj := openapi3.NewObjectSchema
	freeform := func() *openapi3.Schema {
		s := obj()
		s.AdditionalProperties = openapi3.AdditionalProperties{Has: openapi3.BoolPtr(true)}
		return s
	}
	errorsMap := func() *openapi3.Schema {
		s := obj()
		s.AdditionalProperties = openapi3.AdditionalProperties{Schema: openapi3.NewSchemaRef("", strList())}
		return s
	}

	toast := obj().
		WithProperty("heading", str()).
		WithProperty("text", str()).
		WithProperty("icon", str())

	schemas := openapi3.Schemas{
		"Error": openapi3.NewSchemaRef("", obj().
			WithProperty("message", str()).
			WithProperty("code", str()).
			WithProperty("meta", freeform())),
		"Toast":  openapi3.NewSchemaRef("", toast),
		"Values": openapi3.NewSchemaRef("", freeform()),
		"FormList": openapi3.NewSchemaRef("", openapi3.NewArraySchema().WithItems(obj().
			WithProperty("id", str()).
			WithProperty("title", str()))),
		"FormView": openapi3.NewSchemaRef("", obj().
			WithProperty("form", freeform()).
			WithProperty("bindings", openapi3.NewArraySchema().WithItems(freeform())).
			WithProperty("document", freeform())),
		"ValidationResult": openapi3.NewSchemaRef("", obj().
			WithProperty("valid", openapi3.NewBoolSchema()).
			WithProperty("errors", errorsMap())),
		"SubmitResult": openapi3.NewSchemaRef("", obj().
			WithProperty("valid", openapi3.NewBoolSchema()).
			WithProperty("errors", errorsMap()).
			WithProperty("form_errors", strList()).
			WithProperty("payload", freeform()).
			WithProperty("response", freeform())),
		"RowResult": openapi3.NewSchemaRef("", obj().
			WithProperty("section", str()).
			WithProperty("row", freeform()).
			WithProperty("pickers", openapi3.NewArraySchema().WithItems(freeform())).
			WithProperty("rows", openapi3.NewArraySchema().WithItems(freeform()))),
		"DrillRequest": openapi3.NewSchemaRef("", obj().
			WithProperty("current", str()).
			WithProperty("link", str())),
		"PreviewView": openapi3.NewSchemaRef("", obj().
			WithProperty("html", str()).
			WithProperty("grid_ids", strList()).
			WithProperty("back_visible", openapi3.NewBoolSchema()).
			WithProperty("current", str()).
			WithProperty("selected", str()).
			WithProperty("depth", openapi3.NewIntegerSchema())),
		"Sidebar": openapi3.NewSchemaRef("", obj().
			WithProperty("expanded", openapi3.NewBoolSchema()).
			WithProperty("expanded_class", str()).
			WithProperty("minimized_class", str()).
			WithProperty("state", str().WithEnum("open", "closed"))),
		"Tabs": openapi3.NewSchemaRef("", obj().
			WithProperty("section", str()).
			WithProperty("active", openapi3.NewIntegerSchema()).
			WithProperty("changed", openapi3.NewBoolSchema()).
			WithProperty("tabs", openapi3.NewArraySchema().WithItems(freeform())).
			WithProperty("grid", freeform())),
		"CatalogOptions": openapi3.NewSchemaRef("", openapi3.NewArraySchema().WithItems(obj().
			WithProperty("id", str()).
			WithProperty("text", str()))),
		"Health": openapi3.NewSchemaRef("", obj().WithProperty("status", str())),
	}
	return schemas
}

// JSON renders the document.
func JSON(doc *openapi3.T) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}
