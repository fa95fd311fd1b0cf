// Package apidocs generates the OpenAPI document of the HTTP API from the
// chi route tree and the model registry, and serves it together with the
// Swagger UI and ReDoc pages.
package apidocs

import (
	"fmt"
	"net/http"
	"reflect"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"

	"github.com/phrazzld/taskhub/internal/api/shared"
	"github.com/phrazzld/taskhub/internal/domain"
)

// Document is an OpenAPI 3 document.
type Document struct {
	OpenAPI    string                           `json:"openapi"    yaml:"openapi"`
	Info       Info                             `json:"info"       yaml:"info"`
	Paths      map[string]map[string]*Operation `json:"paths"      yaml:"paths"`
	Components Components                       `json:"components" yaml:"components"`
	Security   []map[string][]string            `json:"security"   yaml:"security"`
}

// Info is the document metadata.
type Info struct {
	Title       string `json:"title"       yaml:"title"`
	Version     string `json:"version"     yaml:"version"`
	Description string `json:"description" yaml:"description"`
}

// Operation is one method on one path.
type Operation struct {
	Summary     string                 `json:"summary"               yaml:"summary"`
	Tags        []string               `json:"tags,omitempty"        yaml:"tags,omitempty"`
	OperationID string                 `json:"operationId"           yaml:"operationId"`
	Parameters  []Parameter            `json:"parameters,omitempty"  yaml:"parameters,omitempty"`
	RequestBody *Body                  `json:"requestBody,omitempty" yaml:"requestBody,omitempty"`
	Responses   map[string]Response    `json:"responses"             yaml:"responses"`
	Security    *[]map[string][]string `json:"security,omitempty"    yaml:"security,omitempty"`
}

// Parameter is a path or query parameter.
type Parameter struct {
	Name     string  `json:"name"     yaml:"name"`
	In       string  `json:"in"       yaml:"in"`
	Required bool    `json:"required" yaml:"required"`
	Schema   *Schema `json:"schema"   yaml:"schema"`
}

// Body is a request body.
type Body struct {
	Required bool                 `json:"required" yaml:"required"`
	Content  map[string]MediaType `json:"content"  yaml:"content"`
}

// Response is one response of an operation.
type Response struct {
	Description string               `json:"description"       yaml:"description"`
	Content     map[string]MediaType `json:"content,omitempty" yaml:"content,omitempty"`
}

// MediaType wraps a schema.
type MediaType struct {
	Schema *Schema `json:"schema" yaml:"schema"`
}

// Schema is a JSON schema subset.
type Schema struct {
	Ref        string             `json:"$ref,omitempty"       yaml:"$ref,omitempty"`
	Type       string             `json:"type,omitempty"       yaml:"type,omitempty"`
	Format     string             `json:"format,omitempty"     yaml:"format,omitempty"`
	Nullable   bool               `json:"nullable,omitempty"   yaml:"nullable,omitempty"`
	Items      *Schema            `json:"items,omitempty"      yaml:"items,omitempty"`
	Properties map[string]*Schema `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// Components holds the model schemas and security schemes.
type Components struct {
	Schemas         map[string]*Schema        `json:"schemas"         yaml:"schemas"`
	SecuritySchemes map[string]SecurityScheme `json:"securitySchemes" yaml:"securitySchemes"`
}

// SecurityScheme is an authentication scheme.
type SecurityScheme struct {
	Type         string `json:"type"                   yaml:"type"`
	Scheme       string `json:"scheme,omitempty"       yaml:"scheme,omitempty"`
	BearerFormat string `json:"bearerFormat,omitempty" yaml:"bearerFormat,omitempty"`
	In           string `json:"in,omitempty"           yaml:"in,omitempty"`
	Name         string `json:"name,omitempty"         yaml:"name,omitempty"`
	Description  string `json:"description,omitempty"  yaml:"description,omitempty"`
}

// Options configure Build.
type Options struct {
	Info Info
	// Public lists route patterns served without authentication.
	Public map[string]bool
	// Skip lists path prefixes left out of the document.
	Skip []string
}

// Build walks routes and describes every endpoint. Paths whose first
// segment after /api names a registered model reference its schema.
func Build(routes chi.Routes, opts Options) (*Document, error) {
	doc := &Document{
		OpenAPI: "3.0.3",
		Info:    opts.Info,
		Paths:   map[string]map[string]*Operation{},
		Components: Components{
			Schemas: modelSchemas(domain.Models()),
			SecuritySchemes: map[string]SecurityScheme{
				"jwt":   {Type: "http", Scheme: "bearer", BearerFormat: "JWT"},
				"token": {Type: "apiKey", In: "header", Name: "Authorization", Description: "Token <key>"},
				"basic": {Type: "http", Scheme: "basic"},
			},
		},
		Security: []map[string][]string{{"jwt": {}}, {"token": {}}, {"basic": {}}},
	}

	err := chi.Walk(routes, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		route = strings.TrimSuffix(strings.ReplaceAll(route, "/*/", "/"), "/")
		if route == "" {
			route = "/"
		}
		for _, prefix := range opts.Skip {
			if strings.HasPrefix(route, prefix) {
				return nil
			}
		}
		item, ok := doc.Paths[route]
		if !ok {
			item = map[string]*Operation{}
			doc.Paths[route] = item
		}
		op := describe(method, route)
		if opts.Public[route] {
			// An empty requirement list overrides the document default.
			op.Security = &[]map[string][]string{}
		}
		item[strings.ToLower(method)] = op
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk routes: %w", err)
	}
	return doc, nil
}

// describe derives an operation from the method and route pattern.
func describe(method, route string) *Operation {
	segments := strings.Split(strings.Trim(route, "/"), "/")
	op := &Operation{
		OperationID: operationID(method, segments),
		Responses:   map[string]Response{},
	}

	var model *domain.ModelInfo
	if len(segments) >= 2 && segments[0] == "api" {
		if m, ok := domain.LookupModel(segments[1]); ok {
			model = &m
			op.Tags = []string{m.Plural}
		}
	}

	for _, seg := range segments {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			name := strings.Trim(seg, "{}")
			s := &Schema{Type: "string"}
			if name == "id" {
				s = &Schema{Type: "integer", Format: "int64"}
			}
			op.Parameters = append(op.Parameters, Parameter{Name: name, In: "path", Required: true, Schema: s})
		}
	}

	last := segments[len(segments)-1]
	item := last == "{id}"
	collection := model != nil && len(segments) == 2

	var ref *Schema
	if model != nil {
		ref = &Schema{Ref: "#/components/schemas/" + schemaName(*model)}
	}

	switch {
	case collection && method == http.MethodGet:
		op.Summary = "List " + model.Plural
		for _, q := range []string{"search", "ordering", "filter", "cursor", "page"} {
			op.Parameters = append(op.Parameters, Parameter{Name: q, In: "query", Schema: &Schema{Type: "string"}})
		}
		op.Responses["200"] = jsonResponse("Paginated list", &Schema{
			Type: "object",
			Properties: map[string]*Schema{
				"next":     {Type: "string", Nullable: true},
				"previous": {Type: "string", Nullable: true},
				"results":  {Type: "array", Items: ref},
			},
		})
	case collection && method == http.MethodPost:
		op.Summary = "Create " + model.Verbose
		op.RequestBody = jsonBody(ref)
		op.Responses["201"] = jsonResponse("Created", ref)
		op.Responses["400"] = Response{Description: "Validation error"}
	case item && model != nil && method == http.MethodGet:
		op.Summary = "Retrieve " + model.Verbose
		op.Responses["200"] = jsonResponse("OK", ref)
		op.Responses["404"] = Response{Description: "Not found"}
	case item && model != nil && (method == http.MethodPut || method == http.MethodPatch):
		op.Summary = "Update " + model.Verbose
		op.RequestBody = jsonBody(ref)
		op.Responses["200"] = jsonResponse("Updated", ref)
		op.Responses["400"] = Response{Description: "Validation error"}
		op.Responses["403"] = Response{Description: "Not the owner"}
	case item && model != nil && method == http.MethodDelete:
		op.Summary = "Delete " + model.Verbose
		op.Responses["204"] = Response{Description: "Deleted"}
		op.Responses["403"] = Response{Description: "Not the owner"}
	default:
		op.Summary = method + " " + route
		op.Responses["200"] = Response{Description: "OK"}
	}
	return op
}

func operationID(method string, segments []string) string {
	parts := []string{strings.ToLower(method)}
	for _, s := range segments {
		s = strings.Trim(s, "{}")
		s = strings.NewReplacer("-", "_", ".", "_").Replace(s)
		if s != "" && s != "api" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "_")
}

func jsonBody(s *Schema) *Body {
	return &Body{Required: true, Content: map[string]MediaType{"application/json": {Schema: s}}}
}

func jsonResponse(desc string, s *Schema) Response {
	return Response{Description: desc, Content: map[string]MediaType{"application/json": {Schema: s}}}
}

func schemaName(m domain.ModelInfo) string {
	return m.Type.Name()
}

// modelSchemas describes every registered model by its JSON fields.
func modelSchemas(models []domain.ModelInfo) map[string]*Schema {
	out := make(map[string]*Schema, len(models))
	for _, m := range models {
		props := map[string]*Schema{}
		for _, f := range jsonFields(m.Type) {
			props[f.name] = typeSchema(f.typ)
		}
		out[schemaName(m)] = &Schema{Type: "object", Properties: props}
	}
	return out
}

type field struct {
	name string
	typ  reflect.Type
}

func jsonFields(t reflect.Type) []field {
	var out []field
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct && f.Tag.Get("json") == "" {
			out = append(out, jsonFields(f.Type)...)
			continue
		}
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" || !f.IsExported() {
			continue
		}
		out = append(out, field{name: name, typ: f.Type})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

var dateType = reflect.TypeFor[domain.Date]()

// typeSchema maps a Go field type to a JSON schema.
func typeSchema(t reflect.Type) *Schema {
	nullable := false
	if t.Kind() == reflect.Pointer {
		nullable = true
		t = t.Elem()
	}
	s := &Schema{Nullable: nullable}
	switch {
	case t == dateType:
		s.Type, s.Format = "string", "date"
	case t.String() == "time.Time":
		s.Type, s.Format = "string", "date-time"
	case t.String() == "decimal.Decimal":
		s.Type, s.Format = "string", "decimal"
	case t.String() == "decimal.NullDecimal":
		s.Type, s.Format, s.Nullable = "string", "decimal", true
	default:
		switch t.Kind() {
		case reflect.Bool:
			s.Type = "boolean"
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			s.Type = "integer"
			if t.Kind() == reflect.Int64 {
				s.Format = "int64"
			}
		case reflect.Float32, reflect.Float64:
			s.Type = "number"
		case reflect.Slice, reflect.Array:
			s.Type = "array"
			s.Items = typeSchema(t.Elem())
		case reflect.Struct, reflect.Map:
			s.Type = "object"
		default:
			s.Type = "string"
		}
	}
	return s
}

// Handler serves a built document and the documentation UIs.
type Handler struct {
	doc  *Document
	yaml []byte
}

// NewHandler renders doc once for every request.
func NewHandler(doc *Document) (*Handler, error) {
	y, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to render OpenAPI YAML: %w", err)
	}
	return &Handler{doc: doc, yaml: y}, nil
}

// Routes registers /swagger.json, /swagger.yaml, /swagger/ and /redoc/.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/swagger.json", h.JSON)
	r.Get("/swagger.yaml", h.YAML)
	r.Get("/swagger/", h.page(swaggerPage))
	r.Get("/redoc/", h.page(redocPage))
}

// JSON serves the document as JSON.
func (h *Handler) JSON(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.doc)
}

// YAML serves the document as YAML.
func (h *Handler) YAML(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(h.yaml)
}

func (h *Handler) page(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}
}

const swaggerPage = `<!DOCTYPE html>
<html>
<head>
<title>TaskHub API</title>
<link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
<script>SwaggerUIBundle({url: "/swagger.json", dom_id: "#swagger-ui"});</script>
</body>
</html>
`

const redocPage = `<!DOCTYPE html>
<html>
<head>
<title>TaskHub API</title>
</head>
<body>
<redoc spec-url="/swagger.json"></redoc>
<script src="https://cdn.redoc.ly/redoc/latest/bundles/redoc.standalone.js"></script>
</body>
</html>
`
