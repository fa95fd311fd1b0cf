// Package listing defines the query model shared by list endpoints:
// exact-match filters, free-text search, ordering, AIP-160 filter
// expressions and cursor or page-number pagination.
package listing

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.einride.tech/aip/ordering"
)

// Errors returned while interpreting list queries.
var (
	ErrInvalidQuery    = errors.New("invalid list query")
	ErrInvalidCursor   = fmt.Errorf("%w: invalid cursor", ErrInvalidQuery)
	ErrInvalidPage     = errors.New("invalid page")
	ErrInvalidOrdering = fmt.Errorf("%w: invalid ordering", ErrInvalidQuery)
	ErrInvalidFilter   = fmt.Errorf("%w: invalid filter", ErrInvalidQuery)
)

// DefaultPageSize matches the page size of every list endpoint.
const DefaultPageSize = 5

// Query parameter names.
const (
	ParamSearch   = "search"
	ParamOrdering = "ordering"
	ParamFilter   = "filter"
	ParamCursor   = "cursor"
	ParamPage     = "page"
)

// FieldType tells the store how to bind filter values.
type FieldType int

// Field types.
const (
	String FieldType = iota
	Int
	Bool
	Time
	Date
	Decimal
)

// Field is a queryable attribute of a resource.
type Field struct {
	Name   string // query parameter and AIP identifier
	Column string // SQL expression
	Type   FieldType

	// Choices restricts String filter values when set.
	Choices []string
}

// Schema declares which fields a resource can be filtered, searched and
// ordered by.
type Schema struct {
	Fields   []Field
	Search   []string // field names matched by ?search=
	Ordering []string // field names accepted by ?ordering=
	Default  string   // default ordering in ?ordering= syntax
	Exact    []string // field names accepted as ?name=value filters
}

// Field returns the declared field with the given name.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Mode selects the pagination style.
type Mode int

// Pagination modes.
const (
	CursorMode Mode = iota
	PageMode
	Unpaged
)

// Condition is an exact-match filter on a declared field.
type Condition struct {
	Field Field
	Value any
}

// Query is a parsed list request.
type Query struct {
	Conditions []Condition
	Search     string
	Order      []Order
	Filter     string
	Cursor     Cursor
	Page       int
	PageSize   int
	Mode       Mode
}

// Order is one ORDER BY term.
type Order struct {
	Field Field
	Desc  bool
}

// Offset is the number of rows skipped before the current page.
func (q Query) Offset() int {
	switch q.Mode {
	case PageMode:
		return (q.Page - 1) * q.PageSize
	case CursorMode:
		return q.Cursor.Offset
	default:
		return 0
	}
}

// Fingerprint identifies the ordering a cursor was issued for.
func (q Query) Fingerprint() string {
	parts := make([]string, 0, len(q.Order))
	for _, o := range q.Order {
		if o.Desc {
			parts = append(parts, "-"+o.Field.Name)
		} else {
			parts = append(parts, o.Field.Name)
		}
	}
	return strings.Join(parts, ",")
}

// Parse builds a Query from URL values according to schema.
func Parse(values url.Values, schema Schema, mode Mode, pageSize int) (Query, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	q := Query{
		Search:   strings.TrimSpace(values.Get(ParamSearch)),
		Filter:   strings.TrimSpace(values.Get(ParamFilter)),
		PageSize: pageSize,
		Mode:     mode,
	}

	for _, name := range schema.Exact {
		raw, ok := values[name]
		if !ok || len(raw) == 0 || raw[0] == "" {
			continue
		}
		f, ok := schema.Field(name)
		if !ok {
			return Query{}, fmt.Errorf("%w: undeclared filter field %q", ErrInvalidQuery, name)
		}
		v, err := Convert(f, raw[0])
		if err != nil {
			return Query{}, err
		}
		q.Conditions = append(q.Conditions, Condition{Field: f, Value: v})
	}

	orderParam := values.Get(ParamOrdering)
	if orderParam == "" {
		orderParam = schema.Default
	}
	order, err := ParseOrdering(orderParam, schema)
	if err != nil {
		return Query{}, err
	}
	q.Order = order

	switch mode {
	case CursorMode:
		if raw := values.Get(ParamCursor); raw != "" {
			c, err := DecodeCursor(raw)
			if err != nil {
				return Query{}, err
			}
			if c.Fingerprint != q.Fingerprint() {
				return Query{}, ErrInvalidCursor
			}
			q.Cursor = c
		}
	case PageMode:
		q.Page = 1
		if raw := values.Get(ParamPage); raw != "" {
			page, err := strconv.Atoi(raw)
			if err != nil || page < 1 {
				return Query{}, ErrInvalidPage
			}
			q.Page = page
		}
	}

	return q, nil
}

// ParseOrdering converts "-created_at,title" into validated order terms.
func ParseOrdering(param string, schema Schema) ([]Order, error) {
	param = strings.TrimSpace(param)
	if param == "" {
		return nil, nil
	}

	// Translate to AIP-132 syntax so the einride parser validates it.
	terms := strings.Split(param, ",")
	aip := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if strings.HasPrefix(term, "-") {
			aip = append(aip, strings.TrimPrefix(term, "-")+" desc")
		} else {
			aip = append(aip, term)
		}
	}

	orderBy, err := ordering.ParseOrderBy(orderByRequest(strings.Join(aip, ", ")))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrdering, err)
	}
	if err := orderBy.ValidateForPaths(schema.Ordering...); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrdering, err)
	}

	out := make([]Order, 0, len(orderBy.Fields))
	for _, f := range orderBy.Fields {
		field, ok := schema.Field(f.Path)
		if !ok {
			return nil, fmt.Errorf("%w: undeclared field %q", ErrInvalidOrdering, f.Path)
		}
		out = append(out, Order{Field: field, Desc: f.Desc})
	}
	return out, nil
}

type orderByRequest string

func (r orderByRequest) GetOrderBy() string { return string(r) }

// Convert parses a raw query value according to the field type.
func Convert(f Field, raw string) (any, error) {
	bad := func() error {
		return fmt.Errorf("%w: %q is not a valid value for %s", ErrInvalidQuery, raw, f.Name)
	}
	switch f.Type {
	case Int:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, bad()
		}
		return v, nil
	case Bool:
		switch strings.ToLower(raw) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}
		return nil, bad()
	case Time:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, raw); err == nil {
				return t, nil
			}
		}
		return nil, bad()
	case Date:
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, bad()
		}
		return t, nil
	case Decimal:
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, bad()
		}
		return d, nil
	default:
		if len(f.Choices) > 0 && !slices.Contains(f.Choices, raw) {
			return nil, fmt.Errorf("%w: %q is not one of the available choices for %s",
				ErrInvalidQuery, raw, f.Name)
		}
		return raw, nil
	}
}

// SearchFields resolves the schema's search field names.
func (s Schema) SearchFields() []Field {
	out := make([]Field, 0, len(s.Search))
	for _, name := range s.Search {
		if f, ok := s.Field(name); ok {
			out = append(out, f)
		}
	}
	return out
}

// Orderable reports whether name may appear in ?ordering=.
func (s Schema) Orderable(name string) bool {
	return slices.Contains(s.Ordering, name)
}
