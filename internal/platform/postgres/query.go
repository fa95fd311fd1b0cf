package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/phrazzld/taskhub/internal/listing"
)

// queryBuilder accumulates WHERE conditions and their positional arguments.
type queryBuilder struct {
	args  []any
	where []string
}

// arg appends v to the argument list and returns its placeholder.
func (b *queryBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

// Where adds a condition. Each "?" in cond is replaced by the placeholder of
// the next value in args.
func (b *queryBuilder) Where(cond string, args ...any) {
	var sb strings.Builder
	i := 0
	for _, r := range cond {
		if r == '?' && i < len(args) {
			sb.WriteString(b.arg(args[i]))
			i++
			continue
		}
		sb.WriteRune(r)
	}
	b.where = append(b.where, sb.String())
}

// Clause renders the accumulated conditions as a WHERE clause, or "".
func (b *queryBuilder) Clause() string {
	if len(b.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.where, " AND ")
}

// Args returns the positional arguments.
func (b *queryBuilder) Args() []any {
	return b.args
}

// applyListing adds the exact-match filters, search and AIP filter of q.
func (b *queryBuilder) applyListing(q listing.Query, schema listing.Schema) error {
	for _, c := range q.Conditions {
		b.Where(c.Field.Column+" = ?", c.Value)
	}

	if q.Search != "" {
		fields := schema.SearchFields()
		if len(fields) > 0 {
			ph := b.arg("%" + escapeLike(q.Search) + "%")
			parts := make([]string, len(fields))
			for i, f := range fields {
				parts[i] = fmt.Sprintf("%s ILIKE %s", f.Column, ph)
			}
			b.where = append(b.where, "("+strings.Join(parts, " OR ")+")")
		}
	}

	if q.Filter != "" {
		cond, err := translateFilter(q.Filter, schema, b)
		if err != nil {
			return err
		}
		if cond != "" {
			b.where = append(b.where, cond)
		}
	}
	return nil
}

// orderClause renders ORDER BY for q, with the primary key as tie-breaker so
// offsets are stable.
func orderClause(q listing.Query, pk string) string {
	parts := make([]string, 0, len(q.Order)+1)
	for _, o := range q.Order {
		if o.Desc {
			parts = append(parts, o.Field.Column+" DESC")
		} else {
			parts = append(parts, o.Field.Column+" ASC")
		}
	}
	parts = append(parts, pk+" ASC")
	return " ORDER BY " + strings.Join(parts, ", ")
}

// pageClause renders LIMIT/OFFSET, fetching one extra row to detect a next page.
func pageClause(q listing.Query) string {
	if q.Mode == listing.Unpaged {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d OFFSET %d", q.PageSize+1, q.Offset())
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
