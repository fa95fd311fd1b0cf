package postgres

import (
	"github.com/shopspring/decimal"

	"github.com/phrazzld/taskhub/internal/domain"
)

// col maps a column to the struct field returned by field.
func col[T, V any](name string, field func(*T) *V) Column[T] {
	return Column[T]{
		Name:  name,
		Value: func(v *T) any { return *field(v) },
		Dest:  func(v *T) any { return field(v) },
	}
}

// readOnly maps a column the database fills in.
func readOnly[T, V any](name string, field func(*T) *V) Column[T] {
	c := col(name, field)
	c.ReadOnly = true
	return c
}

// computed maps a SQL expression that is only ever read.
func computed[T, V any](name, expr string, field func(*T) *V) Column[T] {
	c := col(name, field)
	c.Expr = expr
	return c
}

// dateCol maps a nullable DATE column.
func dateCol[T any](name string, field func(*T) **domain.Date) Column[T] {
	c := col(name, field)
	c.Value = func(v *T) any {
		if d := *field(v); d != nil {
			return d.Time
		}
		return nil
	}
	return c
}

// decimalCol maps a NUMERIC column.
func decimalCol[T any](name string, field func(*T) *decimal.Decimal) Column[T] {
	c := col(name, field)
	c.Value = func(v *T) any { return field(v).String() }
	return c
}

// nullDecimalCol maps a nullable NUMERIC column.
func nullDecimalCol[T any](name string, field func(*T) *decimal.NullDecimal) Column[T] {
	c := col(name, field)
	c.Value = func(v *T) any {
		if d := field(v); d.Valid {
			return d.Decimal.String()
		}
		return nil
	}
	return c
}

// dayCol maps a NOT NULL DATE column.
func dayCol[T any](name string, field func(*T) *domain.Date) Column[T] {
	c := col(name, field)
	c.Value = func(v *T) any { return field(v).Time }
	return c
}
