package postgres

import (
	"fmt"
	"strings"

	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"

	"github.com/phrazzld/taskhub/internal/listing"
)

// declarations declares every schema field as an AIP-160 identifier. Dates
// and times are compared as strings in the expression and converted to
// time values when the SQL is generated.
func declarations(schema listing.Schema) (*filtering.Declarations, error) {
	opts := []filtering.DeclarationOption{filtering.DeclareStandardFunctions()}
	for _, f := range schema.Fields {
		var typ *expr.Type
		switch f.Type {
		case listing.Int:
			typ = filtering.TypeInt
		case listing.Bool:
			typ = filtering.TypeBool
		case listing.Decimal:
			typ = filtering.TypeFloat
		default:
			typ = filtering.TypeString
		}
		opts = append(opts, filtering.DeclareIdent(f.Name, typ))
	}
	return filtering.NewDeclarations(opts...)
}

// translateFilter parses an AIP-160 expression and renders it as a SQL
// condition whose arguments are appended to b.
func translateFilter(filter string, schema listing.Schema, b *queryBuilder) (string, error) {
	if strings.TrimSpace(filter) == "" {
		return "", nil
	}

	decls, err := declarations(schema)
	if err != nil {
		return "", fmt.Errorf("create declarations: %w", err)
	}

	parsed, err := filtering.ParseFilterString(filter, decls)
	if err != nil {
		return "", fmt.Errorf("%w: %v", listing.ErrInvalidFilter, err)
	}

	t := translator{schema: schema, b: b}
	cond, err := t.expr(parsed.CheckedExpr.GetExpr())
	if err != nil {
		return "", fmt.Errorf("%w: %v", listing.ErrInvalidFilter, err)
	}
	return cond, nil
}

type translator struct {
	schema listing.Schema
	b      *queryBuilder
}

func (t translator) expr(e *expr.Expr) (string, error) {
	if e == nil {
		return "", nil
	}
	switch kind := e.ExprKind.(type) {
	case *expr.Expr_CallExpr:
		return t.call(kind.CallExpr)
	case *expr.Expr_IdentExpr:
		// A bare boolean field, e.g. "is_bestseller".
		f, err := t.field(e)
		if err != nil {
			return "", err
		}
		if f.Type != listing.Bool {
			return "", fmt.Errorf("field %s is not boolean", f.Name)
		}
		return f.Column, nil
	default:
		return "", fmt.Errorf("unsupported expression type: %T", kind)
	}
}

func (t translator) call(call *expr.Expr_Call) (string, error) {
	switch call.Function {
	case filtering.FunctionAnd:
		return t.logical(call.Args, "AND")
	case filtering.FunctionOr:
		return t.logical(call.Args, "OR")
	case filtering.FunctionNot:
		if len(call.Args) != 1 {
			return "", fmt.Errorf("NOT requires 1 argument")
		}
		inner, err := t.expr(call.Args[0])
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil
	case filtering.FunctionEquals:
		return t.comparison(call.Args, "=")
	case filtering.FunctionNotEquals:
		return t.comparison(call.Args, "<>")
	case filtering.FunctionLessThan:
		return t.comparison(call.Args, "<")
	case filtering.FunctionLessEquals:
		return t.comparison(call.Args, "<=")
	case filtering.FunctionGreaterThan:
		return t.comparison(call.Args, ">")
	case filtering.FunctionGreaterEquals:
		return t.comparison(call.Args, ">=")
	case filtering.FunctionHas:
		return t.has(call.Args)
	default:
		return "", fmt.Errorf("unsupported function: %s", call.Function)
	}
}

func (t translator) logical(args []*expr.Expr, op string) (string, error) {
	if len(args) != 2 {
		return "", fmt.Errorf("%s requires 2 arguments", op)
	}
	left, err := t.expr(args[0])
	if err != nil {
		return "", err
	}
	right, err := t.expr(args[1])
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s %s %s)", left, op, right), nil
}

func (t translator) comparison(args []*expr.Expr, op string) (string, error) {
	if len(args) != 2 {
		return "", fmt.Errorf("comparison requires 2 arguments")
	}
	f, err := t.field(args[0])
	if err != nil {
		return "", err
	}
	value, err := t.value(f, args[1])
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s %s", f.Column, op, t.b.arg(value)), nil
}

// has renders the ":" operator as a case-insensitive substring match.
func (t translator) has(args []*expr.Expr) (string, error) {
	if len(args) != 2 {
		return "", fmt.Errorf("has requires 2 arguments")
	}
	f, err := t.field(args[0])
	if err != nil {
		return "", err
	}
	if f.Type != listing.String {
		return "", fmt.Errorf("field %s does not support ':'", f.Name)
	}
	c, ok := args[1].ExprKind.(*expr.Expr_ConstExpr)
	if !ok {
		return "", fmt.Errorf("expected constant")
	}
	s, ok := c.ConstExpr.ConstantKind.(*expr.Constant_StringValue)
	if !ok {
		return "", fmt.Errorf("':' requires a string")
	}
	return fmt.Sprintf("%s ILIKE %s", f.Column, t.b.arg("%"+escapeLike(s.StringValue)+"%")), nil
}

func (t translator) field(e *expr.Expr) (listing.Field, error) {
	ident, ok := e.ExprKind.(*expr.Expr_IdentExpr)
	if !ok {
		return listing.Field{}, fmt.Errorf("expected identifier, got %T", e.ExprKind)
	}
	f, ok := t.schema.Field(ident.IdentExpr.Name)
	if !ok {
		return listing.Field{}, fmt.Errorf("unknown field: %s", ident.IdentExpr.Name)
	}
	return f, nil
}

func (t translator) value(f listing.Field, e *expr.Expr) (any, error) {
	c, ok := e.ExprKind.(*expr.Expr_ConstExpr)
	if !ok {
		return nil, fmt.Errorf("expected constant, got %T", e.ExprKind)
	}
	switch kind := c.ConstExpr.ConstantKind.(type) {
	case *expr.Constant_StringValue:
		if f.Type == listing.Time || f.Type == listing.Date || len(f.Choices) > 0 {
			return listing.Convert(f, kind.StringValue)
		}
		return kind.StringValue, nil
	case *expr.Constant_Int64Value:
		return kind.Int64Value, nil
	case *expr.Constant_Uint64Value:
		return int64(kind.Uint64Value), nil
	case *expr.Constant_DoubleValue:
		return kind.DoubleValue, nil
	case *expr.Constant_BoolValue:
		return kind.BoolValue, nil
	default:
		return nil, fmt.Errorf("unsupported constant type: %T", kind)
	}
}
