package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/listing"
	"github.com/phrazzld/taskhub/internal/platform/logger"
	"github.com/phrazzld/taskhub/internal/store"
)

// Entity constrains the pointer type of models stored through Table.
type Entity[T any] interface {
	*T
	domain.Entity
}

// Column maps one SQL column of the table to a field of T.
type Column[T any] struct {
	Name     string
	Value    func(*T) any // value written on insert and update
	Dest     func(*T) any // scan destination
	ReadOnly bool         // filled by the database, never written

	// Expr replaces the column with a computed SQL expression over "t".
	// Computed columns are never written.
	Expr string

	// SQL is written instead of Value, e.g. "NOW()". The stored value is
	// read back into Dest.
	SQL string
}

func (c Column[T]) selectExpr() string {
	if c.Expr != "" {
		return c.Expr
	}
	return "t." + c.Name
}

func (c Column[T]) writable() bool {
	return !c.ReadOnly && c.Expr == ""
}

func (c Column[T]) returned() bool {
	return (c.ReadOnly || c.SQL != "") && c.Expr == ""
}

// ManyToMany maps an ID slice of T to a join table.
type ManyToMany[T any] struct {
	Table     string
	OwnerCol  string
	TargetCol string
	IDs       func(*T) *[]int64
}

// SoftDelete describes how rows are hidden instead of removed.
type SoftDelete struct {
	Live string // condition over "t" that holds for visible rows
	Set  string // assignment that hides a row
}

// FlagDeleted hides rows by setting a boolean column.
func FlagDeleted(column string) *SoftDelete {
	return &SoftDelete{Live: "NOT t." + column, Set: column + " = TRUE"}
}

// StampDeleted hides rows by setting a timestamp column.
func StampDeleted(column string) *SoftDelete {
	return &SoftDelete{Live: "t." + column + " IS NULL", Set: column + " = NOW()"}
}

// TableDef describes how a model is stored.
type TableDef[T any] struct {
	Entity     string // name used in errors and logs
	Table      string
	Columns    []Column[T]
	ManyToMany []ManyToMany[T]
	SoftDelete *SoftDelete
	Schema     listing.Schema
}

// Table implements store.Repository by generating SQL from a TableDef.
// Every column expression is qualified with the alias "t".
type Table[T any, PT Entity[T]] struct {
	def    TableDef[T]
	db     store.DBTX
	logger *slog.Logger
}

// NewTable creates a Table bound to db.
func NewTable[T any, PT Entity[T]](db store.DBTX, def TableDef[T], logger *slog.Logger) *Table[T, PT] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Table[T, PT]{
		def:    def,
		db:     db,
		logger: logger.With(slog.String("component", def.Table+"_store")),
	}
}

var _ store.Repository[domain.Tag] = (*Table[domain.Tag, *domain.Tag])(nil)

// WithTx returns a Table that uses the provided transaction.
func (s *Table[T, PT]) WithTx(tx *sql.Tx) *Table[T, PT] {
	return &Table[T, PT]{def: s.def, db: tx, logger: s.logger}
}

// Schema returns the listing schema of the table.
func (s *Table[T, PT]) Schema() listing.Schema {
	return s.def.Schema
}

func (s *Table[T, PT]) selectList() string {
	cols := make([]string, 0, len(s.def.Columns)+len(s.def.ManyToMany)+1)
	cols = append(cols, "t.id")
	for _, c := range s.def.Columns {
		cols = append(cols, c.selectExpr())
	}
	for _, m := range s.def.ManyToMany {
		cols = append(cols, fmt.Sprintf(
			"COALESCE((SELECT string_agg(j.%s::text, ',' ORDER BY j.%s) FROM %s j WHERE j.%s = t.id), '')",
			m.TargetCol, m.TargetCol, m.Table, m.OwnerCol))
	}
	return strings.Join(cols, ", ")
}

func (s *Table[T, PT]) scan(row interface{ Scan(...any) error }) (*T, error) {
	v := new(T)
	dest := make([]any, 0, len(s.def.Columns)+len(s.def.ManyToMany)+1)
	var id int64
	dest = append(dest, &id)
	for _, c := range s.def.Columns {
		dest = append(dest, c.Dest(v))
	}
	joined := make([]string, len(s.def.ManyToMany))
	for i := range s.def.ManyToMany {
		dest = append(dest, &joined[i])
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	PT(v).SetID(id)
	for i, m := range s.def.ManyToMany {
		ids, err := parseIDList(joined[i])
		if err != nil {
			return nil, err
		}
		*m.IDs(v) = ids
	}
	return v, nil
}

func (s *Table[T, PT]) liveCondition(b *queryBuilder) {
	if s.def.SoftDelete != nil {
		b.Where(s.def.SoftDelete.Live)
	}
}

// atomic runs fn in a transaction when the table writes join rows and is
// bound to a *sql.DB. A table already bound to a transaction runs fn as is.
func (s *Table[T, PT]) atomic(ctx context.Context, fn func(t *Table[T, PT]) error) error {
	db, ok := s.db.(*sql.DB)
	if !ok || len(s.def.ManyToMany) == 0 {
		return fn(s)
	}
	return store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(s.WithTx(tx))
	})
}

// Create implements store.Repository. The row and its join rows are written
// in one transaction.
func (s *Table[T, PT]) Create(ctx context.Context, v *T) error {
	return s.atomic(ctx, func(t *Table[T, PT]) error {
		return t.create(ctx, v)
	})
}

func (s *Table[T, PT]) create(ctx context.Context, v *T) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var (
		b       queryBuilder
		names   []string
		holders []string
	)
	for _, c := range s.def.Columns {
		if !c.writable() {
			continue
		}
		names = append(names, c.Name)
		if c.SQL != "" {
			holders = append(holders, c.SQL)
		} else {
			holders = append(holders, b.arg(c.Value(v)))
		}
	}
	query := fmt.Sprintf("INSERT INTO %s AS t (%s) VALUES (%s) RETURNING %s",
		s.def.Table, strings.Join(names, ", "), strings.Join(holders, ", "), s.returningList())

	if err := s.scanReturning(s.db.QueryRowContext(ctx, query, b.Args()...), v); err != nil {
		log.Warn("failed to create row", slog.String("error", err.Error()))
		return MapError(err)
	}
	if err := s.writeManyToMany(ctx, v, false); err != nil {
		return err
	}
	log.Debug("row created", slog.Int64("id", PT(v).GetID()))
	return s.refresh(ctx, v)
}

// refresh re-reads v when the table has computed columns.
func (s *Table[T, PT]) refresh(ctx context.Context, v *T) error {
	for _, c := range s.def.Columns {
		if c.Expr == "" {
			continue
		}
		fresh, err := s.Get(ctx, PT(v).GetID())
		if err != nil {
			return err
		}
		*v = *fresh
		return nil
	}
	return nil
}

// returningList lists the primary key and the columns the database fills in.
func (s *Table[T, PT]) returningList() string {
	cols := []string{"t.id"}
	for _, c := range s.def.Columns {
		if c.returned() {
			cols = append(cols, "t."+c.Name)
		}
	}
	return strings.Join(cols, ", ")
}

func (s *Table[T, PT]) scanReturning(row *sql.Row, v *T) error {
	var id int64
	dest := []any{&id}
	for _, c := range s.def.Columns {
		if c.returned() {
			dest = append(dest, c.Dest(v))
		}
	}
	if err := row.Scan(dest...); err != nil {
		return err
	}
	PT(v).SetID(id)
	return nil
}

// Get implements store.Repository.
func (s *Table[T, PT]) Get(ctx context.Context, id int64) (*T, error) {
	var b queryBuilder
	b.Where("t.id = ?", id)
	s.liveCondition(&b)

	query := fmt.Sprintf("SELECT %s FROM %s t%s", s.selectList(), s.def.Table, b.Clause())
	v, err := s.scan(s.db.QueryRowContext(ctx, query, b.Args()...))
	if err != nil {
		return nil, notFound(err, store.NotFound(s.def.Entity))
	}
	return v, nil
}

// Update implements store.Repository. Join rows are replaced in the same
// transaction as the row.
func (s *Table[T, PT]) Update(ctx context.Context, v *T) error {
	return s.atomic(ctx, func(t *Table[T, PT]) error {
		return t.update(ctx, v)
	})
}

func (s *Table[T, PT]) update(ctx context.Context, v *T) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var (
		b    queryBuilder
		sets []string
	)
	for _, c := range s.def.Columns {
		if !c.writable() {
			continue
		}
		if c.SQL != "" {
			sets = append(sets, c.Name+" = "+c.SQL)
		} else {
			sets = append(sets, c.Name+" = "+b.arg(c.Value(v)))
		}
	}
	id := PT(v).GetID()
	query := fmt.Sprintf("UPDATE %s AS t SET %s WHERE t.id = %s", s.def.Table, strings.Join(sets, ", "), b.arg(id))
	if s.def.SoftDelete != nil {
		query += " AND " + s.def.SoftDelete.Live
	}
	query += " RETURNING " + s.returningList()

	if err := s.scanReturning(s.db.QueryRowContext(ctx, query, b.Args()...), v); err != nil {
		log.Warn("failed to update row", slog.Int64("id", id), slog.String("error", err.Error()))
		return notFound(err, store.NotFound(s.def.Entity))
	}
	if err := s.writeManyToMany(ctx, v, true); err != nil {
		return err
	}
	return s.refresh(ctx, v)
}

// Delete implements store.Repository.
func (s *Table[T, PT]) Delete(ctx context.Context, id int64) error {
	var query string
	if sd := s.def.SoftDelete; sd != nil {
		query = fmt.Sprintf("UPDATE %s AS t SET %s WHERE t.id = $1 AND %s", s.def.Table, sd.Set, sd.Live)
	} else {
		query = fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.def.Table)
	}

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, s.def.Entity)
}

// List implements store.Repository.
func (s *Table[T, PT]) List(ctx context.Context, q listing.Query) ([]T, int, error) {
	return s.ListWhere(ctx, q, "")
}

// ListWhere is List restricted by an extra condition. Each "?" in cond is
// bound to the next value of args.
func (s *Table[T, PT]) ListWhere(ctx context.Context, q listing.Query, cond string, args ...any) ([]T, int, error) {
	var b queryBuilder
	s.liveCondition(&b)
	if cond != "" {
		b.Where(cond, args...)
	}
	if err := b.applyListing(q, s.def.Schema); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s t%s%s%s",
		s.selectList(), s.def.Table, b.Clause(), orderClause(q, "t.id"), pageClause(q))

	rows, err := s.db.QueryContext(ctx, query, b.Args()...)
	if err != nil {
		return nil, 0, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	out := []T{}
	for rows.Next() {
		v, err := s.scan(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan %s row: %w", s.def.Entity, err)
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, MapError(err)
	}

	total, err := countIf(ctx, s.db, q, fmt.Sprintf("SELECT COUNT(*) FROM %s t%s", s.def.Table, b.Clause()), b.Args())
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *Table[T, PT]) writeManyToMany(ctx context.Context, v *T, replace bool) error {
	id := PT(v).GetID()
	for _, m := range s.def.ManyToMany {
		if replace {
			del := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", m.Table, m.OwnerCol)
			if _, err := s.db.ExecContext(ctx, del, id); err != nil {
				return MapError(err)
			}
		}
		if err := insertLinks(ctx, s.db, m.Table, m.OwnerCol, m.TargetCol, id, *m.IDs(v)); err != nil {
			return err
		}
	}
	return nil
}

// insertLinks adds join rows from owner to every target.
func insertLinks(ctx context.Context, db store.DBTX, table, ownerCol, targetCol string, owner int64, targets []int64) error {
	if len(targets) == 0 {
		return nil
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (%s, %s) SELECT $1, unnest($2::bigint[]) ON CONFLICT DO NOTHING",
		table, ownerCol, targetCol)
	if _, err := db.ExecContext(ctx, query, owner, targets); err != nil {
		return MapError(err)
	}
	return nil
}

// countIf runs the count query only in page mode.
func countIf(ctx context.Context, db store.DBTX, q listing.Query, query string, args []any) (int, error) {
	if q.Mode != listing.PageMode {
		return 0, nil
	}
	var total int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, MapError(err)
	}
	return total, nil
}

func parseIDList(s string) ([]int64, error) {
	if s == "" {
		return []int64{}, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]int64, len(parts))
	for i, p := range parts {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q in join list: %w", p, err)
		}
		ids[i] = id
	}
	return ids, nil
}
