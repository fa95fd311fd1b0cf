package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/listing"
	"github.com/phrazzld/taskhub/internal/store"
)

// nameTaken reports whether a live row of table has name, ignoring case.
func nameTaken(ctx context.Context, db store.DBTX, table, live, name string, excludeID int64) (bool, error) {
	query := fmt.Sprintf(
		"SELECT EXISTS (SELECT 1 FROM %s t WHERE LOWER(t.name) = LOWER($1) AND t.id <> $2%s)", table, live)
	var taken bool
	if err := db.QueryRowContext(ctx, query, strings.TrimSpace(name), excludeID).Scan(&taken); err != nil {
		return false, MapError(err)
	}
	return taken, nil
}

// PostgresCategoryStore implements store.CategoryStore.
type PostgresCategoryStore struct {
	*Table[domain.Category, *domain.Category]
}

var _ store.CategoryStore = (*PostgresCategoryStore)(nil)

// NewPostgresCategoryStore creates a category store bound to db.
func NewPostgresCategoryStore(db store.DBTX, logger *slog.Logger) *PostgresCategoryStore {
	return &PostgresCategoryStore{Table: NewTable[domain.Category](db, CategoryTable(), logger)}
}

// NameTaken implements store.NameChecker. Deleted categories free their name.
func (s *PostgresCategoryStore) NameTaken(ctx context.Context, name string, excludeID int64) (bool, error) {
	return nameTaken(ctx, s.db, "categories", " AND NOT t.is_deleted", name, excludeID)
}

// CountTasks implements store.CategoryStore.
func (s *PostgresCategoryStore) CountTasks(ctx context.Context) ([]domain.CategoryTaskCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, COUNT(t.id)
		FROM categories c
		LEFT JOIN task_categories tc ON tc.category_id = c.id
		LEFT JOIN tasks t ON t.id = tc.task_id AND t.deleted_at IS NULL
		WHERE NOT c.is_deleted
		GROUP BY c.id, c.name
		ORDER BY c.id`)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	out := []domain.CategoryTaskCount{}
	for rows.Next() {
		var c domain.CategoryTaskCount
		if err := rows.Scan(&c.ID, &c.Name, &c.TasksCount); err != nil {
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return out, nil
}

// PostgresGenreStore implements store.GenreStore.
type PostgresGenreStore struct {
	*Table[domain.Genre, *domain.Genre]
}

var _ store.GenreStore = (*PostgresGenreStore)(nil)

// NewPostgresGenreStore creates a genre store bound to db.
func NewPostgresGenreStore(db store.DBTX, logger *slog.Logger) *PostgresGenreStore {
	return &PostgresGenreStore{Table: NewTable[domain.Genre](db, GenreTable(), logger)}
}

// NameTaken implements store.NameChecker.
func (s *PostgresGenreStore) NameTaken(ctx context.Context, name string, excludeID int64) (bool, error) {
	return nameTaken(ctx, s.db, "genres", "", name, excludeID)
}

// Statistic implements store.GenreStore.
func (s *PostgresGenreStore) Statistic(ctx context.Context) ([]domain.GenreStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.id, g.name, COUNT(b.id)
		FROM genres g
		LEFT JOIN books b ON b.genre_id = g.id
		GROUP BY g.id, g.name
		ORDER BY g.name, g.id`)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	out := []domain.GenreStat{}
	for rows.Next() {
		var g domain.GenreStat
		if err := rows.Scan(&g.ID, &g.Name, &g.BookCount); err != nil {
			return nil, fmt.Errorf("failed to scan genre statistic: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return out, nil
}

// BookTable describes how books are stored. The rating is the mean of the
// book's reviews.
func BookTable() TableDef[domain.Book] {
	type B = domain.Book
	return TableDef[B]{
		Entity: "book",
		Table:  "books",
		Columns: []Column[B]{
			col("name", func(b *B) *string { return &b.Name }),
			col("author_id", func(b *B) **int64 { return &b.AuthorID }),
			col("publisher_id", func(b *B) **int64 { return &b.PublisherID }),
			col("category_id", func(b *B) **int64 { return &b.CategoryID }),
			col("genre_id", func(b *B) **int64 { return &b.GenreID }),
			col("library_id", func(b *B) **int64 { return &b.LibraryID }),
			dateCol("published_date", func(b *B) **domain.Date { return &b.PublishedDate }),
			col("description", func(b *B) *string { return &b.Description }),
			col("pages", func(b *B) **int { return &b.Pages }),
			decimalCol("price", func(b *B) *decimal.Decimal { return &b.Price }),
			nullDecimalCol("discounted_price", func(b *B) *decimal.NullDecimal { return &b.DiscountedPrice }),
			col("is_bestseller", func(b *B) *bool { return &b.IsBestseller }),
			readOnly("created_at", func(b *B) *time.Time { return &b.CreatedAt }),
			computed("rating", bookRatingExpr, func(b *B) *float64 { return &b.Rating }),
		},
		Schema: listing.Schema{
			Fields: []listing.Field{
				{Name: "id", Column: "t.id", Type: listing.Int},
				{Name: "name", Column: "t.name"},
				{Name: "description", Column: "t.description"},
				{Name: "author", Column: "t.author_id", Type: listing.Int},
				{Name: "publisher", Column: "t.publisher_id", Type: listing.Int},
				{Name: "category", Column: "t.category_id", Type: listing.Int},
				{Name: "genre", Column: "t.genre_id", Type: listing.Int},
				{Name: "library", Column: "t.library_id", Type: listing.Int},
				{Name: "published_date", Column: "t.published_date", Type: listing.Date},
				{Name: "pages", Column: "t.pages", Type: listing.Int},
				{Name: "price", Column: "t.price", Type: listing.Decimal},
				{Name: "is_bestseller", Column: "t.is_bestseller", Type: listing.Bool},
				{Name: "created_at", Column: "t.created_at", Type: listing.Time},
			},
			Search:   []string{"name", "description"},
			Ordering: []string{"id", "name", "price", "published_date", "created_at"},
			Default:  "-id",
			Exact:    []string{"author", "publisher", "category", "genre", "library", "is_bestseller"},
		},
	}
}

const bookRatingExpr = "COALESCE((SELECT ROUND(AVG(r.rating), 2) FROM reviews r WHERE r.book_id = t.id), 0)::float8"

// PostgresBookStore implements store.BookStore.
type PostgresBookStore struct {
	*Table[domain.Book, *domain.Book]
}

var _ store.BookStore = (*PostgresBookStore)(nil)

// NewPostgresBookStore creates a book store bound to db.
func NewPostgresBookStore(db store.DBTX, logger *slog.Logger) *PostgresBookStore {
	return &PostgresBookStore{Table: NewTable[domain.Book](db, BookTable(), logger)}
}

// WithTx implements store.BookStore.
func (s *PostgresBookStore) WithTx(tx *sql.Tx) store.BookStore {
	return &PostgresBookStore{Table: s.Table.WithTx(tx)}
}

// Get implements store.Repository with the book not found error.
func (s *PostgresBookStore) Get(ctx context.Context, id int64) (*domain.Book, error) {
	b, err := s.Table.Get(ctx, id)
	if store.IsNotFoundError(err) {
		return nil, store.ErrBookNotFound
	}
	return b, err
}

// ListItems implements store.BookStore.
func (s *PostgresBookStore) ListItems(ctx context.Context, q listing.Query) ([]domain.BookListItem, int, error) {
	var b queryBuilder
	if err := b.applyListing(q, s.def.Schema); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT t.id, t.name,
		       a.first_name || ' ' || a.last_name,
		       p.name, c.name, l.name,
		       t.price, t.discounted_price, t.is_bestseller
		FROM books t
		LEFT JOIN authors a ON a.id = t.author_id
		LEFT JOIN publishers p ON p.id = t.publisher_id
		LEFT JOIN categories c ON c.id = t.category_id
		LEFT JOIN libraries l ON l.id = t.library_id` +
		b.Clause() + orderClause(q, "t.id") + pageClause(q)

	rows, err := s.db.QueryContext(ctx, query, b.Args()...)
	if err != nil {
		return nil, 0, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	out := []domain.BookListItem{}
	for rows.Next() {
		var it domain.BookListItem
		if err := rows.Scan(&it.ID, &it.Name, &it.Author, &it.Publisher, &it.Category, &it.Library,
			&it.Price, &it.DiscountedPrice, &it.IsBestseller); err != nil {
			return nil, 0, fmt.Errorf("failed to scan book item: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, MapError(err)
	}

	total, err := countIf(ctx, s.db, q, "SELECT COUNT(*) FROM books t"+b.Clause(), b.Args())
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// PostgresBulkStore implements store.BulkStore.
type PostgresBulkStore struct {
	db store.DBTX
}

var _ store.BulkStore = (*PostgresBulkStore)(nil)

// NewPostgresBulkStore creates a bulk store bound to db.
func NewPostgresBulkStore(db store.DBTX) *PostgresBulkStore {
	return &PostgresBulkStore{db: db}
}

// bulkColumns lists the columns admin actions may set, per table.
var bulkColumns = map[string][]string{
	"tasks":    {"status", "priority"},
	"subtasks": {"status"},
	"authors":  {"is_deleted"},
}

// SetColumn implements store.BulkStore.
func (s *PostgresBulkStore) SetColumn(ctx context.Context, model domain.ModelInfo, column string, value any, ids []int64) (int64, error) {
	if !slices.Contains(bulkColumns[model.Table], column) {
		return 0, fmt.Errorf("%w: %s.%s cannot be bulk updated", store.ErrInvalidEntity, model.Table, column)
	}
	query := fmt.Sprintf("UPDATE %s SET %s = $1 WHERE id = ANY($2)", model.Table, column)
	if model.Table == "tasks" {
		query = fmt.Sprintf(
			"UPDATE tasks SET %s = $1, updated_at = NOW() WHERE id = ANY($2) AND deleted_at IS NULL", column)
	}
	return execCount(ctx, s.db, query, value, ids)
}
