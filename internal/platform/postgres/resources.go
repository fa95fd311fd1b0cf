package postgres

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/listing"
)

// Table definitions of the models stored through the generic mapper.

func ProjectTable() TableDef[domain.Project] {
	type P = domain.Project
	return TableDef[P]{
		Entity: "project",
		Table:  "projects",
		Columns: []Column[P]{
			col("name", func(p *P) *string { return &p.Name }),
			col("description", func(p *P) *string { return &p.Description }),
			readOnly("created_at", func(p *P) *time.Time { return &p.CreatedAt }),
			computed("files_count",
				"(SELECT COUNT(*) FROM project_file_links l WHERE l.project_id = t.id)",
				func(p *P) *int { return &p.FilesCount }),
		},
		ManyToMany: []ManyToMany[P]{
			{Table: "project_file_links", OwnerCol: "project_id", TargetCol: "file_id",
				IDs: func(p *P) *[]int64 { return &p.FileIDs }},
		},
		Schema: listing.Schema{
			Fields: []listing.Field{
				{Name: "id", Column: "t.id", Type: listing.Int},
				{Name: "name", Column: "t.name"},
				{Name: "description", Column: "t.description"},
				{Name: "created_at", Column: "t.created_at", Type: listing.Time},
			},
			Search:   []string{"name", "description"},
			Ordering: []string{"id", "name", "created_at"},
			Default:  "-name",
			Exact:    []string{"name"},
		},
	}
}

func ProjectFileTable() TableDef[domain.ProjectFile] {
	type F = domain.ProjectFile
	return TableDef[F]{
		Entity: "project file",
		Table:  "project_files",
		Columns: []Column[F]{
			col("name", func(f *F) *string { return &f.Name }),
			col("path", func(f *F) *string { return &f.Path }),
			col("size", func(f *F) *int64 { return &f.Size }),
			readOnly("created_at", func(f *F) *time.Time { return &f.CreatedAt }),
		},
		Schema: listing.Schema{
			Fields: []listing.Field{
				{Name: "id", Column: "t.id", Type: listing.Int},
				{Name: "name", Column: "t.name"},
				{Name: "created_at", Column: "t.created_at", Type: listing.Time},
			},
			Search:   []string{"name"},
			Ordering: []string{"id", "name", "created_at"},
			Default:  "-id",
		},
	}
}

func TagTable() TableDef[domain.Tag] {
	type G = domain.Tag
	return TableDef[G]{
		Entity:  "tag",
		Table:   "tags",
		Columns: []Column[G]{col("name", func(t *G) *string { return &t.Name })},
		Schema: listing.Schema{
			Fields: []listing.Field{
				{Name: "id", Column: "t.id", Type: listing.Int},
				{Name: "name", Column: "t.name"},
			},
			Search:   []string{"name"},
			Ordering: []string{"id", "name"},
			Default:  "-id",
			Exact:    []string{"name"},
		},
	}
}

func CategoryTable() TableDef[domain.Category] {
	type C = domain.Category
	return TableDef[C]{
		Entity: "category",
		Table:  "categories",
		Columns: []Column[C]{
			col("name", func(c *C) *string { return &c.Name }),
			readOnly("is_deleted", func(c *C) *bool { return &c.IsDeleted }),
		},
		SoftDelete: FlagDeleted("is_deleted"),
		Schema:     nameSchema(),
	}
}

func GenreTable() TableDef[domain.Genre] {
	type G = domain.Genre
	return TableDef[G]{
		Entity:  "genre",
		Table:   "genres",
		Columns: []Column[G]{col("name", func(g *G) *string { return &g.Name })},
		Schema:  nameSchema(),
	}
}

func PublisherTable() TableDef[domain.Publisher] {
	type P = domain.Publisher
	return TableDef[P]{
		Entity: "publisher",
		Table:  "publishers",
		Columns: []Column[P]{
			col("name", func(p *P) *string { return &p.Name }),
			dateCol("established_date", func(p *P) **domain.Date { return &p.EstablishedDate }),
		},
		Schema: listing.Schema{
			Fields: []listing.Field{
				{Name: "id", Column: "t.id", Type: listing.Int},
				{Name: "name", Column: "t.name"},
				{Name: "established_date", Column: "t.established_date", Type: listing.Date},
			},
			Search:   []string{"name"},
			Ordering: []string{"id", "name", "established_date"},
			Default:  "-id",
		},
	}
}

func AuthorTable() TableDef[domain.Author] {
	type A = domain.Author
	return TableDef[A]{
		Entity: "author",
		Table:  "authors",
		Columns: []Column[A]{
			col("first_name", func(a *A) *string { return &a.FirstName }),
			col("last_name", func(a *A) *string { return &a.LastName }),
			dateCol("birth_date", func(a *A) **domain.Date { return &a.BirthDate }),
			col("profile_url", func(a *A) *string { return &a.ProfileURL }),
			readOnly("is_deleted", func(a *A) *bool { return &a.IsDeleted }),
			col("rating", func(a *A) *int { return &a.Rating }),
		},
		SoftDelete: FlagDeleted("is_deleted"),
		Schema: listing.Schema{
			Fields: []listing.Field{
				{Name: "id", Column: "t.id", Type: listing.Int},
				{Name: "first_name", Column: "t.first_name"},
				{Name: "last_name", Column: "t.last_name"},
				{Name: "birth_date", Column: "t.birth_date", Type: listing.Date},
				{Name: "rating", Column: "t.rating", Type: listing.Int},
			},
			Search:   []string{"first_name", "last_name"},
			Ordering: []string{"id", "last_name", "birth_date", "rating"},
			Default:  "-id",
			Exact:    []string{"rating"},
		},
	}
}

func AuthorDetailTable() TableDef[domain.AuthorDetail] {
	type D = domain.AuthorDetail
	return TableDef[D]{
		Entity: "author detail",
		Table:  "author_details",
		Columns: []Column[D]{
			col("author_id", func(d *D) *int64 { return &d.AuthorID }),
			col("biography", func(d *D) *string { return &d.Biography }),
			col("birth_city", func(d *D) *string { return &d.BirthCity }),
			col("gender", func(d *D) *string { return &d.Gender }),
		},
		Schema: listing.Schema{
			Fields: []listing.Field{
				{Name: "id", Column: "t.id", Type: listing.Int},
				{Name: "author", Column: "t.author_id", Type: listing.Int},
				{Name: "biography", Column: "t.biography"},
				{Name: "birth_city", Column: "t.birth_city"},
				{Name: "gender", Column: "t.gender", Choices: domain.Genders},
			},
			Search:   []string{"biography", "birth_city"},
			Ordering: []string{"id", "birth_city"},
			Default:  "-id",
			Exact:    []string{"author", "gender"},
		},
	}
}

func LibraryTable() TableDef[domain.Library] {
	type L = domain.Library
	return TableDef[L]{
		Entity: "library",
		Table:  "libraries",
		Columns: []Column[L]{
			col("name", func(l *L) *string { return &l.Name }),
			col("location", func(l *L) *string { return &l.Location }),
			col("site", func(l *L) *string { return &l.Site }),
		},
		Schema: listing.Schema{
			Fields: []listing.Field{
				{Name: "id", Column: "t.id", Type: listing.Int},
				{Name: "name", Column: "t.name"},
				{Name: "location", Column: "t.location"},
			},
			Search:   []string{"name", "location"},
			Ordering: []string{"id", "name"},
			Default:  "-id",
		},
	}
}

func MemberTable() TableDef[domain.Member] {
	type M = domain.Member
	return TableDef[M]{
		Entity: "member",
		Table:  "members",
		Columns: []Column[M]{
			col("first_name", func(m *M) *string { return &m.FirstName }),
			col("last_name", func(m *M) *string { return &m.LastName }),
			col("email", func(m *M) *string { return &m.Email }),
			col("gender", func(m *M) *string { return &m.Gender }),
			dateCol("birth_date", func(m *M) **domain.Date { return &m.BirthDate }),
			col("age", func(m *M) *int { return &m.Age }),
			col("role", func(m *M) *string { return &m.Role }),
			col("active", func(m *M) *bool { return &m.Active }),
			readOnly("created_at", func(m *M) *time.Time { return &m.CreatedAt }),
		},
		ManyToMany: []ManyToMany[M]{
			{Table: "member_libraries", OwnerCol: "member_id", TargetCol: "library_id",
				IDs: func(m *M) *[]int64 { return &m.LibraryIDs }},
		},
		Schema: listing.Schema{
			Fields: []listing.Field{
				{Name: "id", Column: "t.id", Type: listing.Int},
				{Name: "first_name", Column: "t.first_name"},
				{Name: "last_name", Column: "t.last_name"},
				{Name: "email", Column: "t.email"},
				{Name: "gender", Column: "t.gender", Choices: domain.Genders},
				{Name: "age", Column: "t.age", Type: listing.Int},
				{Name: "role", Column: "t.role", Choices: domain.MemberRoles},
				{Name: "active", Column: "t.active", Type: listing.Bool},
				{Name: "created_at", Column: "t.created_at", Type: listing.Time},
			},
			Search:   []string{"first_name", "last_name", "email"},
			Ordering: []string{"id", "last_name", "age", "created_at"},
			Default:  "-id",
			Exact:    []string{"role", "active", "gender"},
		},
	}
}

func PostTable() TableDef[domain.Post] {
	type P = domain.Post
	return TableDef[P]{
		Entity: "post",
		Table:  "posts",
		Columns: []Column[P]{
			col("title", func(p *P) *string { return &p.Title }),
			col("text", func(p *P) *string { return &p.Text }),
			col("author_id", func(p *P) *int64 { return &p.AuthorID }),
			col("library_id", func(p *P) *int64 { return &p.LibraryID }),
			col("is_moderated", func(p *P) *bool { return &p.IsModerated }),
			readOnly("created_at", func(p *P) *domain.Date { return &p.CreatedAt }),
			{
				Name: "updated_at",
				SQL:  "NOW()",
				Dest: func(p *P) any { return &p.UpdatedAt },
			},
		},
		Schema: listing.Schema{
			Fields: []listing.Field{
				{Name: "id", Column: "t.id", Type: listing.Int},
				{Name: "title", Column: "t.title"},
				{Name: "text", Column: "t.text"},
				{Name: "author", Column: "t.author_id", Type: listing.Int},
				{Name: "library", Column: "t.library_id", Type: listing.Int},
				{Name: "is_moderated", Column: "t.is_moderated", Type: listing.Bool},
				{Name: "created_at", Column: "t.created_at", Type: listing.Date},
			},
			Search:   []string{"title", "text"},
			Ordering: []string{"id", "title", "created_at"},
			Default:  "-id",
			Exact:    []string{"author", "library", "is_moderated"},
		},
	}
}

func BorrowTable() TableDef[domain.Borrow] {
	type B = domain.Borrow
	return TableDef[B]{
		Entity: "borrow",
		Table:  "borrows",
		Columns: []Column[B]{
			col("member_id", func(b *B) *int64 { return &b.MemberID }),
			col("book_id", func(b *B) *int64 { return &b.BookID }),
			col("library_id", func(b *B) *int64 { return &b.LibraryID }),
			dayCol("borrow_date", func(b *B) *domain.Date { return &b.BorrowDate }),
			dayCol("return_date", func(b *B) *domain.Date { return &b.ReturnDate }),
			col("is_returned", func(b *B) *bool { return &b.IsReturned }),
			computed("is_overdue", "(NOT t.is_returned AND t.return_date < CURRENT_DATE)",
				func(b *B) *bool { return &b.IsOverdue }),
		},
		Schema: listing.Schema{
			Fields: []listing.Field{
				{Name: "id", Column: "t.id", Type: listing.Int},
				{Name: "member", Column: "t.member_id", Type: listing.Int},
				{Name: "book", Column: "t.book_id", Type: listing.Int},
				{Name: "library", Column: "t.library_id", Type: listing.Int},
				{Name: "borrow_date", Column: "t.borrow_date", Type: listing.Date},
				{Name: "return_date", Column: "t.return_date", Type: listing.Date},
				{Name: "is_returned", Column: "t.is_returned", Type: listing.Bool},
			},
			Ordering: []string{"id", "borrow_date", "return_date"},
			Default:  "-id",
			Exact:    []string{"member", "book", "library", "is_returned"},
		},
	}
}

func ReviewTable() TableDef[domain.Review] {
	type R = domain.Review
	return TableDef[R]{
		Entity: "review",
		Table:  "reviews",
		Columns: []Column[R]{
			col("book_id", func(r *R) *int64 { return &r.BookID }),
			col("reviewer_id", func(r *R) *int64 { return &r.ReviewerID }),
			decimalCol("rating", func(r *R) *decimal.Decimal { return &r.Rating }),
			col("text", func(r *R) *string { return &r.Text }),
			readOnly("created_at", func(r *R) *time.Time { return &r.CreatedAt }),
		},
		Schema: listing.Schema{
			Fields: []listing.Field{
				{Name: "id", Column: "t.id", Type: listing.Int},
				{Name: "book", Column: "t.book_id", Type: listing.Int},
				{Name: "reviewer", Column: "t.reviewer_id", Type: listing.Int},
				{Name: "rating", Column: "t.rating", Type: listing.Decimal},
				{Name: "text", Column: "t.text"},
				{Name: "created_at", Column: "t.created_at", Type: listing.Time},
			},
			Search:   []string{"text"},
			Ordering: []string{"id", "rating", "created_at"},
			Default:  "-created_at",
			Exact:    []string{"book", "reviewer"},
		},
	}
}

func EventTable() TableDef[domain.Event] {
	type E = domain.Event
	return TableDef[E]{
		Entity: "event",
		Table:  "events",
		Columns: []Column[E]{
			col("title", func(e *E) *string { return &e.Title }),
			col("description", func(e *E) *string { return &e.Description }),
			col("event_date", func(e *E) *time.Time { return &e.EventDate }),
			col("library_id", func(e *E) *int64 { return &e.LibraryID }),
		},
		ManyToMany: []ManyToMany[E]{
			{Table: "event_books", OwnerCol: "event_id", TargetCol: "book_id",
				IDs: func(e *E) *[]int64 { return &e.BookIDs }},
		},
		Schema: listing.Schema{
			Fields: []listing.Field{
				{Name: "id", Column: "t.id", Type: listing.Int},
				{Name: "title", Column: "t.title"},
				{Name: "description", Column: "t.description"},
				{Name: "event_date", Column: "t.event_date", Type: listing.Time},
				{Name: "library", Column: "t.library_id", Type: listing.Int},
			},
			Search:   []string{"title", "description"},
			Ordering: []string{"id", "title", "event_date"},
			Default:  "-event_date",
			Exact:    []string{"library"},
		},
	}
}

func EventParticipantTable() TableDef[domain.EventParticipant] {
	type P = domain.EventParticipant
	return TableDef[P]{
		Entity: "event participant",
		Table:  "event_participants",
		Columns: []Column[P]{
			col("event_id", func(p *P) *int64 { return &p.EventID }),
			col("member_id", func(p *P) *int64 { return &p.MemberID }),
			readOnly("registration_date", func(p *P) *time.Time { return &p.RegistrationDate }),
		},
		Schema: listing.Schema{
			Fields: []listing.Field{
				{Name: "id", Column: "t.id", Type: listing.Int},
				{Name: "event", Column: "t.event_id", Type: listing.Int},
				{Name: "member", Column: "t.member_id", Type: listing.Int},
				{Name: "registration_date", Column: "t.registration_date", Type: listing.Time},
			},
			Ordering: []string{"id", "registration_date"},
			Default:  "-id",
			Exact:    []string{"event", "member"},
		},
	}
}

func nameSchema() listing.Schema {
	return listing.Schema{
		Fields: []listing.Field{
			{Name: "id", Column: "t.id", Type: listing.Int},
			{Name: "name", Column: "t.name"},
		},
		Search:   []string{"name"},
		Ordering: []string{"id", "name"},
		Default:  "-id",
	}
}

// choices converts enumeration values into listing choices.
func choices[S ~string](values []S) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
