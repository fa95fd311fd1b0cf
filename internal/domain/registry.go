package domain

import (
	"reflect"
	"strings"
)

// RelationKind describes how a field references another model.
type RelationKind string

// Relation kinds.
const (
	ForeignKey RelationKind = "ForeignKey"
	ManyToMany RelationKind = "ManyToMany"
	OneToOne   RelationKind = "OneToOne"
)

// Relation is a reference from one model field to another model.
type Relation struct {
	Field    string       `json:"field"`
	Model    string       `json:"model"`
	Kind     RelationKind `json:"kind"`
	OnDelete string       `json:"on_delete,omitempty"`
}

// ModelInfo describes a persisted model.
type ModelInfo struct {
	Name      string // permission object name, e.g. "task"
	Plural    string // URL segment, e.g. "tasks"
	Verbose   string
	Table     string
	Type      reflect.Type
	Relations []Relation
}

// Field is one JSON field of a model.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Fields lists the JSON fields of the model, embedded structs flattened.
func (m ModelInfo) Fields() []Field {
	return jsonFields(m.Type)
}

func jsonFields(t reflect.Type) []Field {
	var fields []Field
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct && f.Tag.Get("json") == "" {
			fields = append(fields, jsonFields(f.Type)...)
			continue
		}
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" || !f.IsExported() {
			continue
		}
		fields = append(fields, Field{Name: name, Type: f.Type.String()})
	}
	return fields
}

func model[T any](name, plural, verbose, table string, rels ...Relation) ModelInfo {
	return ModelInfo{
		Name:      name,
		Plural:    plural,
		Verbose:   verbose,
		Table:     table,
		Type:      reflect.TypeFor[T](),
		Relations: rels,
	}
}

func fk(field, target, onDelete string) Relation {
	return Relation{Field: field, Model: target, Kind: ForeignKey, OnDelete: onDelete}
}

func m2m(field, target string) Relation {
	return Relation{Field: field, Model: target, Kind: ManyToMany}
}

var registry = []ModelInfo{
	model[User]("user", "users", "User", "users"),
	model[Group]("group", "groups", "Group", "auth_groups"),
	model[Permission]("permission", "permissions", "Permission", "auth_group_permissions"),
	model[Project]("project", "projects", "Project", "projects", m2m("files", "projectfile")),
	model[ProjectFile]("projectfile", "project-files", "Project file", "project_files"),
	model[Tag]("tag", "tags", "Tag", "tags"),
	model[Category]("category", "categories", "Category", "categories"),
	model[Task]("task", "tasks", "Task", "tasks",
		fk("project", "project", "CASCADE"),
		fk("assignee", "user", "SET_NULL"),
		fk("owner_id", "user", "CASCADE"),
		m2m("categories", "category"),
		m2m("tags", "tag"),
	),
	model[SubTask]("subtask", "subtasks", "Sub-task", "subtasks",
		fk("task", "task", "CASCADE"),
		fk("owner_id", "user", "CASCADE"),
	),
	model[Author]("author", "authors", "Author", "authors"),
	model[AuthorDetail]("authordetail", "author-details", "Author detail", "author_details",
		Relation{Field: "author", Model: "author", Kind: OneToOne, OnDelete: "CASCADE"},
	),
	model[Publisher]("publisher", "publishers", "Publisher", "publishers"),
	model[Genre]("genre", "genres", "Genre", "genres"),
	model[Library]("library", "libraries", "Library", "libraries"),
	model[Member]("member", "members", "Member", "members", m2m("libraries", "library")),
	model[Book]("book", "books", "Book", "books",
		fk("author", "author", "SET_NULL"),
		fk("publisher", "publisher", "SET_NULL"),
		fk("category", "category", "SET_NULL"),
		fk("genre", "genre", "SET_NULL"),
		fk("library", "library", "SET_NULL"),
	),
	model[Post]("post", "posts", "Post", "posts",
		fk("author", "member", "CASCADE"),
		fk("library", "library", "CASCADE"),
	),
	model[Borrow]("borrow", "borrows", "Borrow", "borrows",
		fk("member", "member", "CASCADE"),
		fk("book", "book", "CASCADE"),
		fk("library", "library", "CASCADE"),
	),
	model[Review]("review", "reviews", "Review", "reviews",
		fk("book", "book", "CASCADE"),
		fk("reviewer", "member", "CASCADE"),
	),
	model[Event]("event", "events", "Event", "events",
		fk("library", "library", "CASCADE"),
		m2m("books", "book"),
	),
	model[EventParticipant]("eventparticipant", "event-participants", "Event participant", "event_participants",
		fk("event", "event", "CASCADE"),
		fk("member", "member", "CASCADE"),
	),
}

// Models returns every registered model in declaration order.
func Models() []ModelInfo {
	out := make([]ModelInfo, len(registry))
	copy(out, registry)
	return out
}

// LookupModel finds a model by its name or plural.
func LookupModel(name string) (ModelInfo, bool) {
	for _, m := range registry {
		if m.Name == name || m.Plural == name {
			return m, true
		}
	}
	return ModelInfo{}, false
}
