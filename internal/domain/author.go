package domain

import "time"

// Gender values shared by authors and members.
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// Genders lists the accepted gender values.
var Genders = []string{GenderMale, GenderFemale, GenderOther}

// Author writes books. Deleting an author only flags it.
type Author struct {
	Model
	FirstName  string `json:"first_name"  validate:"required,max=100"`
	LastName   string `json:"last_name"   validate:"required,max=100"`
	BirthDate  *Date  `json:"birth_date"`
	ProfileURL string `json:"profile"     validate:"omitempty,url"`
	IsDeleted  bool   `json:"is_deleted"`
	Rating     int    `json:"rating"      validate:"min=1,max=10"`
}

// FullName is the display name of the author.
func (a *Author) FullName() string {
	return a.FirstName + " " + a.LastName
}

// SetDefaults prepares a fresh author before client data is applied.
func (a *Author) SetDefaults() {
	a.Rating = 1
}

// Validate checks the author fields.
func (a *Author) Validate() error {
	return validateStruct(a).Err()
}

// CopyReadOnly copies server-managed fields from prev.
func (a *Author) CopyReadOnly(prev *Author) {
	a.IsDeleted = prev.IsDeleted
}

// IsSoftDeleted implements SoftDeletable.
func (a *Author) IsSoftDeleted() bool { return a.IsDeleted }

// AuthorDetail holds the biography of exactly one author.
type AuthorDetail struct {
	Model
	AuthorID  int64  `json:"author"     validate:"required,gt=0"`
	Biography string `json:"biography"`
	BirthCity string `json:"birth_city" validate:"max=100"`
	Gender    string `json:"gender"     validate:"omitempty,oneof=male female other"`
}

// Validate checks the detail fields.
func (d *AuthorDetail) Validate() error {
	return validateStruct(d).Err()
}

// CopyReadOnly is a no-op; author details have no server-managed fields.
func (d *AuthorDetail) CopyReadOnly(*AuthorDetail) {}

// Publisher publishes books.
type Publisher struct {
	Model
	Name            string `json:"name"             validate:"required,max=100"`
	EstablishedDate *Date  `json:"established_date"`
}

// Validate checks the publisher fields.
func (p *Publisher) Validate() error {
	return validateStruct(p).Err()
}

// CopyReadOnly is a no-op; publishers have no server-managed fields.
func (p *Publisher) CopyReadOnly(*Publisher) {}

// Genre classifies books. Names are unique ignoring case.
type Genre struct {
	Model
	Name string `json:"name" validate:"required,max=50"`
}

// Validate checks the genre name.
func (g *Genre) Validate() error {
	return validateStruct(g).Err()
}

// CopyReadOnly is a no-op; genres have no server-managed fields.
func (g *Genre) CopyReadOnly(*Genre) {}

// GenreStat is one row of the genre statistic report.
type GenreStat struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	BookCount int    `json:"book_count"`
}

// Library is a branch that holds books and members.
type Library struct {
	Model
	Name     string `json:"name"     validate:"required,max=100"`
	Location string `json:"location" validate:"required,max=200"`
	Site     string `json:"site"     validate:"omitempty,url"`
}

// Validate checks the library fields.
func (l *Library) Validate() error {
	return validateStruct(l).Err()
}

// CopyReadOnly is a no-op; libraries have no server-managed fields.
func (l *Library) CopyReadOnly(*Library) {}

// Member roles.
const (
	RoleAdmin  = "admin"
	RoleStaff  = "staff"
	RoleReader = "reader"
)

// MemberRoles lists the accepted member roles.
var MemberRoles = []string{RoleAdmin, RoleStaff, RoleReader}

// Member is a library patron.
type Member struct {
	Model
	FirstName  string    `json:"first_name" validate:"required,max=50"`
	LastName   string    `json:"last_name"  validate:"required,max=50"`
	Email      string    `json:"email"      validate:"required,email"`
	Gender     string    `json:"gender"     validate:"omitempty,oneof=male female other"`
	BirthDate  *Date     `json:"birth_date"`
	Age        int       `json:"age"        validate:"min=6,max=120"`
	Role       string    `json:"role"       validate:"oneof=admin staff reader"`
	Active     bool      `json:"active"`
	LibraryIDs []int64   `json:"libraries"`
	CreatedAt  time.Time `json:"created_at"`
}

// SetDefaults prepares a fresh member before client data is applied.
func (m *Member) SetDefaults() {
	m.Role = RoleReader
	m.Active = true
}

// Validate checks the member fields.
func (m *Member) Validate() error {
	return validateStruct(m).Err()
}

// CopyReadOnly copies server-managed fields from prev.
func (m *Member) CopyReadOnly(prev *Member) {
	m.CreatedAt = prev.CreatedAt
}
