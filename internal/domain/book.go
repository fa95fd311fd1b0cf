package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxBookPages is the largest page count a book may declare.
const MaxBookPages = 10000

// Book is a title held by a library.
type Book struct {
	Model
	Name            string              `json:"name"             validate:"required,max=100"`
	AuthorID        *int64              `json:"author"`
	PublisherID     *int64              `json:"publisher"`
	CategoryID      *int64              `json:"category"`
	GenreID         *int64              `json:"genre"`
	LibraryID       *int64              `json:"library"`
	PublishedDate   *Date               `json:"published_date"`
	Description     string              `json:"description"`
	Pages           *int                `json:"pages"`
	Price           decimal.Decimal     `json:"price"`
	DiscountedPrice decimal.NullDecimal `json:"discounted_price"`
	IsBestseller    bool                `json:"is_bestseller"`
	CreatedAt       time.Time           `json:"created_at"`
	Rating          float64             `json:"rating"`
}

// Validate checks the book fields.
func (b *Book) Validate() error {
	fe := validateStruct(b)
	if b.Pages != nil && (*b.Pages < 1 || *b.Pages > MaxBookPages) {
		fe.Add("pages", "Ensure this value is between 1 and 10000.")
	}
	if err := checkPrice(b.Price); err != "" {
		fe.Add("price", err)
	}
	if b.DiscountedPrice.Valid {
		if err := checkPrice(b.DiscountedPrice.Decimal); err != "" {
			fe.Add("discounted_price", err)
		} else if b.DiscountedPrice.Decimal.GreaterThan(b.Price) {
			fe.Add("discounted_price", "Discounted price cannot exceed the price.")
		}
	}
	return fe.Err()
}

// checkPrice enforces decimal(8,2) with no negative values.
func checkPrice(p decimal.Decimal) string {
	switch {
	case p.IsNegative():
		return "Ensure this value is greater than or equal to 0."
	case !p.Equal(p.Round(2)):
		return "Ensure that there are no more than 2 decimal places."
	case p.GreaterThanOrEqual(decimal.New(1, 6)):
		return "Ensure that there are no more than 8 digits in total."
	}
	return ""
}

// CopyReadOnly copies server-managed fields from prev.
func (b *Book) CopyReadOnly(prev *Book) {
	b.CreatedAt = prev.CreatedAt
	b.Rating = prev.Rating
}

// BookListItem is the compact list representation of a book, with related
// rows rendered as display strings.
type BookListItem struct {
	ID              int64               `json:"id"`
	Name            string              `json:"name"`
	Author          *string             `json:"author"`
	Publisher       *string             `json:"publisher"`
	Category        *string             `json:"category"`
	Library         *string             `json:"library"`
	Price           decimal.Decimal     `json:"price"`
	DiscountedPrice decimal.NullDecimal `json:"discounted_price"`
	IsBestseller    bool                `json:"is_bestseller"`
}

// Post is a message a member publishes in a library.
type Post struct {
	Model
	Title       string    `json:"title"        validate:"required,max=255"`
	Text        string    `json:"text"         validate:"required"`
	AuthorID    int64     `json:"author"       validate:"required,gt=0"`
	LibraryID   int64     `json:"library"      validate:"required,gt=0"`
	IsModerated bool      `json:"is_moderated"`
	CreatedAt   Date      `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate checks the post fields.
func (p *Post) Validate() error {
	return validateStruct(p).Err()
}

// CopyReadOnly copies server-managed fields from prev.
func (p *Post) CopyReadOnly(prev *Post) {
	p.CreatedAt = prev.CreatedAt
	p.UpdatedAt = prev.UpdatedAt
}

// Borrow records a member taking a book out of a library.
type Borrow struct {
	Model
	MemberID   int64 `json:"member"      validate:"required,gt=0"`
	BookID     int64 `json:"book"        validate:"required,gt=0"`
	LibraryID  int64 `json:"library"     validate:"required,gt=0"`
	BorrowDate Date  `json:"borrow_date"`
	ReturnDate Date  `json:"return_date"`
	IsReturned bool  `json:"is_returned"`
	IsOverdue  bool  `json:"is_overdue"`
}

// SetDefaults prepares a fresh borrow before client data is applied.
func (b *Borrow) SetDefaults() {
	b.BorrowDate = Today()
}

// Validate checks the borrow fields.
func (b *Borrow) Validate() error {
	fe := validateStruct(b)
	if b.ReturnDate.IsZero() {
		fe.Add("return_date", "This field is required.")
	} else if b.ReturnDate.Before(b.BorrowDate) {
		fe.Add("return_date", "Return date cannot be before the borrow date.")
	}
	return fe.Err()
}

// Overdue reports whether the book is still out after its return date.
func (b *Borrow) Overdue(today Date) bool {
	return !b.IsReturned && b.ReturnDate.Before(today)
}

// CopyReadOnly recomputes the derived overdue flag.
func (b *Borrow) CopyReadOnly(*Borrow) {
	b.IsOverdue = b.Overdue(Today())
}

// Review rating bounds.
var (
	MinReviewRating = decimal.RequireFromString("1.0")
	MaxReviewRating = decimal.RequireFromString("5.0")
)

// Review is a member's rating of a book.
type Review struct {
	Model
	BookID     int64           `json:"book"       validate:"required,gt=0"`
	ReviewerID int64           `json:"reviewer"   validate:"required,gt=0"`
	Rating     decimal.Decimal `json:"rating"`
	Text       string          `json:"text"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Validate checks the review fields.
func (r *Review) Validate() error {
	fe := validateStruct(r)
	if r.Rating.LessThan(MinReviewRating) || r.Rating.GreaterThan(MaxReviewRating) {
		fe.Add("rating", "Ensure this value is between 1.0 and 5.0.")
	} else if !r.Rating.Equal(r.Rating.Round(1)) {
		fe.Add("rating", "Ensure that there are no more than 1 decimal places.")
	}
	return fe.Err()
}

// CopyReadOnly copies server-managed fields from prev.
func (r *Review) CopyReadOnly(prev *Review) {
	r.CreatedAt = prev.CreatedAt
}

// Event is a library happening that features books.
type Event struct {
	Model
	Title       string    `json:"title"       validate:"required,max=100"`
	Description string    `json:"description"`
	EventDate   time.Time `json:"event_date"`
	LibraryID   int64     `json:"library"     validate:"required,gt=0"`
	BookIDs     []int64   `json:"books"`
}

// Validate checks the event fields.
func (e *Event) Validate() error {
	fe := validateStruct(e)
	if e.EventDate.IsZero() {
		fe.Add("event_date", "This field is required.")
	}
	return fe.Err()
}

// CopyReadOnly is a no-op; events have no server-managed fields.
func (e *Event) CopyReadOnly(*Event) {}

// EventParticipant registers a member for an event. A member registers once.
type EventParticipant struct {
	Model
	EventID          int64     `json:"event"             validate:"required,gt=0"`
	MemberID         int64     `json:"member"            validate:"required,gt=0"`
	RegistrationDate time.Time `json:"registration_date"`
}

// Validate checks the participant fields.
func (p *EventParticipant) Validate() error {
	return validateStruct(p).Err()
}

// CopyReadOnly copies server-managed fields from prev.
func (p *EventParticipant) CopyReadOnly(prev *EventParticipant) {
	p.RegistrationDate = prev.RegistrationDate
}
