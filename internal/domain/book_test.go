package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookValidate(t *testing.T) {
	pages := func(n int) *int { return &n }

	tests := []struct {
		name      string
		book      Book
		wantField string
	}{
		{
			name: "valid",
			book: Book{Name: "Dune", Price: decimal.RequireFromString("19.99"), Pages: pages(412)},
		},
		{
			name:      "too many pages",
			book:      Book{Name: "Tome", Price: decimal.Zero, Pages: pages(10001)},
			wantField: "pages",
		},
		{
			name:      "three decimals",
			book:      Book{Name: "Odd", Price: decimal.RequireFromString("1.999")},
			wantField: "price",
		},
		{
			name:      "price overflow",
			book:      Book{Name: "Rare", Price: decimal.RequireFromString("1000000.00")},
			wantField: "price",
		},
		{
			name: "discount above price",
			book: Book{
				Name:            "Sale",
				Price:           decimal.RequireFromString("10.00"),
				DiscountedPrice: decimal.NewNullDecimal(decimal.RequireFromString("12.00")),
			},
			wantField: "discounted_price",
		},
		{
			name:      "missing name",
			book:      Book{Price: decimal.Zero},
			wantField: "name",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.book.Validate()
			if tc.wantField == "" {
				assert.NoError(t, err)
				return
			}
			fe, ok := AsFieldErrors(err)
			require.True(t, ok)
			assert.Contains(t, fe, tc.wantField)
		})
	}
}

func TestReviewValidate(t *testing.T) {
	r := Review{BookID: 1, ReviewerID: 2, Rating: decimal.RequireFromString("4.5")}
	assert.NoError(t, r.Validate())

	r.Rating = decimal.RequireFromString("5.5")
	assert.Error(t, r.Validate())

	r.Rating = decimal.RequireFromString("3.25")
	assert.Error(t, r.Validate())
}

func TestBorrowOverdue(t *testing.T) {
	today := NewDate(time.Date(2025, time.May, 20, 15, 0, 0, 0, time.UTC))
	b := Borrow{
		BorrowDate: NewDate(time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)),
		ReturnDate: NewDate(time.Date(2025, time.May, 19, 0, 0, 0, 0, time.UTC)),
	}
	assert.True(t, b.Overdue(today))

	b.IsReturned = true
	assert.False(t, b.Overdue(today))

	b.IsReturned = false
	b.ReturnDate = today
	assert.False(t, b.Overdue(today), "due today is not overdue")
}

func TestBorrowValidate_ReturnBeforeBorrow(t *testing.T) {
	b := Borrow{MemberID: 1, BookID: 1, LibraryID: 1}
	b.SetDefaults()
	b.ReturnDate = NewDate(b.BorrowDate.AddDate(0, 0, -1))

	fe, ok := AsFieldErrors(b.Validate())
	require.True(t, ok)
	assert.Contains(t, fe, "return_date")
}

func TestDateJSON(t *testing.T) {
	var payload struct {
		D Date  `json:"d"`
		N *Date `json:"n"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"d":"2024-02-29","n":null}`), &payload))
	assert.Equal(t, "2024-02-29", payload.D.String())
	assert.Nil(t, payload.N)

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"2024-02-29","n":null}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"d":"29/02/2024"}`), &payload))
}

func TestDateScan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2025, time.June, 1, 23, 59, 0, 0, time.UTC)))
	assert.Equal(t, "2025-06-01", d.String())

	require.NoError(t, d.Scan("2025-07-04"))
	assert.Equal(t, "2025-07-04", d.String())

	assert.Error(t, d.Scan(42))
}

func TestRegistry(t *testing.T) {
	task, ok := LookupModel("tasks")
	require.True(t, ok)
	assert.Equal(t, "task", task.Name)
	assert.Equal(t, "tasks", task.Table)

	var names []string
	for _, f := range task.Fields() {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "id")
	assert.Contains(t, names, "title")
	assert.Contains(t, names, "due_date")

	_, ok = LookupModel("spaceship")
	assert.False(t, ok)
}
