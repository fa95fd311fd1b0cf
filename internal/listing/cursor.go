package listing

import (
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/mr-tron/base58"
)

// Cursor is the decoded position of a cursor-paginated listing. It is
// handed to clients as an opaque base58 token.
type Cursor struct {
	Offset      int    `json:"o"`
	Fingerprint string `json:"f"`
}

// Encode renders the cursor as an opaque token.
func (c Cursor) Encode() string {
	b, _ := json.Marshal(c)
	return base58.Encode(b)
}

// DecodeCursor parses a token produced by Encode.
func DecodeCursor(token string) (Cursor, error) {
	raw, err := base58.Decode(token)
	if err != nil || len(raw) == 0 {
		return Cursor{}, ErrInvalidCursor
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil || c.Offset < 0 {
		return Cursor{}, ErrInvalidCursor
	}
	return c, nil
}

// Page is one page of list results in the envelope clients expect.
// Count is only reported for page-number pagination.
type Page[T any] struct {
	Count    *int    `json:"count,omitempty"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// NewPage assembles a page from rows fetched with one extra row beyond
// q.PageSize, which signals that a following page exists. total is only
// used in page mode.
func NewPage[T any](q Query, rows []T, total int, self *url.URL) Page[T] {
	if rows == nil {
		rows = []T{}
	}
	if q.Mode == Unpaged {
		return Page[T]{Results: rows}
	}

	hasNext := len(rows) > q.PageSize
	if hasNext {
		rows = rows[:q.PageSize]
	}
	p := Page[T]{Results: rows}

	switch q.Mode {
	case PageMode:
		p.Count = &total
		if hasNext {
			p.Next = link(self, ParamPage, strconv.Itoa(q.Page+1))
		}
		if q.Page > 1 {
			p.Previous = pageLink(self, q.Page-1)
		}
	case CursorMode:
		offset := q.Cursor.Offset
		fp := q.Fingerprint()
		if hasNext {
			p.Next = link(self, ParamCursor, Cursor{Offset: offset + q.PageSize, Fingerprint: fp}.Encode())
		}
		if offset > 0 {
			prev := max(offset-q.PageSize, 0)
			if prev == 0 {
				p.Previous = link(self, ParamCursor, "")
			} else {
				p.Previous = link(self, ParamCursor, Cursor{Offset: prev, Fingerprint: fp}.Encode())
			}
		}
	}
	return p
}

// CheckPage reports ErrInvalidPage when a page beyond the first is empty.
func CheckPage(q Query, rows int) error {
	if q.Mode == PageMode && q.Page > 1 && rows == 0 {
		return ErrInvalidPage
	}
	return nil
}

func pageLink(self *url.URL, page int) *string {
	if page == 1 {
		return link(self, ParamPage, "")
	}
	return link(self, ParamPage, strconv.Itoa(page))
}

// link returns self with key replaced by value; an empty value drops key.
func link(self *url.URL, key, value string) *string {
	if self == nil {
		return nil
	}
	u := *self
	q := u.Query()
	if value == "" {
		q.Del(key)
	} else {
		q.Set(key, value)
	}
	u.RawQuery = q.Encode()
	s := u.String()
	return &s
}
