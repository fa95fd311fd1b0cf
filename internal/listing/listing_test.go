package listing

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var taskSchema = Schema{
	Fields: []Field{
		{Name: "id", Column: "t.id", Type: Int},
		{Name: "title", Column: "t.title"},
		{Name: "status", Column: "t.status"},
		{Name: "created_at", Column: "t.created_at", Type: Time},
		{Name: "project", Column: "t.project_id", Type: Int},
	},
	Search:   []string{"title"},
	Ordering: []string{"id", "title", "created_at"},
	Default:  "-created_at",
	Exact:    []string{"status", "project"},
}

func TestParse_Defaults(t *testing.T) {
	q, err := Parse(url.Values{}, taskSchema, CursorMode, 0)
	require.NoError(t, err)

	assert.Equal(t, DefaultPageSize, q.PageSize)
	require.Len(t, q.Order, 1)
	assert.Equal(t, "created_at", q.Order[0].Field.Name)
	assert.True(t, q.Order[0].Desc)
	assert.Equal(t, 0, q.Offset())
	assert.Equal(t, "-created_at", q.Fingerprint())
}

func TestParse_ExactFilters(t *testing.T) {
	q, err := Parse(url.Values{"status": {"New"}, "project": {"3"}, "search": {" report "}}, taskSchema, PageMode, 5)
	require.NoError(t, err)

	require.Len(t, q.Conditions, 2)
	assert.Equal(t, "New", q.Conditions[0].Value)
	assert.Equal(t, int64(3), q.Conditions[1].Value)
	assert.Equal(t, "report", q.Search)

	_, err = Parse(url.Values{"project": {"three"}}, taskSchema, PageMode, 5)
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestParseOrdering(t *testing.T) {
	tests := []struct {
		name    string
		param   string
		want    []Order
		wantErr bool
	}{
		{name: "empty", param: ""},
		{
			name:  "mixed directions",
			param: "-created_at,title",
			want: []Order{
				{Field: Field{Name: "created_at", Column: "t.created_at", Type: Time}, Desc: true},
				{Field: Field{Name: "title", Column: "t.title"}},
			},
		},
		{name: "not orderable", param: "status", wantErr: true},
		{name: "unknown", param: "-password", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseOrdering(tc.param, taskSchema)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidOrdering)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParse_Page(t *testing.T) {
	q, err := Parse(url.Values{"page": {"3"}}, taskSchema, PageMode, 5)
	require.NoError(t, err)
	assert.Equal(t, 10, q.Offset())

	for _, bad := range []string{"0", "-1", "last"} {
		_, err := Parse(url.Values{"page": {bad}}, taskSchema, PageMode, 5)
		assert.ErrorIs(t, err, ErrInvalidPage, bad)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	token := Cursor{Offset: 10, Fingerprint: "-created_at"}.Encode()

	q, err := Parse(url.Values{"cursor": {token}}, taskSchema, CursorMode, 5)
	require.NoError(t, err)
	assert.Equal(t, 10, q.Offset())

	_, err = Parse(url.Values{"cursor": {token}, "ordering": {"title"}}, taskSchema, CursorMode, 5)
	assert.ErrorIs(t, err, ErrInvalidCursor, "cursor is bound to its ordering")

	_, err = Parse(url.Values{"cursor": {"0OIl"}}, taskSchema, CursorMode, 5)
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestNewPage_Cursor(t *testing.T) {
	self, _ := url.Parse("http://api.test/api/v1/tasks/?status=New")
	q, err := Parse(url.Values{}, taskSchema, CursorMode, 2)
	require.NoError(t, err)

	page := NewPage(q, []int{1, 2, 3}, 0, self)
	assert.Equal(t, []int{1, 2}, page.Results)
	assert.Nil(t, page.Count)
	assert.Nil(t, page.Previous)
	require.NotNil(t, page.Next)

	next, err := url.Parse(*page.Next)
	require.NoError(t, err)
	assert.Equal(t, "New", next.Query().Get("status"))

	q2, err := Parse(next.Query(), taskSchema, CursorMode, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, q2.Offset())

	last := NewPage(q2, []int{3}, 0, self)
	assert.Nil(t, last.Next)
	require.NotNil(t, last.Previous)
	assert.NotContains(t, *last.Previous, "cursor=")
}

func TestNewPage_PageNumbers(t *testing.T) {
	self, _ := url.Parse("http://api.test/api/v1/subtasks/?page=2")
	q, err := Parse(self.Query(), taskSchema, PageMode, 5)
	require.NoError(t, err)

	page := NewPage(q, []string{"a", "b"}, 7, self)
	require.NotNil(t, page.Count)
	assert.Equal(t, 7, *page.Count)
	assert.Nil(t, page.Next)
	require.NotNil(t, page.Previous)
	assert.Equal(t, "http://api.test/api/v1/subtasks/", *page.Previous)

	assert.ErrorIs(t, CheckPage(q, 0), ErrInvalidPage)
	assert.NoError(t, CheckPage(q, 2))
}

func TestConvert(t *testing.T) {
	v, err := Convert(Field{Name: "created_at", Type: Time}, "2025-01-02")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC), v)

	v, err = Convert(Field{Name: "active", Type: Bool}, "True")
	require.NoError(t, err)
	assert.Equal(t, true, v)

	_, err = Convert(Field{Name: "price", Type: Decimal}, "ten")
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestConvert_Choices(t *testing.T) {
	status := Field{Name: "status", Column: "t.status", Choices: []string{"New", "Closed"}}

	v, err := Convert(status, "Closed")
	require.NoError(t, err)
	assert.Equal(t, "Closed", v)

	for _, raw := range []string{"Bogus", "closed", " New"} {
		_, err := Convert(status, raw)
		assert.ErrorIs(t, err, ErrInvalidQuery, raw)
	}

	v, err = Convert(Field{Name: "title"}, "anything")
	require.NoError(t, err)
	assert.Equal(t, "anything", v)
}
