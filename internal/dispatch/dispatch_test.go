package dispatch

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(ctx context.Context, req *Request) (*Result, error) {
	return &Result{}, nil
}

func TestMatchers(t *testing.T) {
	tests := []struct {
		name    string
		matcher Matcher
		path    string
		ok      bool
		id      string
	}{
		{"suffix hit", Suffix("/content/create"), "/functions/v1/genspark-api/content/create", true, ""},
		{"suffix bare", Suffix("/content/create"), "/content/create", true, ""},
		{"suffix miss", Suffix("/content/create"), "/content/create/x", false, ""},
		{"exact hit", Exact("/api/genspark/analytics/roi"), "/api/genspark/analytics/roi", true, ""},
		{"exact prefixed", Exact("/api/genspark/analytics/roi"), "/v1/api/genspark/analytics/roi", false, ""},
		{"segment hit", Segment("/library/update-book"), "/fn/library/update-book/abc-123", true, "abc-123"},
		{"segment trailing slash", Segment("/library/update-book/"), "/library/update-book/abc/", true, "abc"},
		{"segment nested takes last", Segment("/library/update-book"), "/library/update-book/a/b", true, "b"},
		{"segment missing id", Segment("/library/update-book"), "/library/update-book/", false, ""},
		{"segment no marker", Segment("/library/update-book"), "/library/update-books", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := tt.matcher.Match(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.id, id)
		})
	}
}

func TestTable_ResolveFirstMatchWins(t *testing.T) {
	first := func(ctx context.Context, req *Request) (*Result, error) { return &Result{Message: "first"}, nil }
	second := func(ctx context.Context, req *Request) (*Result, error) { return &Result{Message: "second"}, nil }

	table := NewTable(
		Route{Name: "a", Group: "g", Method: http.MethodPost, Matcher: Suffix("/create"), Handler: first},
		Route{Name: "b", Group: "g", Method: http.MethodPost, Matcher: Suffix("/content/create"), Handler: second},
	)

	route, _, ok := table.Resolve(http.MethodPost, "/content/create")
	require.True(t, ok)
	res, err := route.Handler(context.Background(), &Request{})
	require.NoError(t, err)
	assert.Equal(t, "first", res.Message)
}

func TestTable_MethodMismatch(t *testing.T) {
	table := NewTable(Route{Name: "create", Group: "content", Method: http.MethodPost, Matcher: Suffix("/content/create"), Handler: noop})

	_, _, ok := table.Resolve(http.MethodGet, "/content/create")
	assert.False(t, ok)
}

func TestTable_SegmentID(t *testing.T) {
	table := NewTable(Route{Name: "update", Group: "library", Method: http.MethodPut, Matcher: Segment("/library/update-book"), Handler: noop})

	route, id, ok := table.Resolve(http.MethodPut, "/x/library/update-book/42")
	require.True(t, ok)
	assert.Equal(t, "update", route.Name)
	assert.Equal(t, "42", id)
}

func TestTable_Groups(t *testing.T) {
	table := NewTable(
		Route{Group: "content", Method: http.MethodPost, Matcher: Suffix("/content/create"), Handler: noop},
		Route{Group: "library", Method: http.MethodPut, Matcher: Segment("/library/update-book"), Handler: noop},
		Route{Group: "content", Method: http.MethodGet, Matcher: Suffix("/content/list"), Handler: noop},
	)

	groups := table.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, "content", groups[0].Group)
	assert.Equal(t, []string{"POST */content/create", "GET */content/list"}, groups[0].Endpoints)
	assert.Equal(t, []string{"PUT */library/update-book/{id}"}, groups[1].Endpoints)
	assert.Len(t, table.routes, 3)
}

func TestResult_Charge(t *testing.T) {
	r := &Result{}
	r.Charge(100, decimal.RequireFromString("0.2")).Charge(50, decimal.RequireFromString("0.1"))
	assert.Equal(t, 150, r.TokensUsed)
	assert.True(t, decimal.RequireFromString("0.3").Equal(r.Cost))
}
