// Package dispatch resolves a request method and path to an operation through an ordered
// table of (method, matcher, handler) routes. The first matching route wins.
package dispatch

import (
	"context"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// Request is what a handler sees after the gateway has authenticated and parsed the call.
type Request struct {
	Method string
	Path   string
	// ID is the trailing path segment captured by a Segment matcher.
	ID    string
	Query url.Values
	Body  []byte
}

// Result is a successful operation outcome. Tokens and cost feed the usage ledger.
type Result struct {
	Data       any
	Message    string
	TokensUsed int
	Cost       decimal.Decimal
}

// Charge adds generation usage to the result.
func (r *Result) Charge(tokens int, cost decimal.Decimal) *Result {
	r.TokensUsed += tokens
	r.Cost = r.Cost.Add(cost)
	return r
}

type HandlerFunc func(ctx context.Context, req *Request) (*Result, error)

type Matcher interface {
	// Match reports whether path matches and returns the captured id, if any.
	Match(path string) (id string, ok bool)
	Pattern() string
}

type suffixMatcher string

// Suffix matches any path ending in s.
func Suffix(s string) Matcher { return suffixMatcher(s) }

func (m suffixMatcher) Match(path string) (string, bool) {
	return "", strings.HasSuffix(path, string(m))
}

func (m suffixMatcher) Pattern() string { return "*" + string(m) }

type exactMatcher string

// Exact matches the full path only.
func Exact(p string) Matcher { return exactMatcher(p) }

func (m exactMatcher) Match(path string) (string, bool) {
	return "", path == string(m)
}

func (m exactMatcher) Pattern() string { return string(m) }

type segmentMatcher string

// Segment matches paths containing marker followed by a non-empty trailing segment, which
// is captured as the id. A trailing slash is ignored.
func Segment(marker string) Matcher {
	return segmentMatcher(strings.TrimSuffix(marker, "/") + "/")
}

func (m segmentMatcher) Match(path string) (string, bool) {
	i := strings.Index(path, string(m))
	if i < 0 {
		return "", false
	}
	rest := strings.Trim(path[i+len(m):], "/")
	if rest == "" {
		return "", false
	}
	if j := strings.LastIndex(rest, "/"); j >= 0 {
		rest = rest[j+1:]
	}
	return rest, true
}

func (m segmentMatcher) Pattern() string { return "*" + string(m) + "{id}" }

type Route struct {
	// Name identifies the operation in logs, metrics and the usage ledger.
	Name    string
	Group   string
	Method  string
	Matcher Matcher
	Handler HandlerFunc
}

type Table struct {
	routes []Route
}

func NewTable(routes ...Route) *Table {
	return &Table{routes: routes}
}

// Resolve returns the first route whose method and matcher accept the request. A path that
// matches only under another method does not resolve.
func (t *Table) Resolve(method, path string) (Route, string, bool) {
	for _, r := range t.routes {
		if r.Method != method {
			continue
		}
		if id, ok := r.Matcher.Match(path); ok {
			return r, id, true
		}
	}
	return Route{}, "", false
}

type EndpointGroup struct {
	Group     string   `json:"group"`
	Endpoints []string `json:"endpoints"`
}

// Groups lists endpoints by group in table order.
func (t *Table) Groups() []EndpointGroup {
	var out []EndpointGroup
	index := map[string]int{}
	for _, r := range t.routes {
		i, ok := index[r.Group]
		if !ok {
			i = len(out)
			index[r.Group] = i
			out = append(out, EndpointGroup{Group: r.Group})
		}
		out[i].Endpoints = append(out[i].Endpoints, r.Method+" "+r.Matcher.Pattern())
	}
	return out
}
