package chi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/oapi-codegen/runtime"

	"github.com/kailas-cloud/ftsearch"
)

// searchParams are the query parameters of GET /indexes/{index}/search.
type searchParams struct {
	Q           string
	Offset      *int
	Limit       *int
	Verbatim    *bool
	NoContent   *bool
	NoStopwords *bool
	Payloads    *bool
	InOrder     *bool
	Slop        *int
	SortBy      *string
	SortDesc    *bool
	Fields      *[]string // fields=a,b
	Return      *[]string // return=a,b
	IDs         *[]string // ids=a,b
	Filter      *[]string // filter=price:10:100, repeatable; "(" marks an exclusive bound
	Snippet     *[]string // snippet=body:200, repeatable
}

// bindQuery binds a single form-style query parameter.
func bindQuery(r *http.Request, name string, required bool, dest any) error {
	if err := runtime.BindQueryParameter("form", true, required, name, r.URL.Query(), dest); err != nil {
		return fmt.Errorf("invalid format for parameter %s: %w", name, err)
	}
	return nil
}

// bindList binds a comma separated list parameter.
func bindList(r *http.Request, name string, dest *[]string) error {
	if err := runtime.BindQueryParameter("form", false, false, name, r.URL.Query(), dest); err != nil {
		return fmt.Errorf("invalid format for parameter %s: %w", name, err)
	}
	return nil
}

func bindSearchParams(r *http.Request) (searchParams, error) {
	var p searchParams
	binds := []struct {
		name     string
		required bool
		dest     any
	}{
		{"q", true, &p.Q},
		{"offset", false, &p.Offset},
		{"limit", false, &p.Limit},
		{"verbatim", false, &p.Verbatim},
		{"no_content", false, &p.NoContent},
		{"no_stopwords", false, &p.NoStopwords},
		{"with_payloads", false, &p.Payloads},
		{"in_order", false, &p.InOrder},
		{"slop", false, &p.Slop},
		{"sort_by", false, &p.SortBy},
		{"sort_desc", false, &p.SortDesc},
		{"filter", false, &p.Filter},
		{"snippet", false, &p.Snippet},
	}
	for _, b := range binds {
		if err := bindQuery(r, b.name, b.required, b.dest); err != nil {
			return searchParams{}, err
		}
	}
	lists := []struct {
		name string
		dest **[]string
	}{
		{"fields", &p.Fields},
		{"return", &p.Return},
		{"ids", &p.IDs},
	}
	for _, l := range lists {
		var v []string
		if err := bindList(r, l.name, &v); err != nil {
			return searchParams{}, err
		}
		if len(v) > 0 {
			*l.dest = &v
		}
	}
	return p, nil
}

// queryFromRequest builds a Query and snippet sizes from the search parameters.
func (s *Server) queryFromRequest(r *http.Request) (*ftsearch.Query, map[string]int, error) {
	p, err := bindSearchParams(r)
	if err != nil {
		return nil, nil, err
	}

	offset := derefInt(p.Offset, 0)
	limit := derefInt(p.Limit, s.search.DefaultPageSize)
	if limit > s.search.MaxPageSize {
		return nil, nil, fmt.Errorf("limit must not exceed %d", s.search.MaxPageSize)
	}

	q := ftsearch.NewQuery(p.Q).Paging(offset, limit)
	if derefBool(p.Verbatim) {
		q.Verbatim()
	}
	if derefBool(p.NoContent) {
		q.NoContent()
	}
	if derefBool(p.NoStopwords) {
		q.NoStopwords()
	}
	if derefBool(p.Payloads) {
		q.WithPayloads()
	}
	if derefBool(p.InOrder) {
		q.InOrder()
	}
	if p.Slop != nil {
		q.Slop(*p.Slop)
	}
	if p.SortBy != nil {
		spec := ftsearch.SortBy(*p.SortBy)
		if derefBool(p.SortDesc) {
			spec = spec.Desc()
		}
		q.Sort(spec)
	}
	if p.Fields != nil {
		q.LimitFields(*p.Fields...)
	}
	if p.Return != nil {
		q.ReturnFields(*p.Return...)
	}
	if p.IDs != nil {
		q.LimitIDs(*p.IDs...)
	}
	if p.Filter != nil {
		for _, raw := range *p.Filter {
			f, err := parseFilter(raw)
			if err != nil {
				return nil, nil, err
			}
			q.AddFilter(f)
		}
	}

	var snippets map[string]int
	if p.Snippet != nil {
		snippets = make(map[string]int, len(*p.Snippet))
		for _, raw := range *p.Snippet {
			field, size, err := s.parseSnippet(raw)
			if err != nil {
				return nil, nil, err
			}
			snippets[field] = size
		}
	}

	return q, snippets, nil
}

// parseFilter parses field:min:max. A bound prefixed with "(" is exclusive; bounds may
// be -inf or +inf.
func parseFilter(raw string) (ftsearch.Filter, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 3 || parts[0] == "" {
		return ftsearch.Filter{}, fmt.Errorf("filter %q: expected field:min:max", raw)
	}

	var opts []ftsearch.RangeOption
	minVal, minExcl, err := parseBound(parts[1])
	if err != nil {
		return ftsearch.Filter{}, fmt.Errorf("filter %q: min: %w", raw, err)
	}
	if minExcl {
		opts = append(opts, ftsearch.MinExclusive())
	}
	maxVal, maxExcl, err := parseBound(parts[2])
	if err != nil {
		return ftsearch.Filter{}, fmt.Errorf("filter %q: max: %w", raw, err)
	}
	if maxExcl {
		opts = append(opts, ftsearch.MaxExclusive())
	}
	return ftsearch.NumericFilter(parts[0], minVal, maxVal, opts...), nil
}

func parseBound(s string) (float64, bool, error) {
	exclusive := strings.HasPrefix(s, "(")
	s = strings.TrimPrefix(s, "(")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse %q: %w", s, err)
	}
	return v, exclusive, nil
}

// parseSnippet parses field:size. The size is capped by the configured maximum.
func (s *Server) parseSnippet(raw string) (string, int, error) {
	field, sizeStr, ok := strings.Cut(raw, ":")
	if !ok || field == "" {
		return "", 0, fmt.Errorf("snippet %q: expected field:size", raw)
	}
	size, err := strconv.Atoi(sizeStr)
	if err != nil || size <= 0 {
		return "", 0, fmt.Errorf("snippet %q: size must be a positive integer", raw)
	}
	return field, min(size, s.search.MaxSnippetSize), nil
}

func derefInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func derefBool(p *bool) bool {
	if p == nil {
		return false
	}
	return *p
}
