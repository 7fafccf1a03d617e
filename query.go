package ftsearch

import "strconv"

const (
	defaultOffset = 0
	defaultNum    = 10
	slopUnset     = -1
)

// Query accumulates FT.SEARCH options. Setters return the receiver for chaining and copy
// any slices they are given, so a Query never aliases caller memory.
type Query struct {
	queryString  string
	offset       int
	num          int
	noContent    bool
	noStopwords  bool
	verbatim     bool
	withPayloads bool
	inOrder      bool
	slop         int
	fields       []string
	ids          []string
	returnFields []string
	filters      []Filter
	sortBy       *SortSpec
}

// NewQuery creates a query for the given query string with default paging 0..10.
func NewQuery(queryString string) *Query {
	return &Query{
		queryString: queryString,
		offset:      defaultOffset,
		num:         defaultNum,
		slop:        slopUnset,
	}
}

// QueryString returns the raw query text.
func (q *Query) QueryString() string { return q.queryString }

// HasContent reports whether document fields are requested.
func (q *Query) HasContent() bool { return !q.noContent }

// HasPayloads reports whether document payloads are requested.
func (q *Query) HasPayloads() bool { return q.withPayloads }

// Paging sets the result offset and the number of results to return.
func (q *Query) Paging(offset, num int) *Query {
	q.offset = offset
	q.num = num
	return q
}

// LimitFields restricts matching to the given TEXT fields.
func (q *Query) LimitFields(fields ...string) *Query {
	q.fields = append([]string(nil), fields...)
	return q
}

// LimitIDs restricts matching to the given document ids.
func (q *Query) LimitIDs(ids ...string) *Query {
	q.ids = append([]string(nil), ids...)
	return q
}

// ReturnFields returns only the given fields of each document.
func (q *Query) ReturnFields(fields ...string) *Query {
	q.returnFields = append([]string(nil), fields...)
	return q
}

// AddFilter appends a filter clause. Filters are emitted in insertion order.
func (q *Query) AddFilter(f Filter) *Query {
	q.filters = append(q.filters, f)
	return q
}

// Sort sets the SORTBY clause, replacing any previous one.
func (q *Query) Sort(s SortSpec) *Query {
	q.sortBy = &s
	return q
}

// Slop allows at most n unmatched terms between phrase terms. 0 means exact phrase;
// a negative value clears the setting.
func (q *Query) Slop(n int) *Query {
	if n < 0 {
		n = slopUnset
	}
	q.slop = n
	return q
}

// NoContent returns ids only.
func (q *Query) NoContent() *Query {
	q.noContent = true
	return q
}

// NoStopwords disables stopword filtering of the query.
func (q *Query) NoStopwords() *Query {
	q.noStopwords = true
	return q
}

// Verbatim disables query expansion and stemming.
func (q *Query) Verbatim() *Query {
	q.verbatim = true
	return q
}

// WithPayloads asks the server to return document payloads.
func (q *Query) WithPayloads() *Query {
	q.withPayloads = true
	return q
}

// InOrder requires query terms to appear in the same order in the document.
func (q *Query) InOrder() *Query {
	q.inOrder = true
	return q
}

// Clone returns a deep copy of q.
func (q *Query) Clone() *Query {
	c := *q
	c.fields = append([]string(nil), q.fields...)
	c.ids = append([]string(nil), q.ids...)
	c.returnFields = append([]string(nil), q.returnFields...)
	c.filters = append([]Filter(nil), q.filters...)
	if q.sortBy != nil {
		s := *q.sortBy
		c.sortBy = &s
	}
	return &c
}

// Validate checks the options that the server would reject.
func (q *Query) Validate() error {
	if q.offset < 0 {
		return configErrorf("paging offset must not be negative, got %d", q.offset)
	}
	if q.num < 0 {
		return configErrorf("paging count must not be negative, got %d", q.num)
	}
	if q.sortBy != nil && q.sortBy.Field == "" {
		return configErrorf("sort field is required")
	}
	return nil
}

// Args returns the FT.SEARCH arguments that follow the index name. The order is fixed
// by the command grammar.
func (q *Query) Args() []string {
	args := []string{q.queryString}

	if q.noContent {
		args = append(args, "NOCONTENT")
	}

	if len(q.fields) > 0 {
		args = append(args, "INFIELDS", strconv.Itoa(len(q.fields)))
		args = append(args, q.fields...)
	}

	if q.verbatim {
		args = append(args, "VERBATIM")
	}

	if q.noStopwords {
		args = append(args, "NOSTOPWORDS")
	}

	for _, f := range q.filters {
		args = append(args, f.Args()...)
	}

	if q.withPayloads {
		args = append(args, "WITHPAYLOADS")
	}

	if len(q.ids) > 0 {
		args = append(args, "INKEYS", strconv.Itoa(len(q.ids)))
		args = append(args, q.ids...)
	}

	if q.slop >= 0 {
		args = append(args, "SLOP", strconv.Itoa(q.slop))
	}

	if q.inOrder {
		args = append(args, "INORDER")
	}

	if len(q.returnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.returnFields)))
		args = append(args, q.returnFields...)
	}

	if q.sortBy != nil {
		args = append(args, "SORTBY")
		args = append(args, q.sortBy.Args()...)
	}

	return append(args, "LIMIT", strconv.Itoa(q.offset), strconv.Itoa(q.num))
}
