package ftsearch

// FilterKind is the keyword that introduces a filter clause in FT.SEARCH.
type FilterKind string

const (
	// FilterNumeric restricts a numeric field to a range.
	FilterNumeric FilterKind = "FILTER"
	// FilterGeo is reserved for radius filters on GEO fields; no constructor yet.
	FilterGeo FilterKind = "GEOFILTER"
)

// Filter is a search filter clause: keyword, field, then kind-specific arguments.
type Filter struct {
	kind  FilterKind
	field string
	args  []string
}

// NewFilter builds a filter clause from already formatted arguments.
func NewFilter(kind FilterKind, field string, args ...string) Filter {
	return Filter{kind: kind, field: field, args: append([]string(nil), args...)}
}

// Kind returns the filter keyword.
func (f Filter) Kind() FilterKind { return f.kind }

// Field returns the filtered field name.
func (f Filter) Field() string { return f.field }

// Args returns the FT.SEARCH arguments for the clause.
func (f Filter) Args() []string {
	out := make([]string, 0, len(f.args)+2)
	out = append(out, string(f.kind), f.field)
	return append(out, f.args...)
}

// RangeOption configures a numeric range filter.
type RangeOption func(*rangeConfig)

type rangeConfig struct {
	minExclusive bool
	maxExclusive bool
}

// MinExclusive excludes the lower bound from the range.
func MinExclusive() RangeOption {
	return func(c *rangeConfig) { c.minExclusive = true }
}

// MaxExclusive excludes the upper bound from the range.
func MaxExclusive() RangeOption {
	return func(c *rangeConfig) { c.maxExclusive = true }
}

// NumericFilter builds FILTER field min max. Exclusive bounds are prefixed with "(".
// min > max is passed through; the server decides what it matches.
func NumericFilter(field string, minVal, maxVal float64, opts ...RangeOption) Filter {
	var cfg rangeConfig
	for _, o := range opts {
		o(&cfg)
	}
	return NewFilter(FilterNumeric, field,
		boundToken(minVal, cfg.minExclusive),
		boundToken(maxVal, cfg.maxExclusive),
	)
}

func boundToken(v float64, exclusive bool) string {
	if exclusive {
		return "(" + formatNumber(v)
	}
	return formatNumber(v)
}
