package ftsearch

// FieldKind enumerates supported schema field types.
type FieldKind int

const (
	// FieldText is a full-text field.
	FieldText FieldKind = iota
	// FieldNumeric is a numeric field usable in range filters.
	FieldNumeric
)

// String returns the schema keyword for the kind.
func (k FieldKind) String() string {
	switch k {
	case FieldText:
		return "TEXT"
	case FieldNumeric:
		return "NUMERIC"
	default:
		return "UNKNOWN"
	}
}

const defaultWeight = 1.0

// Field is a validated schema field descriptor. The zero value is not usable;
// build fields with NewTextField or NewNumericField.
type Field struct {
	name string
	kind FieldKind
	args []string
}

// Name returns the field name.
func (f Field) Name() string { return f.name }

// Kind returns the field type.
func (f Field) Kind() FieldKind { return f.kind }

// Args returns the FT.CREATE schema arguments for the field: name, type, modifiers.
func (f Field) Args() []string {
	out := make([]string, 0, len(f.args)+1)
	out = append(out, f.name)
	return append(out, f.args...)
}

// FieldOption configures a schema field.
type FieldOption func(*fieldConfig)

type fieldConfig struct {
	weight    float64
	weightSet bool
	sortable  bool
	noStem    bool
	noIndex   bool
}

// WithWeight sets the importance of a text field when scoring (default 1.0).
func WithWeight(w float64) FieldOption {
	return func(c *fieldConfig) {
		c.weight = w
		c.weightSet = true
	}
}

// Sortable allows SORTBY on the field.
func Sortable() FieldOption {
	return func(c *fieldConfig) { c.sortable = true }
}

// NoStem disables stemming for a text field.
func NoStem() FieldOption {
	return func(c *fieldConfig) { c.noStem = true }
}

// NoIndex keeps the field out of the index. Only meaningful together with Sortable.
func NoIndex() FieldOption {
	return func(c *fieldConfig) { c.noIndex = true }
}

func newFieldConfig(opts []FieldOption) fieldConfig {
	cfg := fieldConfig{weight: defaultWeight}
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

// NewTextField builds a TEXT field: name TEXT WEIGHT w [SORTABLE] [NOSTEM] [NOINDEX].
func NewTextField(name string, opts ...FieldOption) (Field, error) {
	if name == "" {
		return Field{}, configErrorf("field name is required")
	}
	cfg := newFieldConfig(opts)
	if cfg.weight < 0 {
		return Field{}, configErrorf("field %q: weight must not be negative", name)
	}
	if cfg.noIndex && !cfg.sortable {
		return Field{}, configErrorf("field %q: non-sortable, non-indexable fields are ignored", name)
	}

	args := []string{FieldText.String(), "WEIGHT", formatNumber(cfg.weight)}
	if cfg.sortable {
		args = append(args, "SORTABLE")
	}
	if cfg.noStem {
		args = append(args, "NOSTEM")
	}
	if cfg.noIndex {
		args = append(args, "NOINDEX")
	}
	return Field{name: name, kind: FieldText, args: args}, nil
}

// NewNumericField builds a NUMERIC field: name NUMERIC [SORTABLE] [NOINDEX].
func NewNumericField(name string, opts ...FieldOption) (Field, error) {
	if name == "" {
		return Field{}, configErrorf("field name is required")
	}
	cfg := newFieldConfig(opts)
	if cfg.weightSet || cfg.noStem {
		return Field{}, configErrorf("field %q: WEIGHT and NOSTEM apply to text fields only", name)
	}
	if cfg.noIndex && !cfg.sortable {
		return Field{}, configErrorf("field %q: non-sortable, non-indexable fields are ignored", name)
	}

	args := []string{FieldNumeric.String()}
	if cfg.sortable {
		args = append(args, "SORTABLE")
	}
	if cfg.noIndex {
		args = append(args, "NOINDEX")
	}
	return Field{name: name, kind: FieldNumeric, args: args}, nil
}

// MustField panics if err is non-nil. Useful for package-level schema definitions.
func MustField(f Field, err error) Field {
	if err != nil {
		panic(err)
	}
	return f
}
