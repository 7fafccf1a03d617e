package ftsearch

// SortSpec is a SORTBY clause. The zero direction is ascending.
type SortSpec struct {
	Field      string
	Descending bool
}

// SortBy sorts by field in ascending order.
func SortBy(field string) SortSpec {
	return SortSpec{Field: field}
}

// Desc returns a copy of s sorting in descending order.
func (s SortSpec) Desc() SortSpec {
	s.Descending = true
	return s
}

// Args returns the field and direction.
func (s SortSpec) Args() []string {
	if s.Descending {
		return []string{s.Field, "DESC"}
	}
	return []string{s.Field, "ASC"}
}
