package repository

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

// NormalizePage applies the default and maximum page size and clamps a negative offset.
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
