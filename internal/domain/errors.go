package domain

import "errors"

// ErrVersionConflict is returned by conditional writes whose expected version no longer
// matches the stored row.
var ErrVersionConflict = errors.New("version conflict")
