package apperrors

import "errors"

var (
	ErrDatasetNotFound     = errors.New("dataset not found")
	ErrColumnNotFound      = errors.New("column not found")
	ErrInsufficientColumns = errors.New("need at least 2 numeric columns for correlation")
	ErrNoSharedColumns     = errors.New("no shared columns between datasets")
	ErrUnsupportedSource   = errors.New("unsupported source file type")
	ErrInvalidOperator     = errors.New("comparison operator must be > or <=")
	ErrEmptyDatasetID      = errors.New("dataset id must not be empty")
)
