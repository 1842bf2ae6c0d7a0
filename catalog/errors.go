package catalog

import "errors"

var (
	ErrTableExists   = errors.New("table already exists")
	ErrTableNotFound = errors.New("table not found")
	ErrColumnNotFound = errors.New("column not found")
)
