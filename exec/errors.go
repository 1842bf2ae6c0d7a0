package exec

import "errors"

var (
	ErrNilStatement        = errors.New("statement is nil")
	ErrColumnCountMismatch = errors.New("value count does not match column count")
	ErrUnsupportedStatement = errors.New("unsupported statement type")
)
