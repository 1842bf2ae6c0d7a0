package sql

import "errors"

var ErrParse = errors.New("parse error")
