package mrz

import "errors"

var (
	errNotObject    = errors.New("JSON root is not an object")
	errTrailingData = errors.New("unexpected data after JSON value")
)
