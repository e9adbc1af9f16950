package domain

import "errors"

var (
	errEmptyHost   = errors.New("empty host")
	errInvalidHost = errors.New("invalid host")
)
