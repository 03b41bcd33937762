package service

import "errors"

var (
	ErrPropertyNotFound = errors.New("property not found")
	ErrStorageFailure   = errors.New("storage failure")
	ErrValidation       = errors.New("validation failed")
	ErrInvalidCriteria  = errors.New("invalid criteria")
)
