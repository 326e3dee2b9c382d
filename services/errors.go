package services

import "errors"

var (
	ErrValidation = errors.New("invalid input")
	ErrNotFound   = errors.New("link not found")
	ErrExpired    = errors.New("link expired")
	ErrInternal   = errors.New("internal error")
)
