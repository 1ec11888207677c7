package service

import "errors"

var (
	ErrInvalidOwner = errors.New("cart owner must be an authenticated principal")
	ErrInvalidLine  = errors.New("cart line is invalid")
)
