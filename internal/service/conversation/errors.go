package conversation

import "errors"

var (
	ErrNotFound     = errors.New("conversation not found")
	ErrUnauthorized = errors.New("not a participant in this conversation")
	ErrEmptyMessage = errors.New("message content is empty")
)
