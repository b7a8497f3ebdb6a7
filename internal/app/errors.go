package app

import "errors"

var (
	ErrMessageEmpty = errors.New("message content is empty")
	ErrGeneration   = errors.New("generation error")
	ErrRetrieval    = errors.New("retrieval error")
)
