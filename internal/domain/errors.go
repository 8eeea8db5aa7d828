package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a spelling session has not been started.
	ErrSessionNotFound = errors.New("spelling session not found")
	// ErrCorpusTooSmall is returned when the corpus cannot satisfy a random draw.
	ErrCorpusTooSmall = errors.New("word corpus has too few eligible entries")
	// ErrInvalidWordEntry indicates a corpus entry without a spelling.
	ErrInvalidWordEntry = errors.New("word entry has an empty word")
	// ErrDefinitionNotFound indicates the dictionary had no usable definition.
	ErrDefinitionNotFound = errors.New("definition not found")
)
