package llm

import "errors"

// ErrEmptyReply is returned when a provider responds without any choices.
var ErrEmptyReply = errors.New("empty completion reply")
