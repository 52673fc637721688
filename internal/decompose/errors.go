package decompose

import "errors"

var errDecomposeUnavailable = errors.New("decompose: llm decomposer unavailable")
