package router

import "errors"

var errClassifyUnavailable = errors.New("router: llm classifier unavailable")
