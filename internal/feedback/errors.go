package feedback

import "errors"

var (
	ErrDisabled      = errors.New("feedback provider is not configured")
	ErrEmptyAPIKey   = errors.New("feedback provider API key is empty")
	ErrEmptyResponse = errors.New("feedback provider returned an empty response")
	ErrEmptyRubric   = errors.New("no criteria found in text")
)
