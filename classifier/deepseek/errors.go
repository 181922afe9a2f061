package deepseek

import "errors"

var (
	errNoChoices     = errors.New("no response from DeepSeek")
	errUnknownIntent = errors.New("intent is not one of the known categories")
)
