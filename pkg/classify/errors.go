package classify

import "github.com/m-mizutani/goerr/v2"

var (
	errEmptyResponse    = goerr.New("empty response from model")
	errMissingReasoning = goerr.New("verdict missing reasoning")
)
