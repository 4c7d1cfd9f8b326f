package opensearch

import "errors"

var (
	ErrConnectionFailed  = errors.New("opensearch: failed to connect")
	ErrHealthcheckFailed = errors.New("opensearch: healthcheck failed")
)
