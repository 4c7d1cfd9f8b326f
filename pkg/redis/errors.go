package redis

import "errors"

var (
	ErrConnectionFailed  = errors.New("redis: failed to connect")
	ErrInvalidConfig     = errors.New("redis: failed to parse connection URL")
	ErrHealthcheckFailed = errors.New("redis: healthcheck failed")
)
