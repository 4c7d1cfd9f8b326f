package s3

import "errors"

var (
	ErrInvalidConfig     = errors.New("s3: region not provided")
	ErrConnectionFailed  = errors.New("s3: failed to build client")
	ErrHealthcheckFailed = errors.New("s3: healthcheck failed")
)
