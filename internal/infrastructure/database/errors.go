package database

import "errors"

var (
	ErrUnsupportedDriver      = errors.New("unsupported database driver")
	ErrFailedToParseRedisURL  = errors.New("failed to parse redis connection url")
	ErrRedisNotReady          = errors.New("redis did not become ready within the given time period")
	ErrFailedToConnectToMongo = errors.New("failed to connect to mongo")
	ErrHealthcheckFailed      = errors.New("healthcheck failed")
)
