// Package provider pkg/provider/errors.go
package provider

import "errors"

var (
	ErrProviderUnavailable = errors.New("imagery provider unavailable")
	ErrProviderRequest     = errors.New("imagery provider request failed")
	ErrNoObservation       = errors.New("no observation in window")
)
