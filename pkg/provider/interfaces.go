// Package provider pkg/provider/interfaces.go
package provider

import (
	"context"
	"time"

	"github.com/pvss39/hellofarm/pkg/db"
	"github.com/pvss39/hellofarm/pkg/satellite"
)

//go:generate mockgen -destination=mock_provider.go -package=provider github.com/pvss39/hellofarm/pkg/provider Provider

// Request asks a provider for the freshest usable observation of one
// plot from one satellite within [Start, End].
type Request struct {
	Plot      *db.Plot
	Satellite satellite.Descriptor
	Start     time.Time
	End       time.Time
	MaxCloud  float64
}

// Provider fetches satellite observations from one imagery source.
type Provider interface {
	Name() string
	Available() bool
	FetchObservation(ctx context.Context, req Request) (*satellite.Observation, error)
}
