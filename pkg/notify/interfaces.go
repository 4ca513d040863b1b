// Package notify pkg/notify/interfaces.go

//go:generate mockgen -destination=mock_notify.go -package=notify github.com/pvss39/hellofarm/pkg/notify Notifier

package notify

import (
	"context"
)

// Notifier delivers farmer-facing messages through one channel.
type Notifier interface {
	// Send delivers a message through the channel
	Send(ctx context.Context, msg *Message) error

	// IsEnabled returns whether the notifier is enabled
	IsEnabled() bool
}
