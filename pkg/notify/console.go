package notify

import (
	"context"
	"log"
)

// ConsoleNotifier writes messages to the process log. It is the
// fallback channel when no webhook gateway is configured, so a
// development setup still shows every message that would have gone
// out.
type ConsoleNotifier struct{}

func NewConsoleNotifier() *ConsoleNotifier {
	return &ConsoleNotifier{}
}

func (*ConsoleNotifier) IsEnabled() bool { return true }

func (*ConsoleNotifier) Send(_ context.Context, msg *Message) error {
	log.Printf("NOTIFY [%s] %s\n%s", msg.Kind, msg.Title, msg.Body)
	return nil
}
