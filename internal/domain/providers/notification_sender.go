package providers

import (
	"context"
)

// NotificationSender is the fire-and-forget email capability. Delivery
// transport lives outside this service; implementations only hand the
// message off.
type NotificationSender interface {
	Send(ctx context.Context, to, subject, body string) error
}
