package notifications

import (
	"context"

	"github.com/9ssi7/exponent"
)

// PushSender is the seam the booking fan-out publishes through. It speaks
// exponent types directly; Expo is the only transport the mobile app
// registers tokens for.
type PushSender interface {
	Publish(ctx context.Context, msgs []*exponent.Message) ([]*exponent.MessageResponse, error)
	PublishSingle(ctx context.Context, msg *exponent.Message) ([]*exponent.MessageResponse, error)
}
