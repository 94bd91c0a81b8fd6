package provider

import "context"

// EmailProvider delivers an already assembled MIME message.
type EmailProvider interface {
	SendRaw(ctx context.Context, recipient string, raw []byte) error
}
