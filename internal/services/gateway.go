package services

// SendResult reports the outcome of an outbound message attempt.
// InvalidNumber means the gateway rejected the destination itself, which
// triggers the email fallback for credential deliveries.
type SendResult struct {
	Sent          bool
	InvalidNumber bool
}

// Gateway is the messaging channel used to reach customers and operators.
// Two implementations exist: Twilio (production default) and a direct
// WhatsApp Web connection via whatsmeow (GATEWAY_DRIVER=whatsmeow).
type Gateway interface {
	SendText(to, text string) (SendResult, error)
	Connect() error
	Close()
}
