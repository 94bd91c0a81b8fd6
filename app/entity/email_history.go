package entity

const (
	EmailStatusNew              int16 = 0
	EmailStatusProcessing       int16 = 1
	EmailStatusSuccess          int16 = 10
	EmailStatusPermanentFailure int16 = 50
)

// EmailHistory is one dispatch attempt. RequestID identifies the triggering
// broker message as topic/partition/offset.
type EmailHistory struct {
	RequestID string
	OrderID   string
	Recipient string
	Status    int16
}
