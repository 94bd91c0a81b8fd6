package entity

// OrderNotification is a validated request to email an order confirmation.
// Both fields are non-empty once produced by the decoder.
type OrderNotification struct {
	Email   string
	OrderID string
}
