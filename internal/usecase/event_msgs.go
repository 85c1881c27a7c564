package usecase

// Sent by the payment provider integration (Kafka or RabbitMQ)
type PaymentStatusMsg struct {
	IntentID  string `json:"intentId"`
	SessionID string `json:"sessionId"`
	Cents     int64  `json:"cents"`
	Currency  string `json:"currency"`
	Status    string `json:"status"` // e.g. "succeeded"
}

type CheckoutLine struct {
	ProductID int64  `json:"productId"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
}

// Published when a payment intent is created for a cart
type CheckoutStartedMsg struct {
	SessionID string         `json:"sessionId"`
	IntentID  string         `json:"intentId"`
	Cents     int64          `json:"cents"`
	Currency  string         `json:"currency"`
	Lines     []CheckoutLine `json:"lines"`
}

// Published after a confirmed payment cleared the cart
type PaymentConfirmedMsg struct {
	SessionID string `json:"sessionId"`
	IntentID  string `json:"intentId"`
	Cents     int64  `json:"cents"`
	Currency  string `json:"currency"`
}
