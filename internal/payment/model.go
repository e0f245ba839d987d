package payment

// WebhookEvent is the normalized form of an inbound gateway notification.
type WebhookEvent struct {
	ExternalOrderID string `json:"external_order_id"`
	Amount          int64  `json:"amount"`
	Succeeded       bool   `json:"succeeded"`
	Code            string `json:"code"`
	Description     string `json:"description"`
	Reference       string `json:"reference"`
}

// Outcome classifies what Reconcile did with an event. Every outcome except
// an infrastructure failure is acknowledged to the gateway as success.
type Outcome string

const (
	OutcomeCompleted   Outcome = "completed"
	OutcomeFailed      Outcome = "failed"
	OutcomeReplay      Outcome = "replay"
	OutcomeIgnoredTest Outcome = "ignored_test"
	OutcomeOrphaned    Outcome = "orphaned"
)

type BuyerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type CheckoutLink struct {
	ExternalOrderID string `json:"external_order_id"`
	CheckoutURL     string `json:"checkout_url"`
}

type PaymentStatus struct {
	Succeeded bool   `json:"succeeded"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

type TopUpRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}
