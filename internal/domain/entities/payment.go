package entities

// PaymentNotification is the transient payload of an asynchronous gateway
// callback. It is verified and interpreted but never persisted verbatim.
type PaymentNotification struct {
	MerchantID string
	OrderID    string
	Amount     string
	Currency   string
	StatusCode int
	Signature  string
}

// Gateway status codes, per the PayHere notification contract
const (
	GatewayStatusSuccess   = 2
	GatewayStatusPending   = 0
	GatewayStatusCancelled = -1
	GatewayStatusFailed    = -2
)

// PaymentDescriptor is the signed outbound checkout request handed to the
// frontend for redirection to the gateway
type PaymentDescriptor struct {
	CheckoutURL string `json:"checkout_url"`
	MerchantID  string `json:"merchant_id"`
	OrderID     string `json:"order_id"`
	Items       string `json:"items"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Hash        string `json:"hash"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	City        string `json:"city"`
	Country     string `json:"country"`
	ReturnURL   string `json:"return_url"`
	CancelURL   string `json:"cancel_url"`
	NotifyURL   string `json:"notify_url"`
	Sandbox     bool   `json:"sandbox"`
}
