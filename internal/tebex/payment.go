package tebex

import (
	"encoding/json"
	"time"
)

// StatusCode is a payment status id.
type StatusCode int

// Known payment status ids.
const (
	StatusComplete        StatusCode = 1
	StatusRefund          StatusCode = 2
	StatusChargeback      StatusCode = 3
	StatusDeclined        StatusCode = 18
	StatusPendingCheckout StatusCode = 19
	StatusRefundPending   StatusCode = 21
)

func (s StatusCode) String() string {
	switch s {
	case StatusComplete:
		return "complete"
	case StatusRefund:
		return "refund"
	case StatusChargeback:
		return "chargeback"
	case StatusDeclined:
		return "declined"
	case StatusPendingCheckout:
		return "pending_checkout"
	case StatusRefundPending:
		return "refund_pending"
	default:
		return "unknown"
	}
}

// Payment is the subject of a payment webhook.
type Payment struct {
	TransactionID             string          `json:"transaction_id"`
	Status                    PaymentStatus   `json:"status"`
	PaymentSequence           string          `json:"payment_sequence"`
	CreatedAt                 time.Time       `json:"created_at"`
	Price                     Cost            `json:"price"`
	PricePaid                 Cost            `json:"price_paid"`
	PaymentMethod             PaymentMethod   `json:"payment_method"`
	Fees                      Fees            `json:"fees"`
	Customer                  Customer        `json:"customer"`
	Products                  []Product       `json:"products"`
	RecurringPaymentReference *string         `json:"recurring_payment_reference"`
	DeclineReason             *DeclineReason  `json:"decline_reason"`
	Custom                    json.RawMessage `json:"custom,omitempty"`

	// The provider does not document these shapes; they are kept undecoded
	// so an unexpected layout never rejects the payment.
	Coupons     json.RawMessage `json:"coupons,omitempty"`
	GiftCards   json.RawMessage `json:"gift_cards,omitempty"`
	CreatorCode json.RawMessage `json:"creator_code,omitempty"`
}

type PaymentStatus struct {
	ID          StatusCode `json:"id"`
	Description string     `json:"description"`
}

type Cost struct {
	Amount            float64 `json:"amount"`
	Currency          string  `json:"currency"`
	BaseCurrency      string  `json:"base_currency"`
	BaseCurrencyPrice float64 `json:"base_currency_price"`
}

type PaymentMethod struct {
	Name       string `json:"name"`
	Refundable bool   `json:"refundable"`
}

type Fees struct {
	Tax     Cost `json:"tax"`
	Gateway Cost `json:"gateway"`
}

type Customer struct {
	FirstName        string   `json:"first_name"`
	LastName         string   `json:"last_name"`
	Email            string   `json:"email"`
	IP               string   `json:"ip"`
	Username         Username `json:"username"`
	MarketingConsent bool     `json:"marketing_consent"`
	Country          string   `json:"country"`
	PostalCode       string   `json:"postal_code"`
}

// Username identifies a game account. ID is the account UUID.
type Username struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type Product struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Type      string     `json:"type"`
	Quantity  int        `json:"quantity"`
	BasePrice Cost       `json:"base_price"`
	PaidPrice Cost       `json:"paid_price"`
	ExpiresAt *time.Time `json:"expires_at"`
	Custom    CustomData `json:"custom"`
	Username  Username   `json:"username"`
}

type DeclineReason struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CustomData is the free-text custom field of a product. Non-string JSON
// values are kept as their raw text.
type CustomData string

func (c *CustomData) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = CustomData(s)
		return nil
	}
	*c = CustomData(data)
	return nil
}
