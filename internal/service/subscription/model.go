package subscription

import "time"

// Status of a subscription record.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusRefunded  Status = "refunded"
	StatusExpired   Status = "expired"
)

// Account is a login identity provisioned on first payment.
type Account struct {
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName"`
	PasswordHash string    `json:"-"`
	Disabled     bool      `json:"disabled"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Subscription mirrors the billing state of an account.
type Subscription struct {
	Email             string     `json:"email"`
	Name              string     `json:"name"`
	Phone             string     `json:"phone"`
	Document          string     `json:"document"`
	Status            Status     `json:"status"`
	LastPaymentDate   *time.Time `json:"lastPaymentDate,omitempty"`
	NextPaymentDate   *time.Time `json:"nextPaymentDate,omitempty"`
	LastTransactionID string     `json:"lastTransactionId"`
	LastPaymentMethod string     `json:"lastPaymentMethod"`
	TotalPaid         int64      `json:"totalPaid"`
	PaymentCount      int        `json:"paymentCount"`
	SuspendedAt       *time.Time `json:"suspendedAt,omitempty"`
	SuspendReason     string     `json:"suspendReason,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// Payment is one entry of the payment history.
type Payment struct {
	Email         string    `json:"email"`
	TransactionID string    `json:"transactionId"`
	Amount        int64     `json:"amount"`
	Method        string    `json:"method"`
	Status        string    `json:"status"`
	PaidAt        time.Time `json:"paidAt"`
}

// Event is the payment provider webhook payload.
type Event struct {
	Event       string       `json:"event"`
	Status      string       `json:"status"`
	Token       string       `json:"token"`
	Method      string       `json:"method"`
	PaidAt      string       `json:"paid_at"`
	Customer    Customer     `json:"customer"`
	Transaction *Transaction `json:"transaction,omitempty"`
	Offer       *Offer       `json:"offer,omitempty"`
}

type Customer struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
	Phone       string `json:"phone"`
	Document    string `json:"document"`
}

type Transaction struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
	Method string `json:"method"`
}

type Offer struct {
	Price int64 `json:"price"`
}

// Result is the webhook acknowledgement body.
type Result struct {
	Success      bool          `json:"success"`
	IsNewUser    bool          `json:"isNewUser,omitempty"`
	Message      string        `json:"message"`
	User         *ResultUser   `json:"user,omitempty"`
	Subscription *ResultStatus `json:"subscription,omitempty"`
}

type ResultUser struct {
	Email     string `json:"email"`
	Password  string `json:"password,omitempty"`
	AccessURL string `json:"accessUrl,omitempty"`
}

type ResultStatus struct {
	Status    Status    `json:"status"`
	ExpiresAt time.Time `json:"expiresAt"`
}
