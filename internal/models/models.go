package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category is the closed set of spending categories a transaction can
// be classified into.
type Category string

const (
	CategoryGroceries     Category = "Groceries"
	CategoryTransport     Category = "Transport"
	CategoryEntertainment Category = "Entertainment"
	CategoryIncome        Category = "Income"
	CategoryHousing       Category = "Housing"
	CategoryUtilities     Category = "Utilities"
	CategoryOther         Category = "Other"
)

// RuleKind identifies the condition a notification rule checks.
type RuleKind string

const (
	RuleBalanceLow       RuleKind = "BALANCE_LOW"
	RuleTransactionHigh  RuleKind = "TRANSACTION_HIGH"
	RuleCategoryExceeded RuleKind = "CATEGORY_EXCEEDED"
)

// Account is the canonical bank account shape, normalized from the
// provider payload. The id is provider-assigned and stable, so a re-sync
// overwrites mutable fields instead of creating duplicate rows.
type Account struct {
	ID            string          `db:"id" json:"id"`
	UserID        string          `db:"user_id" json:"userId"`
	AccountNumber string          `db:"account_number" json:"accountNumber"`
	Name          string          `db:"name" json:"name"`
	Balance       decimal.Decimal `db:"balance" json:"balance"`
	CurrencyCode  string          `db:"currency_code" json:"currencyCode"`
	BankID        string          `db:"bank_id" json:"bankId"`
	Type          string          `db:"type" json:"type"`
	LastRefreshed time.Time       `db:"last_refreshed" json:"lastRefreshed"`
}

// Transaction is the canonical transaction shape. Amount is signed:
// negative means outflow. Category is computed at ingestion time.
type Transaction struct {
	ID           string          `db:"id" json:"id"`
	AccountID    string          `db:"account_id" json:"accountId"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	CurrencyCode string          `db:"currency_code" json:"currencyCode"`
	Description  string          `db:"description" json:"description"`
	Date         time.Time       `db:"date" json:"date"`
	Category     Category        `db:"category" json:"category"`
	Pending      bool            `db:"pending" json:"pending"`
}

// NotificationRule is a single alerting rule. Rules are configuration
// supplied to the evaluator, not user-generated state.
type NotificationRule struct {
	ID        string
	Kind      RuleKind
	Threshold decimal.Decimal
	Params    map[string]string
}

// Notification is an alert produced by rule evaluation. The id is a
// deterministic function of the rule kind, the triggering entity and a
// day-granularity timestamp, which makes insertion idempotent.
type Notification struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	Title     string    `db:"title" json:"title"`
	Body      string    `db:"body" json:"body"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	Read      bool      `db:"read" json:"read"`
}

// PushSubscription is one registered web-push endpoint. The key material
// is opaque to this server and handed to the push transport verbatim.
type PushSubscription struct {
	ID        string    `db:"id" json:"id"`
	Endpoint  string    `db:"endpoint" json:"endpoint"`
	P256dh    string    `db:"p256dh" json:"p256dh"`
	Auth      string    `db:"auth" json:"auth"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// ProviderToken is the stored access token for one banking provider.
type ProviderToken struct {
	Provider     string    `db:"provider" json:"provider"`
	AccessToken  string    `db:"access_token" json:"-"`
	RefreshToken string    `db:"refresh_token" json:"-"`
	ExpiresAt    time.Time `db:"expires_at" json:"expiresAt"`
}

// User represents a registered user in the identity store.
type User struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	Password  string    `db:"password" json:"-"` // Password hash, not returned in JSON
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
