package provider

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// NumberString accepts both a JSON number and a numeric string, which
// the provider uses interchangeably across API versions.
type NumberString string

func (n *NumberString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*n = NumberString(s)
		return nil
	}
	if string(trimmed) == "null" {
		return nil
	}
	*n = NumberString(trimmed)
	return nil
}

func (n NumberString) String() string { return string(n) }

// ScaledValue is the provider's fixed-point amount encoding:
// unscaledValue 1050 with scale 2 means 10.50.
type ScaledValue struct {
	UnscaledValue NumberString `json:"unscaledValue"`
	Scale         NumberString `json:"scale"`
	CurrencyCode  string       `json:"currencyCode,omitempty"`
}

// Decimal converts the scaled form to an exact decimal without going
// through binary floating point.
func (v *ScaledValue) Decimal() (decimal.Decimal, error) {
	unscaled, err := strconv.ParseInt(v.UnscaledValue.String(), 10, 64)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse unscaledValue %q: %w", v.UnscaledValue, err)
	}
	scale := int64(0)
	if v.Scale != "" {
		scale, err = strconv.ParseInt(v.Scale.String(), 10, 32)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse scale %q: %w", v.Scale, err)
		}
	}
	return decimal.New(unscaled, -int32(scale)), nil
}

// RawAmount accepts both shapes the provider uses for transaction
// amounts: the nested {value: {unscaledValue, scale}, currencyCode}
// object and a bare pre-scaled number.
type RawAmount struct {
	Value        *ScaledValue
	CurrencyCode string
	Plain        *decimal.Decimal
}

func (a *RawAmount) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil
	}
	if trimmed[0] == '{' {
		var nested struct {
			Value        *ScaledValue `json:"value"`
			CurrencyCode string       `json:"currencyCode"`
		}
		if err := json.Unmarshal(trimmed, &nested); err != nil {
			return err
		}
		a.Value = nested.Value
		a.CurrencyCode = nested.CurrencyCode
		return nil
	}
	var plain decimal.Decimal
	if err := json.Unmarshal(trimmed, &plain); err != nil {
		return err
	}
	a.Plain = &plain
	return nil
}

// Decimal resolves the amount, preferring the scaled form. The second
// return value reports whether any amount was present at all.
func (a *RawAmount) Decimal() (decimal.Decimal, bool, error) {
	if a == nil {
		return decimal.Zero, false, nil
	}
	if a.Value != nil && a.Value.UnscaledValue != "" {
		d, err := a.Value.Decimal()
		return d, err == nil, err
	}
	if a.Plain != nil {
		return *a.Plain, true, nil
	}
	return decimal.Zero, false, nil
}

// RawDescriptions is the provider's structured description object.
type RawDescriptions struct {
	Display  string `json:"display"`
	Original string `json:"original"`
}

// RawDates is the provider's structured date object.
type RawDates struct {
	Booked string `json:"booked"`
}

// RawTransaction is one transaction as it arrives from the provider.
// Several attributes have aliased flat and structured forms; the
// normalizer applies the fallback chain.
type RawTransaction struct {
	ID           string           `json:"id"`
	AccountID    string           `json:"accountId"`
	Amount       *RawAmount       `json:"amount"`
	Descriptions *RawDescriptions `json:"descriptions"`
	Description  string           `json:"description"`
	Dates        *RawDates        `json:"dates"`
	Date         string           `json:"date"`
	CurrencyCode string           `json:"currencyCode"`
	Status       string           `json:"status"`
}

// RawAccount is one account as it arrives from the provider. The
// balance is either a pre-scaled number or the scaled object, again
// depending on the API version.
type RawAccount struct {
	ID                         string           `json:"id"`
	AccountNumber              string           `json:"accountNumber"`
	Name                       string           `json:"name"`
	Type                       string           `json:"type"`
	Balance                    *decimal.Decimal `json:"balance"`
	CurrencyDenominatedBalance *ScaledValue     `json:"currencyDenominatedBalance"`
	CurrencyCode               string           `json:"currencyCode"`
	BankID                     string           `json:"bankId"`
}

// AccountsPayload is the provider's account list response.
type AccountsPayload struct {
	Accounts []RawAccount `json:"accounts"`
}

// TransactionsPayload accepts both the wrapped {transactions: [...]}
// object and a bare array.
type TransactionsPayload struct {
	Transactions []RawTransaction
}

func (p *TransactionsPayload) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(trimmed, &p.Transactions)
	}
	var wrapped struct {
		Transactions []RawTransaction `json:"transactions"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return err
	}
	p.Transactions = wrapped.Transactions
	return nil
}
