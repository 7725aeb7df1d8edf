package provider

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestScaledValueDecimal(t *testing.T) {
	tests := []struct {
		name     string
		unscaled string
		scale    string
		want     string
	}{
		{"positive with scale", "1050", "2", "10.50"},
		{"negative zero scale", "-500", "0", "-500"},
		{"missing scale defaults to zero", "42", "", "42"},
		{"large scale", "1", "4", "0.0001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ScaledValue{UnscaledValue: NumberString(tt.unscaled), Scale: NumberString(tt.scale)}
			got, err := v.Decimal()
			assert.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"got %s, want %s", got, tt.want)
		})
	}
}

func TestScaledValueDecimalInvalid(t *testing.T) {
	v := ScaledValue{UnscaledValue: "not-a-number", Scale: "2"}
	_, err := v.Decimal()
	assert.Error(t, err)
}

func TestRawAmountNestedObject(t *testing.T) {
	var amount RawAmount
	err := json.Unmarshal([]byte(`{"value":{"unscaledValue":"-150000","scale":"2"},"currencyCode":"SEK"}`), &amount)
	assert.NoError(t, err)
	assert.Equal(t, "SEK", amount.CurrencyCode)

	d, ok, err := amount.Decimal()
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, d.Equal(decimal.RequireFromString("-1500")), "got %s", d)
}

func TestRawAmountNumericUnscaledValue(t *testing.T) {
	var amount RawAmount
	err := json.Unmarshal([]byte(`{"value":{"unscaledValue":1050,"scale":2}}`), &amount)
	assert.NoError(t, err)

	d, ok, err := amount.Decimal()
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, d.Equal(decimal.RequireFromString("10.50")), "got %s", d)
}

func TestRawAmountPlainNumber(t *testing.T) {
	var amount RawAmount
	err := json.Unmarshal([]byte(`-42.50`), &amount)
	assert.NoError(t, err)

	d, ok, err := amount.Decimal()
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, d.Equal(decimal.RequireFromString("-42.5")), "got %s", d)
}

func TestRawAmountAbsent(t *testing.T) {
	var tx RawTransaction
	err := json.Unmarshal([]byte(`{"id":"tx-1","accountId":"acc-1"}`), &tx)
	assert.NoError(t, err)

	_, ok, err := tx.Amount.Decimal()
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestTransactionsPayloadWrapped(t *testing.T) {
	var payload TransactionsPayload
	err := json.Unmarshal([]byte(`{"transactions":[{"id":"a"},{"id":"b"}]}`), &payload)
	assert.NoError(t, err)
	assert.Len(t, payload.Transactions, 2)
	assert.Equal(t, "a", payload.Transactions[0].ID)
}

func TestTransactionsPayloadBareArray(t *testing.T) {
	var payload TransactionsPayload
	err := json.Unmarshal([]byte(`[{"id":"a"}]`), &payload)
	assert.NoError(t, err)
	assert.Len(t, payload.Transactions, 1)
}

func TestRawAccountBalanceShapes(t *testing.T) {
	var scaled RawAccount
	err := json.Unmarshal([]byte(`{"id":"acc-1","currencyDenominatedBalance":{"unscaledValue":4000,"scale":2,"currencyCode":"SEK"}}`), &scaled)
	assert.NoError(t, err)
	d, err := scaled.CurrencyDenominatedBalance.Decimal()
	assert.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("40")), "got %s", d)

	var plain RawAccount
	err = json.Unmarshal([]byte(`{"id":"acc-2","balance":40.25}`), &plain)
	assert.NoError(t, err)
	assert.True(t, plain.Balance.Equal(decimal.RequireFromString("40.25")))
}
