package rules

import (
	"testing"
	"time"

	"github.com/piloted/finsync/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var evalTime = time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

func account(id, name string, balance string) models.Account {
	return models.Account{
		ID:           id,
		Name:         name,
		Balance:      decimal.RequireFromString(balance),
		CurrencyCode: "SEK",
	}
}

func transaction(id string, amount string, cat models.Category, date time.Time) models.Transaction {
	return models.Transaction{
		ID:           id,
		AccountID:    "acc-1",
		Amount:       decimal.RequireFromString(amount),
		CurrencyCode: "SEK",
		Description:  "test transaction",
		Category:     cat,
		Date:         date,
	}
}

func TestEvaluateBalanceLow(t *testing.T) {
	accounts := []models.Account{
		account("acc-1", "Checking", "50"),
		account("acc-2", "Savings", "5000"),
	}

	got := Evaluate("user-1", accounts, nil, DefaultRuleSet(), evalTime)

	assert.Len(t, got, 1)
	assert.Equal(t, "low-bal-acc-1-2026-03-14", got[0].ID)
	assert.Equal(t, "Low Balance Alert", got[0].Title)
	assert.Equal(t, "user-1", got[0].UserID)
	assert.Contains(t, got[0].Body, "Checking")
	assert.Contains(t, got[0].Body, "50 SEK")
}

func TestEvaluateBalanceLowBoundary(t *testing.T) {
	// Exactly at the threshold does not trigger; strictly below does.
	got := Evaluate("u", []models.Account{account("a", "A", "100")}, nil, DefaultRuleSet(), evalTime)
	assert.Empty(t, got)

	got = Evaluate("u", []models.Account{account("a", "A", "99.99")}, nil, DefaultRuleSet(), evalTime)
	assert.Len(t, got, 1)
}

func TestEvaluateSameDayProducesSameID(t *testing.T) {
	accounts := []models.Account{account("acc-1", "Checking", "50")}

	morning := Evaluate("u", accounts, nil, DefaultRuleSet(), evalTime)
	evening := Evaluate("u", accounts, nil, DefaultRuleSet(), evalTime.Add(8*time.Hour))

	// The day-granularity dedup key makes repeated same-day evaluation
	// collapse to one stored row.
	assert.Equal(t, morning[0].ID, evening[0].ID)
}

func TestEvaluateDifferentDaysProduceDistinctIDs(t *testing.T) {
	accounts := []models.Account{account("acc-1", "Checking", "50")}

	day1 := Evaluate("u", accounts, nil, DefaultRuleSet(), evalTime)
	day2 := Evaluate("u", accounts, nil, DefaultRuleSet(), evalTime.AddDate(0, 0, 1))

	assert.NotEqual(t, day1[0].ID, day2[0].ID)
}

func TestEvaluateTransactionHigh(t *testing.T) {
	transactions := []models.Transaction{
		transaction("tx-1", "-1500", models.CategoryOther, evalTime),
		transaction("tx-2", "2500", models.CategoryIncome, evalTime),
		transaction("tx-3", "-999.99", models.CategoryOther, evalTime),
	}

	got := Evaluate("u", nil, transactions, DefaultRuleSet(), evalTime)

	// Magnitude counts for inflows and outflows alike.
	assert.Len(t, got, 2)
	assert.Equal(t, "high-tx-tx-1", got[0].ID)
	assert.Equal(t, "high-tx-tx-2", got[1].ID)
	assert.Equal(t, "High Transaction Alert", got[0].Title)
}

func TestEvaluateTransactionHighIDIgnoresDay(t *testing.T) {
	transactions := []models.Transaction{transaction("tx-1", "-1500", models.CategoryOther, evalTime)}

	day1 := Evaluate("u", nil, transactions, DefaultRuleSet(), evalTime)
	day2 := Evaluate("u", nil, transactions, DefaultRuleSet(), evalTime.AddDate(0, 0, 5))

	// One notification per transaction, permanently.
	assert.Equal(t, day1[0].ID, day2[0].ID)
}

func TestEvaluatePure(t *testing.T) {
	accounts := []models.Account{account("acc-1", "Checking", "50")}
	transactions := []models.Transaction{transaction("tx-1", "-1500", models.CategoryOther, evalTime)}

	first := Evaluate("u", accounts, transactions, DefaultRuleSet(), evalTime)
	second := Evaluate("u", accounts, transactions, DefaultRuleSet(), evalTime)

	assert.Equal(t, first, second)
}

func TestEvaluateCategoryExceeded(t *testing.T) {
	ruleSet := []models.NotificationRule{
		{ID: "groceries-budget", Kind: models.RuleCategoryExceeded, Threshold: decimal.NewFromInt(500)},
	}
	transactions := []models.Transaction{
		transaction("tx-1", "-300", models.CategoryGroceries, evalTime.AddDate(0, 0, -2)),
		transaction("tx-2", "-250", models.CategoryGroceries, evalTime.AddDate(0, 0, -1)),
		transaction("tx-3", "-100", models.CategoryTransport, evalTime),
		// Previous month, excluded from the window.
		transaction("tx-4", "-900", models.CategoryGroceries, evalTime.AddDate(0, -1, 0)),
		// Inflows never count toward spending.
		transaction("tx-5", "600", models.CategoryGroceries, evalTime),
	}

	got := Evaluate("u", nil, transactions, ruleSet, evalTime)

	assert.Len(t, got, 1)
	assert.Equal(t, "cat-Groceries-2026-03-14", got[0].ID)
	assert.Contains(t, got[0].Body, "550")
	assert.Contains(t, got[0].Body, "Groceries")
}

func TestEvaluateCategoryExceededParamFilter(t *testing.T) {
	ruleSet := []models.NotificationRule{
		{
			ID:        "transport-budget",
			Kind:      models.RuleCategoryExceeded,
			Threshold: decimal.NewFromInt(100),
			Params:    map[string]string{"category": "Transport"},
		},
	}
	transactions := []models.Transaction{
		transaction("tx-1", "-800", models.CategoryGroceries, evalTime),
		transaction("tx-2", "-150", models.CategoryTransport, evalTime),
	}

	got := Evaluate("u", nil, transactions, ruleSet, evalTime)

	assert.Len(t, got, 1)
	assert.Equal(t, "cat-Transport-2026-03-14", got[0].ID)
}

func TestEvaluateInputOrderPreserved(t *testing.T) {
	accounts := []models.Account{
		account("acc-b", "B", "10"),
		account("acc-a", "A", "20"),
	}

	got := Evaluate("u", accounts, nil, DefaultRuleSet(), evalTime)

	assert.Len(t, got, 2)
	assert.Equal(t, "low-bal-acc-b-2026-03-14", got[0].ID)
	assert.Equal(t, "low-bal-acc-a-2026-03-14", got[1].ID)
}
