// Package rules evaluates alerting rules against a snapshot of a
// user's accounts and transactions. Evaluation is pure: it proposes
// notification candidates with deterministic ids and leaves the
// insert-if-absent dedup to the store.
package rules

import (
	"fmt"
	"time"

	"github.com/piloted/finsync/internal/models"
	"github.com/shopspring/decimal"
)

// DefaultRuleSet is the fixed rule configuration: a low-balance alert
// at 100 and a high-transaction alert at 1000.
func DefaultRuleSet() []models.NotificationRule {
	return []models.NotificationRule{
		{ID: "low-balance", Kind: models.RuleBalanceLow, Threshold: decimal.NewFromInt(100)},
		{ID: "high-expense", Kind: models.RuleTransactionHigh, Threshold: decimal.NewFromInt(1000)},
	}
}

// Evaluate runs every rule over the snapshot and returns the candidate
// notifications in input order. The now argument is the sync-start
// timestamp; it is the single source of truth for the day component of
// dedup keys, so a sync straddling midnight produces consistent ids.
func Evaluate(
	userID string,
	accounts []models.Account,
	transactions []models.Transaction,
	ruleSet []models.NotificationRule,
	now time.Time,
) []models.Notification {
	var notifications []models.Notification
	for _, rule := range ruleSet {
		switch rule.Kind {
		case models.RuleBalanceLow:
			notifications = append(notifications, evaluateBalanceLow(userID, accounts, rule, now)...)
		case models.RuleTransactionHigh:
			notifications = append(notifications, evaluateTransactionHigh(userID, transactions, rule, now)...)
		case models.RuleCategoryExceeded:
			notifications = append(notifications, evaluateCategoryExceeded(userID, transactions, rule, now)...)
		}
	}
	return notifications
}

// evaluateBalanceLow alerts once per account per calendar day while the
// balance stays under the threshold.
func evaluateBalanceLow(userID string, accounts []models.Account, rule models.NotificationRule, now time.Time) []models.Notification {
	var out []models.Notification
	for _, account := range accounts {
		if account.Balance.GreaterThanOrEqual(rule.Threshold) {
			continue
		}
		out = append(out, models.Notification{
			ID:     fmt.Sprintf("low-bal-%s-%s", account.ID, dayKey(now)),
			UserID: userID,
			Title:  "Low Balance Alert",
			Body: fmt.Sprintf("Your account %s is low on funds: %s %s",
				account.Name, account.Balance.String(), account.CurrencyCode),
			CreatedAt: now,
		})
	}
	return out
}

// evaluateTransactionHigh alerts exactly once per transaction whose
// magnitude exceeds the threshold, no matter how often it is
// re-evaluated.
func evaluateTransactionHigh(userID string, transactions []models.Transaction, rule models.NotificationRule, now time.Time) []models.Notification {
	var out []models.Notification
	for _, tx := range transactions {
		if tx.Amount.Abs().LessThanOrEqual(rule.Threshold) {
			continue
		}
		out = append(out, models.Notification{
			ID:     fmt.Sprintf("high-tx-%s", tx.ID),
			UserID: userID,
			Title:  "High Transaction Alert",
			Body: fmt.Sprintf("A large transaction of %s %s was detected: %s",
				tx.Amount.String(), tx.CurrencyCode, tx.Description),
			CreatedAt: now,
		})
	}
	return out
}

// evaluateCategoryExceeded sums this calendar month's outflows per
// category and alerts once per category per day when the total passes
// the threshold. A "category" param restricts the rule to one category.
func evaluateCategoryExceeded(userID string, transactions []models.Transaction, rule models.NotificationRule, now time.Time) []models.Notification {
	totals := make(map[models.Category]decimal.Decimal)
	currencies := make(map[models.Category]string)
	var order []models.Category

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	for _, tx := range transactions {
		if tx.Amount.Sign() >= 0 {
			continue // only outflows count toward spending
		}
		if tx.Date.Before(monthStart) || tx.Date.After(now) {
			continue
		}
		if want, ok := rule.Params["category"]; ok && want != string(tx.Category) {
			continue
		}
		if _, seen := totals[tx.Category]; !seen {
			order = append(order, tx.Category)
			currencies[tx.Category] = tx.CurrencyCode
		}
		totals[tx.Category] = totals[tx.Category].Add(tx.Amount.Abs())
	}

	var out []models.Notification
	for _, cat := range order {
		if totals[cat].LessThanOrEqual(rule.Threshold) {
			continue
		}
		out = append(out, models.Notification{
			ID:     fmt.Sprintf("cat-%s-%s", cat, dayKey(now)),
			UserID: userID,
			Title:  "Category Spending Alert",
			Body: fmt.Sprintf("You have spent %s %s on %s this month",
				totals[cat].String(), currencies[cat], cat),
			CreatedAt: now,
		})
	}
	return out
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
