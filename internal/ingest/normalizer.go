// Package ingest converts raw provider payloads into canonical records
// and writes them to the per-user store. One malformed record never
// aborts a batch: data-quality and referential gaps are skipped,
// counted and logged.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/piloted/finsync/internal/category"
	"github.com/piloted/finsync/internal/models"
	"github.com/piloted/finsync/internal/provider"
	"github.com/piloted/finsync/internal/store"
	"github.com/piloted/finsync/internal/utils"
	"github.com/shopspring/decimal"
)

const (
	fallbackDescription = "Unknown"
	fallbackCurrency    = "SEK"
)

var (
	errMissingAccountRef = errors.New("transaction has no account reference")
	errMissingAmount     = errors.New("transaction has no amount")
)

// Result counts what one ingestion batch did.
type Result struct {
	Accounts     int // accounts upserted
	Transactions int // transactions upserted
	Skipped      int // malformed records dropped (data quality)
	Orphaned     int // transactions referencing unknown accounts
}

// Normalizer turns provider payloads into canonical rows.
type Normalizer struct {
	logger *utils.Logger
}

func NewNormalizer(logger *utils.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Ingest normalizes and upserts one sync batch inside a single store
// transaction, so account and transaction state always commit together.
func (n *Normalizer) Ingest(
	ctx context.Context,
	st *store.UserStore,
	accounts *provider.AccountsPayload,
	transactions *provider.TransactionsPayload,
	now time.Time,
) (*Result, error) {
	result := &Result{}

	err := st.WithTx(ctx, func(tx *store.Tx) error {
		if accounts != nil {
			for _, raw := range accounts.Accounts {
				acct, err := NormalizeAccount(&raw, st.UserID(), now)
				if err != nil {
					result.Skipped++
					n.logger.Warn("skipping account %q: %v", raw.ID, err)
					continue
				}
				if err := tx.UpsertAccount(ctx, acct); err != nil {
					return fmt.Errorf("upsert account %s: %w", acct.ID, err)
				}
				result.Accounts++
			}
		}

		// Known ids include accounts written above and accounts from
		// earlier syncs still on file.
		known, err := tx.AccountIDs(ctx)
		if err != nil {
			return fmt.Errorf("list account ids: %w", err)
		}

		if transactions != nil {
			for _, raw := range transactions.Transactions {
				trans, err := NormalizeTransaction(&raw, now)
				if err != nil {
					result.Skipped++
					n.logger.Warn("skipping transaction %q: %v", raw.ID, err)
					continue
				}
				if !known[trans.AccountID] {
					result.Orphaned++
					n.logger.Warn("dropping transaction %s: unknown account %s", trans.ID, trans.AccountID)
					continue
				}
				if err := tx.UpsertTransaction(ctx, trans); err != nil {
					return fmt.Errorf("upsert transaction %s: %w", trans.ID, err)
				}
				result.Transactions++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// NormalizeAccount maps one raw account to the canonical shape. The
// balance prefers the scaled fixed-point form over the pre-scaled
// number so no precision is lost.
func NormalizeAccount(raw *provider.RawAccount, userID string, now time.Time) (*models.Account, error) {
	if raw.ID == "" {
		return nil, errors.New("account has no id")
	}

	balance := decimal.Zero
	currency := raw.CurrencyCode
	switch {
	case raw.CurrencyDenominatedBalance != nil:
		d, err := raw.CurrencyDenominatedBalance.Decimal()
		if err != nil {
			return nil, fmt.Errorf("decode balance: %w", err)
		}
		balance = d
		if currency == "" {
			currency = raw.CurrencyDenominatedBalance.CurrencyCode
		}
	case raw.Balance != nil:
		balance = *raw.Balance
	}
	if currency == "" {
		currency = fallbackCurrency
	}

	name := raw.Name
	if name == "" {
		name = fallbackDescription
	}

	return &models.Account{
		ID:            raw.ID,
		UserID:        userID,
		AccountNumber: raw.AccountNumber,
		Name:          name,
		Balance:       balance,
		CurrencyCode:  currency,
		BankID:        raw.BankID,
		Type:          raw.Type,
		LastRefreshed: now,
	}, nil
}

// NormalizeTransaction maps one raw transaction to the canonical shape,
// applying the per-field fallback chains and classifying the
// description. Records without an account reference or an amount are
// rejected; everything else degrades gracefully.
func NormalizeTransaction(raw *provider.RawTransaction, now time.Time) (*models.Transaction, error) {
	if raw.AccountID == "" {
		return nil, errMissingAccountRef
	}

	amount, ok, err := raw.Amount.Decimal()
	if err != nil {
		return nil, fmt.Errorf("decode amount: %w", err)
	}
	if !ok {
		return nil, errMissingAmount
	}

	description := transactionDescription(raw)

	currency := ""
	if raw.Amount != nil {
		currency = raw.Amount.CurrencyCode
	}
	if currency == "" {
		currency = raw.CurrencyCode
	}
	if currency == "" {
		currency = fallbackCurrency
	}

	return &models.Transaction{
		ID:           raw.ID,
		AccountID:    raw.AccountID,
		Amount:       amount,
		CurrencyCode: currency,
		Description:  description,
		Date:         transactionDate(raw, now),
		Category:     category.Classify(description),
		Pending:      raw.Status == "PENDING",
	}, nil
}

// transactionDescription prefers the structured display field, then the
// structured original, then the flat field, then the sentinel.
func transactionDescription(raw *provider.RawTransaction) string {
	if raw.Descriptions != nil {
		if raw.Descriptions.Display != "" {
			return raw.Descriptions.Display
		}
		if raw.Descriptions.Original != "" {
			return raw.Descriptions.Original
		}
	}
	if raw.Description != "" {
		return raw.Description
	}
	return fallbackDescription
}

// transactionDate prefers the booked date, then the flat date field,
// then the sync timestamp. Dates arrive as YYYY-MM-DD or RFC 3339.
func transactionDate(raw *provider.RawTransaction, now time.Time) time.Time {
	candidate := ""
	if raw.Dates != nil && raw.Dates.Booked != "" {
		candidate = raw.Dates.Booked
	} else if raw.Date != "" {
		candidate = raw.Date
	}
	if candidate == "" {
		return now
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, candidate); err == nil {
			return t.UTC()
		}
	}
	return now
}
