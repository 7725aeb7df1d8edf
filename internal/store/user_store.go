package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/piloted/finsync/internal/models"
)

// UserStore is the persistent container for one user's financial state.
// All upserts are idempotent on the provider-assigned external id, and
// notification insertion is insert-if-absent, which is what makes
// repeated syncs and rule evaluations safe.
type UserStore struct {
	db     *sqlx.DB
	userID string
}

// UserID returns the id of the user this store belongs to.
func (s *UserStore) UserID() string { return s.userID }

const upsertAccountQuery = `
	INSERT OR REPLACE INTO accounts
		(id, user_id, account_number, name, balance, currency_code, bank_id, type, last_refreshed)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const upsertTransactionQuery = `
	INSERT OR REPLACE INTO transactions
		(id, account_id, amount, currency_code, description, date, category, pending)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

// UpsertAccount inserts or overwrites an account row keyed on the
// external id.
func (s *UserStore) UpsertAccount(ctx context.Context, account *models.Account) error {
	_, err := s.db.ExecContext(ctx, upsertAccountQuery,
		account.ID, s.userID, account.AccountNumber, account.Name, account.Balance,
		account.CurrencyCode, account.BankID, account.Type, account.LastRefreshed)
	return err
}

// UpsertTransaction inserts or overwrites a transaction row keyed on
// the external id. The referenced account must already exist.
func (s *UserStore) UpsertTransaction(ctx context.Context, tx *models.Transaction) error {
	_, err := s.db.ExecContext(ctx, upsertTransactionQuery,
		tx.ID, tx.AccountID, tx.Amount, tx.CurrencyCode, tx.Description,
		tx.Date, tx.Category, tx.Pending)
	return err
}

// Tx exposes the write operations of one ingestion batch. All writes
// commit together or not at all, so a crash mid-batch cannot leave
// transactions referencing rolled-back accounts.
type Tx struct {
	tx     *sqlx.Tx
	userID string
}

// WithTx runs fn inside a single database transaction.
func (s *UserStore) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	dbTx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(&Tx{tx: dbTx, userID: s.userID}); err != nil {
		dbTx.Rollback()
		return err
	}
	return dbTx.Commit()
}

// UpsertAccount is the transactional variant of UserStore.UpsertAccount.
func (t *Tx) UpsertAccount(ctx context.Context, account *models.Account) error {
	_, err := t.tx.ExecContext(ctx, upsertAccountQuery,
		account.ID, t.userID, account.AccountNumber, account.Name, account.Balance,
		account.CurrencyCode, account.BankID, account.Type, account.LastRefreshed)
	return err
}

// UpsertTransaction is the transactional variant of
// UserStore.UpsertTransaction.
func (t *Tx) UpsertTransaction(ctx context.Context, tr *models.Transaction) error {
	_, err := t.tx.ExecContext(ctx, upsertTransactionQuery,
		tr.ID, tr.AccountID, tr.Amount, tr.CurrencyCode, tr.Description,
		tr.Date, tr.Category, tr.Pending)
	return err
}

// AccountIDs returns the set of account ids visible inside the
// transaction, including rows written earlier in the same batch.
func (t *Tx) AccountIDs(ctx context.Context) (map[string]bool, error) {
	var ids []string
	if err := t.tx.SelectContext(ctx, &ids, `SELECT id FROM accounts`); err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// ListAccounts returns all accounts for the user.
func (s *UserStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	err := s.db.SelectContext(ctx, &accounts, `SELECT * FROM accounts ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// ListTransactions returns transactions newest first, optionally
// filtered to one account.
func (s *UserStore) ListTransactions(ctx context.Context, accountID string) ([]models.Transaction, error) {
	var transactions []models.Transaction
	var err error
	if accountID != "" {
		err = s.db.SelectContext(ctx, &transactions,
			`SELECT * FROM transactions WHERE account_id = ? ORDER BY date DESC, id`, accountID)
	} else {
		err = s.db.SelectContext(ctx, &transactions,
			`SELECT * FROM transactions ORDER BY date DESC, id`)
	}
	if err != nil {
		return nil, err
	}
	return transactions, nil
}

// InsertNotificationIfAbsent stores a notification unless one with the
// same id already exists. It reports whether the row was newly
// inserted; callers only trigger push delivery when it was.
func (s *UserStore) InsertNotificationIfAbsent(ctx context.Context, n *models.Notification) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO notifications (id, user_id, title, body, created_at, read)
		VALUES (?, ?, ?, ?, ?, ?)
	`, n.ID, s.userID, n.Title, n.Body, n.CreatedAt, n.Read)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ListNotifications returns stored notifications newest first.
func (s *UserStore) ListNotifications(ctx context.Context) ([]models.Notification, error) {
	var notifications []models.Notification
	err := s.db.SelectContext(ctx, &notifications,
		`SELECT * FROM notifications ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkNotificationRead flags one notification as read. It reports
// whether the notification exists.
func (s *UserStore) MarkNotificationRead(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// AddSubscription registers a push endpoint. Re-subscribing the same
// endpoint overwrites the key material instead of duplicating the row.
func (s *UserStore) AddSubscription(ctx context.Context, sub *models.PushSubscription) error {
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO push_subscriptions (id, endpoint, p256dh, auth, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(endpoint) DO UPDATE SET p256dh = excluded.p256dh, auth = excluded.auth
	`, sub.ID, sub.Endpoint, sub.P256dh, sub.Auth, sub.CreatedAt)
	return err
}

// RemoveSubscriptionByEndpoint prunes a dead push endpoint.
func (s *UserStore) RemoveSubscriptionByEndpoint(ctx context.Context, endpoint string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	return err
}

// ListSubscriptions returns every push endpoint on file for the user.
func (s *UserStore) ListSubscriptions(ctx context.Context) ([]models.PushSubscription, error) {
	var subscriptions []models.PushSubscription
	err := s.db.SelectContext(ctx, &subscriptions,
		`SELECT * FROM push_subscriptions ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	return subscriptions, nil
}

// SaveProviderToken stores the access token for one provider.
func (s *UserStore) SaveProviderToken(ctx context.Context, token *models.ProviderToken) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO bank_tokens (provider, access_token, refresh_token, expires_at)
		VALUES (?, ?, ?, ?)
	`, token.Provider, token.AccessToken, token.RefreshToken, token.ExpiresAt)
	return err
}

// GetProviderToken returns the stored token for a provider, or nil when
// the user has not linked it.
func (s *UserStore) GetProviderToken(ctx context.Context, provider string) (*models.ProviderToken, error) {
	var token models.ProviderToken
	err := s.db.GetContext(ctx, &token,
		`SELECT * FROM bank_tokens WHERE provider = ?`, provider)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &token, nil
}
