package store

import "github.com/jmoiron/sqlx"

// Per-user schema. Creation is idempotent and runs on every open, so a
// store file created by an older build is upgraded in place as long as
// tables only ever gain columns.

const createAccountsTable = `
	CREATE TABLE IF NOT EXISTS accounts (
		id              TEXT PRIMARY KEY,
		user_id         TEXT NOT NULL,
		account_number  TEXT NOT NULL DEFAULT '',
		name            TEXT NOT NULL DEFAULT '',
		balance         TEXT NOT NULL DEFAULT '0',
		currency_code   TEXT NOT NULL DEFAULT '',
		bank_id         TEXT NOT NULL DEFAULT '',
		type            TEXT NOT NULL DEFAULT '',
		last_refreshed  TIMESTAMP NOT NULL
	)
`

const createTransactionsTable = `
	CREATE TABLE IF NOT EXISTS transactions (
		id             TEXT PRIMARY KEY,
		account_id     TEXT NOT NULL REFERENCES accounts(id),
		amount         TEXT NOT NULL,
		currency_code  TEXT NOT NULL DEFAULT '',
		description    TEXT NOT NULL DEFAULT '',
		date           TIMESTAMP NOT NULL,
		category       TEXT NOT NULL DEFAULT 'Other',
		pending        BOOLEAN NOT NULL DEFAULT 0
	)
`

const createNotificationsTable = `
	CREATE TABLE IF NOT EXISTS notifications (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		title       TEXT NOT NULL,
		body        TEXT NOT NULL,
		created_at  TIMESTAMP NOT NULL,
		read        BOOLEAN NOT NULL DEFAULT 0
	)
`

const createPushSubscriptionsTable = `
	CREATE TABLE IF NOT EXISTS push_subscriptions (
		id          TEXT PRIMARY KEY,
		endpoint    TEXT NOT NULL UNIQUE,
		p256dh      TEXT NOT NULL,
		auth        TEXT NOT NULL,
		created_at  TIMESTAMP NOT NULL
	)
`

const createBankTokensTable = `
	CREATE TABLE IF NOT EXISTS bank_tokens (
		provider       TEXT PRIMARY KEY,
		access_token   TEXT NOT NULL,
		refresh_token  TEXT NOT NULL DEFAULT '',
		expires_at     TIMESTAMP NOT NULL
	)
`

// createUserSchema creates all per-user tables and indexes.
func createUserSchema(db *sqlx.DB) error {
	statements := []string{
		createAccountsTable,
		createTransactionsTable,
		createNotificationsTable,
		createPushSubscriptionsTable,
		createBankTokensTable,
		"CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date)",
		"CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account_id)",
		"CREATE INDEX IF NOT EXISTS idx_notifications_created ON notifications(created_at)",
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
