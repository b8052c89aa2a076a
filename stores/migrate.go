package stores

import "github.com/pocketbase/dbx"

// Schema statements are idempotent so Migrate can run on every boot.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		twitter_connected INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS twitter_accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		twitter_id TEXT NOT NULL,
		twitter_username TEXT NOT NULL,
		account_name TEXT NOT NULL DEFAULT '',
		profile_image_url TEXT NOT NULL DEFAULT '',
		access_token TEXT NOT NULL,
		access_token_secret TEXT NOT NULL,
		is_default INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		UNIQUE (user_id, twitter_id)
	)`,
	`CREATE TABLE IF NOT EXISTS posts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		twitter_account_id INTEGER NOT NULL DEFAULT 0,
		content TEXT NOT NULL,
		image_url TEXT NOT NULL DEFAULT '',
		twitter_post_id TEXT NOT NULL DEFAULT '',
		scheduled_for TEXT NOT NULL DEFAULT '',
		published INTEGER NOT NULL DEFAULT 0,
		ai_generated INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'draft',
		logs TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS trading_calls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		asset TEXT NOT NULL,
		position TEXT NOT NULL,
		entry_price TEXT NOT NULL DEFAULT '',
		target_price TEXT NOT NULL DEFAULT '',
		current_price TEXT NOT NULL DEFAULT '',
		profit_loss TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'ACTIVE',
		post_id INTEGER NOT NULL DEFAULT 0,
		start_date TEXT NOT NULL DEFAULT '',
		end_date TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS metrics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		followers INTEGER NOT NULL DEFAULT 0,
		engagement INTEGER NOT NULL DEFAULT 0,
		impressions INTEGER NOT NULL DEFAULT 0,
		ai_efficiency INTEGER NOT NULL DEFAULT 0,
		date TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS content_ideas (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		content TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT '',
		used INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_twitter_accounts_user ON twitter_accounts (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_user ON posts (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_status ON posts (status)`,
	`CREATE INDEX IF NOT EXISTS idx_trading_calls_user ON trading_calls (user_id)`,
}

// Migrate creates the application tables if they do not exist yet.
func Migrate(db dbx.Builder) error {
	for _, stmt := range schema {
		if _, err := db.NewQuery(stmt).Execute(); err != nil {
			return err
		}
	}
	return nil
}
