package sqlite

// Migrations returns the schema statements, one statement per string.
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			balance    TEXT NOT NULL DEFAULT '000000000000000000.00' CHECK (length(balance) = 21),
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_name ON accounts(name)`,

		`CREATE TABLE IF NOT EXISTS credentials (
			username      TEXT PRIMARY KEY,
			password_hash TEXT NOT NULL,
			role          TEXT NOT NULL CHECK (role IN ('Admin', 'User')),
			account_id    TEXT NOT NULL UNIQUE REFERENCES accounts(id),
			created_at    TEXT NOT NULL
		)`,
	}
}
