package db

type migration struct {
	name string
	sql  string
}

// Instants are stored as unix nanoseconds so visibility comparisons are exact.
var migrations = []migration{
	{
		name: "create accounts table",
		sql: `
			CREATE TABLE IF NOT EXISTS accounts (
				id TEXT PRIMARY KEY,
				username TEXT UNIQUE NOT NULL COLLATE NOCASE,
				display_name TEXT NOT NULL DEFAULT '',
				password_hash TEXT NOT NULL DEFAULT '',
				role TEXT NOT NULL DEFAULT 'user',
				is_deleted BOOLEAN NOT NULL DEFAULT 0,
				can_login BOOLEAN NOT NULL DEFAULT 1,
				hide_from_suggestions BOOLEAN NOT NULL DEFAULT 0,
				is_sentinel BOOLEAN NOT NULL DEFAULT 0,
				created_at INTEGER NOT NULL,
				updated_at INTEGER NOT NULL,
				CHECK (is_deleted = 0 OR can_login = 0)
			);
			CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_sentinel ON accounts(is_sentinel) WHERE is_sentinel = 1;
		`,
	},
	{
		name: "create groups tables",
		sql: `
			CREATE TABLE IF NOT EXISTS chat_groups (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				created_at INTEGER NOT NULL
			);
			CREATE TABLE IF NOT EXISTS group_members (
				group_id TEXT NOT NULL REFERENCES chat_groups(id) ON DELETE CASCADE,
				user_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE RESTRICT,
				joined_at INTEGER NOT NULL,
				PRIMARY KEY (group_id, user_id)
			);
			CREATE INDEX IF NOT EXISTS idx_group_members_user ON group_members(user_id);
		`,
	},
	{
		name: "create group ledger",
		sql: `
			CREATE TABLE IF NOT EXISTS group_ledger (
				group_id TEXT NOT NULL REFERENCES chat_groups(id) ON DELETE CASCADE,
				user_id TEXT NOT NULL,
				kind TEXT NOT NULL CHECK (kind IN ('hidden', 'purged')),
				at INTEGER NOT NULL,
				PRIMARY KEY (group_id, user_id, kind)
			) WITHOUT ROWID
		`,
	},
	{
		name: "create messages table",
		sql: `
			CREATE TABLE IF NOT EXISTS messages (
				id TEXT PRIMARY KEY,
				group_id TEXT NOT NULL REFERENCES chat_groups(id) ON DELETE CASCADE,
				author_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE RESTRICT,
				content TEXT NOT NULL,
				created_at INTEGER NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_messages_group ON messages(group_id, created_at);
			CREATE INDEX IF NOT EXISTS idx_messages_author ON messages(author_id);
		`,
	},
	{
		name: "create posts and comments tables",
		sql: `
			CREATE TABLE IF NOT EXISTS posts (
				id TEXT PRIMARY KEY,
				author_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE RESTRICT,
				body TEXT NOT NULL,
				created_at INTEGER NOT NULL
			);
			CREATE TABLE IF NOT EXISTS comments (
				id TEXT PRIMARY KEY,
				post_id TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
				author_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE RESTRICT,
				body TEXT NOT NULL,
				created_at INTEGER NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_comments_post ON comments(post_id, created_at);
			CREATE INDEX IF NOT EXISTS idx_comments_author ON comments(author_id);
		`,
	},
	{
		name: "create redaction jobs table",
		sql: `
			CREATE TABLE IF NOT EXISTS redaction_jobs (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE RESTRICT,
				status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'completed', 'failed')),
				attempts INTEGER NOT NULL DEFAULT 0,
				last_error TEXT NOT NULL DEFAULT '',
				requested_at INTEGER NOT NULL,
				updated_at INTEGER NOT NULL
			);
			CREATE UNIQUE INDEX IF NOT EXISTS idx_redaction_jobs_pending ON redaction_jobs(account_id) WHERE status = 'pending';
		`,
	},
	{
		name: "track redaction attempts and post authors",
		sql: `
			ALTER TABLE accounts ADD COLUMN redaction_attempted_at INTEGER NOT NULL DEFAULT 0;
			CREATE INDEX IF NOT EXISTS idx_posts_author ON posts(author_id);
		`,
	},
}
