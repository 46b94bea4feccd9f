package db

import (
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    user_id INTEGER PRIMARY KEY,
    role TEXT NOT NULL DEFAULT '',
    email TEXT NOT NULL DEFAULT '',
    token TEXT NOT NULL DEFAULT '',
    display_name TEXT NOT NULL DEFAULT '',
    avatar_url TEXT NOT NULL DEFAULT '',
    profile_completed TEXT NOT NULL DEFAULT '[]',
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS chat_state (
    user_id INTEGER PRIMARY KEY,
    current_state TEXT NOT NULL DEFAULT '',
    data TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS save_audit (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL,
    flow TEXT NOT NULL,
    step TEXT NOT NULL,
    entity_id TEXT NOT NULL DEFAULT '',
    ok BOOLEAN NOT NULL,
    error TEXT NOT NULL DEFAULT '',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_save_audit_user ON save_audit(user_id, id);

CREATE TABLE IF NOT EXISTS wizard_mounts (
    user_id INTEGER PRIMARY KEY,
    flow TEXT NOT NULL,
    entity_id TEXT NOT NULL DEFAULT '',
    step TEXT NOT NULL DEFAULT '',
    message_id INTEGER NOT NULL DEFAULT 0,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

const defaultSettings = `
INSERT OR IGNORE INTO settings (key, value) VALUES
    ('welcome_message', 'Welcome! Pick a role to get started.'),
    ('login_required_message', 'Please sign in first: /login &lt;email&gt; &lt;password&gt;'),
    ('saved_message', '✅ Saved'),
    ('submitted_message', '🎉 Scholarship submitted for review'),
    ('help_message', 'Send "field: value" lines to fill the current step. Attach files as documents.'),
    ('maintenance_message', '🛠 The bot is under maintenance. Your drafts are safe, please come back soon.'),
    ('bot_state', 'open');
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return err
	}

	_, err = db.Exec(defaultSettings)
	return err
}
