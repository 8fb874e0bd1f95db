package sqlite

import "database/sql"

// schema creates the invitation batch and wizard tables.
// invite_items must come after invite_batches for the foreign key.
const schema = `
CREATE TABLE IF NOT EXISTS invite_batches (
    id TEXT PRIMARY KEY,
    society_id INTEGER NOT NULL,
    role_id INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS invite_items (
    batch_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    email TEXT NOT NULL,
    flat_id INTEGER,
    status TEXT NOT NULL,
    error TEXT NOT NULL DEFAULT '',
    attempts INTEGER NOT NULL DEFAULT 0,
    user_id INTEGER NOT NULL DEFAULT 0,
    invitation_id INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (batch_id, position),
    FOREIGN KEY (batch_id) REFERENCES invite_batches(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS wizard_states (
    society_id INTEGER PRIMARY KEY,
    state TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_invite_batches_society ON invite_batches(society_id);
CREATE INDEX IF NOT EXISTS idx_invite_items_batch ON invite_items(batch_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
