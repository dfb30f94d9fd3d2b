package sqlite

import "database/sql"

// schema sets up the database. It runs on startup to ensure tables exist.
// time_slots must be created before signups and dinner_groups because of the
// foreign keys.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT 'diner',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS time_slots (
    id TEXT PRIMARY KEY,
    date TEXT NOT NULL,
    time TEXT NOT NULL,
    dinner_type TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'open',
    created_at INTEGER NOT NULL,
    status_changed_at INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS signups (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    time_slot_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending',
    dietary_restriction TEXT,
    preference TEXT,
    signed_up_at INTEGER NOT NULL,
    FOREIGN KEY (time_slot_id) REFERENCES time_slots(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS restaurants (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    address TEXT NOT NULL,
    cuisine TEXT,
    active INTEGER NOT NULL DEFAULT 1,
    created_at INTEGER NOT NULL,
    seq INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS dinner_groups (
    id TEXT PRIMARY KEY,
    time_slot_id TEXT NOT NULL,
    restaurant_name TEXT,
    restaurant_address TEXT,
    reservation_date TEXT NOT NULL,
    reservation_time TEXT NOT NULL,
    group_size INTEGER NOT NULL,
    status TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (time_slot_id) REFERENCES time_slots(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS group_members (
    id TEXT PRIMARY KEY,
    group_id TEXT NOT NULL,
    signup_id TEXT NOT NULL UNIQUE,
    user_id TEXT NOT NULL,
    status TEXT NOT NULL,
    position INTEGER NOT NULL,
    FOREIGN KEY (group_id) REFERENCES dinner_groups(id) ON DELETE CASCADE,
    FOREIGN KEY (signup_id) REFERENCES signups(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_signups_slot_status ON signups(time_slot_id, status);
CREATE INDEX IF NOT EXISTS idx_time_slots_status ON time_slots(status);
CREATE UNIQUE INDEX IF NOT EXISTS idx_signups_live_user ON signups(time_slot_id, user_id) WHERE status != 'cancelled';
CREATE INDEX IF NOT EXISTS idx_dinner_groups_slot ON dinner_groups(time_slot_id);
CREATE INDEX IF NOT EXISTS idx_group_members_group_id ON group_members(group_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
