package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS tasks (
    id                   TEXT PRIMARY KEY,
    user_id              TEXT NOT NULL,
    title                TEXT NOT NULL,
    completed            INTEGER NOT NULL DEFAULT 0,
    created_at           TEXT NOT NULL,
    due_date             TEXT,
    pending              INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS meals (
    id                   TEXT PRIMARY KEY,
    user_id              TEXT NOT NULL,
    name                 TEXT NOT NULL,
    calories             INTEGER NOT NULL,
    created_at           TEXT NOT NULL,
    pending              INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS water_logs (
    id                   TEXT PRIMARY KEY,
    user_id              TEXT NOT NULL,
    amount               INTEGER NOT NULL,
    created_at           TEXT NOT NULL,
    pending              INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS user_preferences (
    user_id              TEXT PRIMARY KEY,
    id                   TEXT NOT NULL,
    theme                TEXT,
    notifications        INTEGER NOT NULL DEFAULT 1,
    daily_water_goal     INTEGER NOT NULL,
    daily_calorie_goal   INTEGER NOT NULL,
    created_at           TEXT,
    updated_at           TEXT
);

CREATE TABLE IF NOT EXISTS analytics_events (
    id                   TEXT PRIMARY KEY,
    user_id              TEXT NOT NULL,
    event_type           TEXT NOT NULL,
    timestamp            TEXT NOT NULL,
    properties           TEXT,
    pending              INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS sync_state (
    user_id              TEXT PRIMARY KEY,
    last_sync            TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_user ON tasks(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_meals_user ON meals(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_water_user ON water_logs(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_events_user ON analytics_events(user_id, timestamp);
`
