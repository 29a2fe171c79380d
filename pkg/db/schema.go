package db

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;
PRAGMA temp_store = MEMORY;

-- Runs: one row per dispatch of a document across the worker pool
CREATE TABLE IF NOT EXISTS runs (
    run_id INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    finished_at TIMESTAMP,
    text_hash TEXT NOT NULL,      -- sha256 of the counted text
    endpoints_key TEXT NOT NULL,  -- comma-joined host:port list, in dispatch order
    source TEXT,                  -- text, file path or URL
    normalized BOOLEAN DEFAULT 0,
    requested INTEGER NOT NULL,   -- endpoints given
    chunks INTEGER DEFAULT 0,     -- endpoints actually used
    succeeded INTEGER DEFAULT 0,
    failed INTEGER DEFAULT 0,
    total_words INTEGER DEFAULT 0,
    unique_words INTEGER DEFAULT 0,
    duration_ms INTEGER DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'running'  -- running, ok, partial, failed
);

CREATE INDEX IF NOT EXISTS idx_runs_lookup ON runs(text_hash, endpoints_key, status);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);

-- Run calls: outcome of each chunk/endpoint pair
CREATE TABLE IF NOT EXISTS run_calls (
    call_id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL,
    chunk_index INTEGER NOT NULL,
    endpoint TEXT NOT NULL,
    chunk_words INTEGER NOT NULL,
    status TEXT NOT NULL,         -- ok, failed
    error_kind TEXT,              -- connection, protocol, timeout
    error_message TEXT,
    latency_ms INTEGER DEFAULT 0,
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE,
    UNIQUE(run_id, chunk_index)
);

CREATE INDEX IF NOT EXISTS idx_run_calls_run ON run_calls(run_id);

-- Run words: merged frequency map of a run
CREATE TABLE IF NOT EXISTS run_words (
    run_id INTEGER NOT NULL,
    word TEXT NOT NULL,
    count INTEGER NOT NULL,
    PRIMARY KEY (run_id, word),
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_run_words_count ON run_words(run_id, count DESC);

-- Connect attempts: every dial made on behalf of a run
CREATE TABLE IF NOT EXISTS connect_attempts (
    attempt_id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER,
    endpoint TEXT NOT NULL,
    attempt INTEGER NOT NULL,
    remaining INTEGER NOT NULL,
    success BOOLEAN NOT NULL,
    error_message TEXT,
    attempted_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_attempts_run ON connect_attempts(run_id);
CREATE INDEX IF NOT EXISTS idx_attempts_endpoint ON connect_attempts(endpoint);
`
