package storage

const schema = `
-- The 'decks' table groups words that are studied together.
CREATE TABLE IF NOT EXISTS decks (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    description TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL
);

-- The 'words' table stores vocabulary content plus AI enrichment fields.
-- 'hash' fingerprints the content; a deck never holds the same word twice.
-- 'source_id' remembers which source imported the word (NULL for manual
-- additions) so reconciliation only deletes what it owns.
CREATE TABLE IF NOT EXISTS words (
    id TEXT PRIMARY KEY,
    deck_id TEXT NOT NULL,
    term TEXT NOT NULL,
    phonetic TEXT NOT NULL DEFAULT '',
    definition TEXT NOT NULL DEFAULT '',
    translation TEXT NOT NULL DEFAULT '',
    example TEXT NOT NULL DEFAULT '',
    mnemonic TEXT NOT NULL DEFAULT '',
    hash TEXT NOT NULL,
    familiar INTEGER NOT NULL DEFAULT 0,
    source_id INTEGER,
    enriched_at DATETIME,
    created_at DATETIME NOT NULL,

    UNIQUE(deck_id, hash),
    FOREIGN KEY(deck_id) REFERENCES decks(id) ON DELETE CASCADE,
    FOREIGN KEY(source_id) REFERENCES sources(id) ON DELETE SET NULL
);

-- The 'cards' table holds the scheduling state, one card per word.
CREATE TABLE IF NOT EXISTS cards (
    id TEXT PRIMARY KEY,
    word_id TEXT NOT NULL UNIQUE,
    deck_id TEXT NOT NULL,
    due DATETIME NOT NULL,
    state INTEGER NOT NULL DEFAULT 0, -- 0: New, 1: Learning, 2: Review, 3: Relearning
    stability REAL NOT NULL DEFAULT 0,
    difficulty REAL NOT NULL DEFAULT 0,
    elapsed_days REAL NOT NULL DEFAULT 0,
    scheduled_days REAL NOT NULL DEFAULT 0,
    reps INTEGER NOT NULL DEFAULT 0,
    lapses INTEGER NOT NULL DEFAULT 0,
    last_review DATETIME,
    created_at DATETIME NOT NULL,

    FOREIGN KEY(word_id) REFERENCES words(id) ON DELETE CASCADE,
    FOREIGN KEY(deck_id) REFERENCES decks(id) ON DELETE CASCADE
);

-- Secondary access paths: "due before" and "by deck".
CREATE INDEX IF NOT EXISTS idx_cards_due ON cards(due);
CREATE INDEX IF NOT EXISTS idx_cards_deck ON cards(deck_id);

-- The 'review_logs' table is append-only history. No foreign key on
-- card_id: logs are an analytic record and outlive deleted cards.
CREATE TABLE IF NOT EXISTS review_logs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    card_id TEXT NOT NULL,
    rating INTEGER NOT NULL,
    state INTEGER NOT NULL,
    due DATETIME NOT NULL,
    stability REAL NOT NULL,
    difficulty REAL NOT NULL,
    elapsed_days REAL NOT NULL,
    review DATETIME NOT NULL,
    new_state INTEGER NOT NULL,
    new_due DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_review_logs_card ON review_logs(card_id);
CREATE INDEX IF NOT EXISTS idx_review_logs_review ON review_logs(review);

-- The 'sources' table tracks where word lists come from, either a local
-- directory or a git repository, and which deck they feed.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL DEFAULT 'local',
    deck_id TEXT NOT NULL,
    last_scanned DATETIME,

    FOREIGN KEY(deck_id) REFERENCES decks(id) ON DELETE CASCADE
);
`
