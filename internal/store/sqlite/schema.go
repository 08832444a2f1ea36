package sqlite

// schemaSQL mirrors the Postgres schema; the unique index on
// (owner_id, content_hash) backs the atomic dedup reservation.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS memories (
    owner_id       TEXT NOT NULL,
    memory_id      TEXT NOT NULL,
    content_hash   TEXT NOT NULL,
    extracted_text TEXT NOT NULL DEFAULT '',
    user_comment   TEXT NOT NULL DEFAULT '',
    blob_path      TEXT NOT NULL DEFAULT '',
    blob_type      TEXT NOT NULL DEFAULT '',
    embedding      TEXT,
    status         TEXT NOT NULL DEFAULT 'pending',
    created_at     TIMESTAMP NOT NULL,
    updated_at     TIMESTAMP NOT NULL,
    PRIMARY KEY (owner_id, memory_id),
    UNIQUE (owner_id, content_hash)
);

CREATE TABLE IF NOT EXISTS owner_model_configs (
    owner_id       TEXT PRIMARY KEY,
    provider       TEXT NOT NULL,
    chat_model_id  TEXT NOT NULL DEFAULT '',
    embed_model_id TEXT NOT NULL DEFAULT '',
    credential_ref TEXT NOT NULL DEFAULT '',
    updated_at     TIMESTAMP NOT NULL
);
`
