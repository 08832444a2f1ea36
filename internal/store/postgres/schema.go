package postgres

// schemaSQL declares the record-store tables. The unique index on
// (owner_id, content_hash) is the dedup gate; Reserve relies on it rather
// than any application-level existence check.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS memories (
    owner_id       TEXT NOT NULL,
    memory_id      TEXT NOT NULL,
    content_hash   TEXT NOT NULL,
    extracted_text TEXT NOT NULL DEFAULT '',
    user_comment   TEXT NOT NULL DEFAULT '',
    blob_path      TEXT NOT NULL DEFAULT '',
    blob_type      TEXT NOT NULL DEFAULT '',
    embedding      JSONB,
    status         TEXT NOT NULL DEFAULT 'pending',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (owner_id, memory_id),
    UNIQUE (owner_id, content_hash)
);

CREATE TABLE IF NOT EXISTS owner_model_configs (
    owner_id       TEXT PRIMARY KEY,
    provider       TEXT NOT NULL,
    chat_model_id  TEXT NOT NULL DEFAULT '',
    embed_model_id TEXT NOT NULL DEFAULT '',
    credential_ref TEXT NOT NULL DEFAULT '',
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
`
