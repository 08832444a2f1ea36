package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/remindly/remindly-server/internal/model"
	"github.com/remindly/remindly-server/internal/store"
)

// Open opens a PostgreSQL connection using the pgx stdlib driver and verifies connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// NewWithDB constructs a native Postgres store backed directly by database/sql.
func NewWithDB(db *sql.DB) store.Store { return &pgStore{db: db} }

type pgStore struct{ db *sql.DB }

func (s *pgStore) Memories() store.Memories         { return &memories{db: s.db} }
func (s *pgStore) OwnerConfigs() store.OwnerConfigs { return &ownerConfigs{db: s.db} }

// HealthPing implements health.HealthPinger for the Postgres-backed store.
func (s *pgStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Bootstrap applies the schema. Statements are idempotent so repeated startups
// are safe.
func Bootstrap(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schemaSQL)
	return err
}

// --- Memories ---

type memories struct{ db *sql.DB }

func (m *memories) Reserve(ctx context.Context, mm *model.Memory) (*model.Memory, error) {
	memID := uuid.New().String()
	var created, updated time.Time
	row := m.db.QueryRowContext(ctx, `
        INSERT INTO memories (owner_id, memory_id, content_hash, blob_type, user_comment, status)
        VALUES ($1,$2,$3,$4,$5,'pending')
        ON CONFLICT (owner_id, content_hash) DO NOTHING
        RETURNING created_at, updated_at
    `, mm.OwnerID, memID, mm.ContentHash, mm.BlobType, mm.UserComment)
	if err := row.Scan(&created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// The unique index already holds this key.
			return nil, model.ErrDuplicateContent
		}
		return nil, err
	}
	out := *mm
	out.MemoryID = memID
	out.Status = model.StatusPending
	out.CreatedAt = created
	out.UpdatedAt = updated
	return &out, nil
}

func (m *memories) Finalize(ctx context.Context, mm *model.Memory) (*model.Memory, error) {
	embJSON, err := json.Marshal(mm.Embedding)
	if err != nil {
		return nil, err
	}
	var created, updated time.Time
	row := m.db.QueryRowContext(ctx, `
        UPDATE memories
        SET extracted_text=$1, user_comment=$2, blob_path=$3, blob_type=$4,
            embedding=$5, status='active', updated_at=now()
        WHERE owner_id=$6 AND memory_id=$7 AND status='pending'
        RETURNING created_at, updated_at
    `, mm.ExtractedText, mm.UserComment, mm.BlobPath, mm.BlobType, embJSON, mm.OwnerID, mm.MemoryID)
	if err := row.Scan(&created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	out := *mm
	out.Status = model.StatusActive
	out.CreatedAt = created
	out.UpdatedAt = updated
	return &out, nil
}

func (m *memories) Release(ctx context.Context, ownerID, memoryID string) error {
	_, err := m.db.ExecContext(ctx, `
        DELETE FROM memories WHERE owner_id=$1 AND memory_id=$2 AND status='pending'
    `, ownerID, memoryID)
	return err
}

func (m *memories) Get(ctx context.Context, ownerID, memoryID string) (*model.Memory, error) {
	row := m.db.QueryRowContext(ctx, `
        SELECT owner_id, memory_id, content_hash, extracted_text, user_comment,
               blob_path, blob_type, embedding, status, created_at, updated_at
        FROM memories WHERE owner_id=$1 AND memory_id=$2
    `, ownerID, memoryID)
	return scanMemory(row)
}

func (m *memories) List(ctx context.Context, ownerID string) ([]*model.Memory, error) {
	rows, err := m.db.QueryContext(ctx, `
        SELECT owner_id, memory_id, content_hash, extracted_text, user_comment,
               blob_path, blob_type, status, created_at, updated_at
        FROM memories WHERE owner_id=$1 AND status='active'
        ORDER BY created_at DESC
    `, ownerID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.Memory
	for rows.Next() {
		var mm model.Memory
		if err := rows.Scan(&mm.OwnerID, &mm.MemoryID, &mm.ContentHash, &mm.ExtractedText,
			&mm.UserComment, &mm.BlobPath, &mm.BlobType, &mm.Status, &mm.CreatedAt, &mm.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &mm)
	}
	return out, rows.Err()
}

func (m *memories) Candidates(ctx context.Context, ownerID string) ([]*model.Memory, error) {
	rows, err := m.db.QueryContext(ctx, `
        SELECT owner_id, memory_id, content_hash, extracted_text, user_comment,
               blob_path, blob_type, embedding, status, created_at, updated_at
        FROM memories WHERE owner_id=$1 AND status='active'
    `, ownerID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.Memory
	for rows.Next() {
		mm, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, mm)
	}
	return out, rows.Err()
}

func (m *memories) UpdateComment(ctx context.Context, ownerID, memoryID, comment string) (*model.Memory, error) {
	res, err := m.db.ExecContext(ctx, `
        UPDATE memories SET user_comment=$1, updated_at=now()
        WHERE owner_id=$2 AND memory_id=$3 AND status='active'
    `, comment, ownerID, memoryID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, model.ErrNotFound
	}
	return m.Get(ctx, ownerID, memoryID)
}

func (m *memories) DeleteExpiredReservations(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := m.db.ExecContext(ctx, `
        DELETE FROM memories WHERE status='pending' AND created_at < $1
    `, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMemory(row rowScanner) (*model.Memory, error) {
	var mm model.Memory
	var emb []byte
	if err := row.Scan(&mm.OwnerID, &mm.MemoryID, &mm.ContentHash, &mm.ExtractedText,
		&mm.UserComment, &mm.BlobPath, &mm.BlobType, &emb, &mm.Status, &mm.CreatedAt, &mm.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	if len(emb) > 0 {
		if err := json.Unmarshal(emb, &mm.Embedding); err != nil {
			return nil, err
		}
	}
	return &mm, nil
}

// --- OwnerConfigs ---

type ownerConfigs struct{ db *sql.DB }

func (o *ownerConfigs) Get(ctx context.Context, ownerID string) (*model.OwnerModelConfig, error) {
	var out model.OwnerModelConfig
	row := o.db.QueryRowContext(ctx, `
        SELECT owner_id, provider, chat_model_id, embed_model_id, credential_ref, updated_at
        FROM owner_model_configs WHERE owner_id=$1
    `, ownerID)
	if err := row.Scan(&out.OwnerID, &out.Provider, &out.ChatModelID, &out.EmbedModelID,
		&out.CredentialRef, &out.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (o *ownerConfigs) Put(ctx context.Context, c *model.OwnerModelConfig) (*model.OwnerModelConfig, error) {
	var updated time.Time
	row := o.db.QueryRowContext(ctx, `
        INSERT INTO owner_model_configs (owner_id, provider, chat_model_id, embed_model_id, credential_ref)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (owner_id) DO UPDATE SET
            provider=EXCLUDED.provider,
            chat_model_id=EXCLUDED.chat_model_id,
            embed_model_id=EXCLUDED.embed_model_id,
            credential_ref=EXCLUDED.credential_ref,
            updated_at=now()
        RETURNING updated_at
    `, c.OwnerID, c.Provider, c.ChatModelID, c.EmbedModelID, c.CredentialRef)
	if err := row.Scan(&updated); err != nil {
		return nil, err
	}
	out := *c
	out.UpdatedAt = updated
	return &out, nil
}
