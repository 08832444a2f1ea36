package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/remindly/remindly-server/internal/model"
	"github.com/remindly/remindly-server/internal/store"
)

// Open opens (or creates) a SQLite database at the given path and enables WAL
// journal mode for better concurrency under parallel requests.
func Open(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// NewWithDB constructs a SQLite store backed directly by database/sql.
func NewWithDB(db *sql.DB) store.Store { return &sqStore{db: db} }

type sqStore struct{ db *sql.DB }

func (s *sqStore) Memories() store.Memories         { return &memories{db: s.db} }
func (s *sqStore) OwnerConfigs() store.OwnerConfigs { return &ownerConfigs{db: s.db} }

// HealthPing implements health.HealthPinger for the SQLite-backed store.
func (s *sqStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Bootstrap applies the schema; statements are idempotent.
func Bootstrap(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schemaSQL)
	return err
}

// --- Memories ---

type memories struct{ db *sql.DB }

func (m *memories) Reserve(ctx context.Context, mm *model.Memory) (*model.Memory, error) {
	memID := uuid.New().String()
	now := time.Now().UTC()
	res, err := m.db.ExecContext(ctx, `
        INSERT INTO memories (owner_id, memory_id, content_hash, blob_type, user_comment, status, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,'pending',$6,$7)
        ON CONFLICT (owner_id, content_hash) DO NOTHING
    `, mm.OwnerID, memID, mm.ContentHash, mm.BlobType, mm.UserComment, now, now)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, model.ErrDuplicateContent
	}
	out := *mm
	out.MemoryID = memID
	out.Status = model.StatusPending
	out.CreatedAt = now
	out.UpdatedAt = now
	return &out, nil
}

func (m *memories) Finalize(ctx context.Context, mm *model.Memory) (*model.Memory, error) {
	embJSON, err := json.Marshal(mm.Embedding)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	res, err := m.db.ExecContext(ctx, `
        UPDATE memories
        SET extracted_text=$1, user_comment=$2, blob_path=$3, blob_type=$4,
            embedding=$5, status='active', updated_at=$6
        WHERE owner_id=$7 AND memory_id=$8 AND status='pending'
    `, mm.ExtractedText, mm.UserComment, mm.BlobPath, mm.BlobType, string(embJSON), now, mm.OwnerID, mm.MemoryID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, model.ErrNotFound
	}
	return m.Get(ctx, mm.OwnerID, mm.MemoryID)
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
        UPDATE memories SET user_comment=$1, updated_at=$2
        WHERE owner_id=$3 AND memory_id=$4 AND status='active'
    `, comment, time.Now().UTC(), ownerID, memoryID)
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
	var emb sql.NullString
	if err := row.Scan(&mm.OwnerID, &mm.MemoryID, &mm.ContentHash, &mm.ExtractedText,
		&mm.UserComment, &mm.BlobPath, &mm.BlobType, &emb, &mm.Status, &mm.CreatedAt, &mm.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	if emb.Valid && emb.String != "" {
		if err := json.Unmarshal([]byte(emb.String), &mm.Embedding); err != nil {
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
	now := time.Now().UTC()
	_, err := o.db.ExecContext(ctx, `
        INSERT INTO owner_model_configs (owner_id, provider, chat_model_id, embed_model_id, credential_ref, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (owner_id) DO UPDATE SET
            provider=excluded.provider,
            chat_model_id=excluded.chat_model_id,
            embed_model_id=excluded.embed_model_id,
            credential_ref=excluded.credential_ref,
            updated_at=excluded.updated_at
    `, c.OwnerID, c.Provider, c.ChatModelID, c.EmbedModelID, c.CredentialRef, now)
	if err != nil {
		return nil, err
	}
	out := *c
	out.UpdatedAt = now
	return &out, nil
}
