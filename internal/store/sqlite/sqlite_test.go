package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remindly/remindly-server/internal/model"
	"github.com/remindly/remindly-server/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Bootstrap(context.Background(), db))
	return NewWithDB(db)
}

func pendingMemory(owner, hash string) *model.Memory {
	return &model.Memory{
		OwnerID:     owner,
		ContentHash: hash,
		UserComment: "a comment",
		BlobPath:    owner + "/blob.txt",
		BlobType:    "text/plain",
	}
}

func TestReserveFinalizeRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	reserved, err := st.Memories().Reserve(ctx, pendingMemory("owner-1", "hash-1"))
	require.NoError(t, err)
	assert.NotEmpty(t, reserved.MemoryID)
	assert.Equal(t, model.StatusPending, reserved.Status)

	reserved.ExtractedText = "extracted"
	reserved.Embedding = []float32{0.25, -1, 3}
	final, err := st.Memories().Finalize(ctx, reserved)
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, final.Status)
	assert.Equal(t, "extracted", final.ExtractedText)
	assert.Equal(t, []float32{0.25, -1, 3}, final.Embedding)
	assert.Equal(t, "owner-1/blob.txt", final.BlobPath)
}

func TestReserveDuplicate(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.Memories().Reserve(ctx, pendingMemory("owner-1", "hash-1"))
	require.NoError(t, err)

	// Same owner, same hash: rejected while still pending.
	_, err = st.Memories().Reserve(ctx, pendingMemory("owner-1", "hash-1"))
	assert.ErrorIs(t, err, model.ErrDuplicateContent)

	// Different owner, same hash: allowed.
	_, err = st.Memories().Reserve(ctx, pendingMemory("owner-2", "hash-1"))
	assert.NoError(t, err)

	// Same owner, different hash: allowed.
	_, err = st.Memories().Reserve(ctx, pendingMemory("owner-1", "hash-2"))
	assert.NoError(t, err)
}

func TestReserveConcurrentSingleWinner(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = st.Memories().Reserve(ctx, pendingMemory("owner-1", "hash-1"))
		}(i)
	}
	wg.Wait()

	var winners int
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, model.ErrDuplicateContent)
		}
	}
	assert.Equal(t, 1, winners)
}

func TestReleaseAllowsRetry(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	reserved, err := st.Memories().Reserve(ctx, pendingMemory("owner-1", "hash-1"))
	require.NoError(t, err)

	require.NoError(t, st.Memories().Release(ctx, "owner-1", reserved.MemoryID))

	_, err = st.Memories().Reserve(ctx, pendingMemory("owner-1", "hash-1"))
	assert.NoError(t, err)
}

func TestReleaseIgnoresFinalized(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	reserved, err := st.Memories().Reserve(ctx, pendingMemory("owner-1", "hash-1"))
	require.NoError(t, err)
	reserved.Embedding = []float32{1}
	_, err = st.Memories().Finalize(ctx, reserved)
	require.NoError(t, err)

	// Release only removes pending rows; the finalized memory survives.
	require.NoError(t, st.Memories().Release(ctx, "owner-1", reserved.MemoryID))
	got, err := st.Memories().Get(ctx, "owner-1", reserved.MemoryID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, got.Status)
}

func TestListAndCandidatesExcludePending(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	reserved, err := st.Memories().Reserve(ctx, pendingMemory("owner-1", "hash-1"))
	require.NoError(t, err)

	list, err := st.Memories().List(ctx, "owner-1")
	require.NoError(t, err)
	assert.Empty(t, list)

	reserved.Embedding = []float32{1, 2}
	_, err = st.Memories().Finalize(ctx, reserved)
	require.NoError(t, err)

	list, err = st.Memories().List(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].Embedding, "List omits embedding payloads")

	cands, err := st.Memories().Candidates(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, []float32{1, 2}, cands[0].Embedding)

	// Owner scoping.
	cands, err = st.Memories().Candidates(ctx, "owner-2")
	require.NoError(t, err)
	assert.Empty(t, cands)
}

func TestUpdateComment(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	reserved, err := st.Memories().Reserve(ctx, pendingMemory("owner-1", "hash-1"))
	require.NoError(t, err)

	// Pending rows cannot be commented.
	_, err = st.Memories().UpdateComment(ctx, "owner-1", reserved.MemoryID, "new")
	assert.ErrorIs(t, err, model.ErrNotFound)

	reserved.Embedding = []float32{1}
	_, err = st.Memories().Finalize(ctx, reserved)
	require.NoError(t, err)

	got, err := st.Memories().UpdateComment(ctx, "owner-1", reserved.MemoryID, "new comment")
	require.NoError(t, err)
	assert.Equal(t, "new comment", got.UserComment)

	_, err = st.Memories().UpdateComment(ctx, "owner-2", reserved.MemoryID, "theirs")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestDeleteExpiredReservations(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	stale, err := st.Memories().Reserve(ctx, pendingMemory("owner-1", "hash-old"))
	require.NoError(t, err)

	finalized, err := st.Memories().Reserve(ctx, pendingMemory("owner-1", "hash-active"))
	require.NoError(t, err)
	finalized.Embedding = []float32{1}
	_, err = st.Memories().Finalize(ctx, finalized)
	require.NoError(t, err)

	n, err := st.Memories().DeleteExpiredReservations(ctx, time.Now().UTC().Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// The stale reservation is gone, the active memory survives.
	_, err = st.Memories().Get(ctx, "owner-1", stale.MemoryID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = st.Memories().Get(ctx, "owner-1", finalized.MemoryID)
	assert.NoError(t, err)
}

func TestOwnerConfigsRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.OwnerConfigs().Get(ctx, "owner-1")
	assert.ErrorIs(t, err, model.ErrNotFound)

	put, err := st.OwnerConfigs().Put(ctx, &model.OwnerModelConfig{
		OwnerID:     "owner-1",
		Provider:    "gemini",
		ChatModelID: "gemini-2.5-flash",
	})
	require.NoError(t, err)
	assert.False(t, put.UpdatedAt.IsZero())

	got, err := st.OwnerConfigs().Get(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, "gemini", got.Provider)

	// Upsert overwrites.
	_, err = st.OwnerConfigs().Put(ctx, &model.OwnerModelConfig{
		OwnerID:       "owner-1",
		Provider:      "ollama",
		EmbedModelID:  "nomic-embed-text",
		CredentialRef: "",
	})
	require.NoError(t, err)

	got, err = st.OwnerConfigs().Get(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, "ollama", got.Provider)
	assert.Equal(t, "nomic-embed-text", got.EmbedModelID)
}
