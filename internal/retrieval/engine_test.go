package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remindly/remindly-server/internal/model"
)

type stubMemories struct {
	candidates map[string][]*model.Memory
	err        error
}

func (s *stubMemories) Reserve(ctx context.Context, m *model.Memory) (*model.Memory, error) {
	return nil, errors.New("not implemented")
}

func (s *stubMemories) Finalize(ctx context.Context, m *model.Memory) (*model.Memory, error) {
	return nil, errors.New("not implemented")
}

func (s *stubMemories) Release(ctx context.Context, ownerID, memoryID string) error {
	return errors.New("not implemented")
}

func (s *stubMemories) Get(ctx context.Context, ownerID, memoryID string) (*model.Memory, error) {
	return nil, model.ErrNotFound
}

func (s *stubMemories) List(ctx context.Context, ownerID string) ([]*model.Memory, error) {
	return s.Candidates(ctx, ownerID)
}

func (s *stubMemories) Candidates(ctx context.Context, ownerID string) ([]*model.Memory, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.candidates[ownerID], nil
}

func (s *stubMemories) UpdateComment(ctx context.Context, ownerID, memoryID, comment string) (*model.Memory, error) {
	return nil, model.ErrNotFound
}

func (s *stubMemories) DeleteExpiredReservations(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type stubBlobURLs struct{}

func (stubBlobURLs) Put(ctx context.Context, p string, data []byte, contentType string) error {
	return nil
}
func (stubBlobURLs) Get(ctx context.Context, p string) ([]byte, error) { return nil, nil }
func (stubBlobURLs) URL(p string) string                               { return "http://blobs.local/" + p }

func mem(id, owner string, embedding []float32, createdAt time.Time) *model.Memory {
	return &model.Memory{
		MemoryID:      id,
		OwnerID:       owner,
		ExtractedText: "text for " + id,
		BlobPath:      owner + "/" + id + ".txt",
		Embedding:     embedding,
		Status:        model.StatusActive,
		CreatedAt:     createdAt,
	}
}

func TestSearchRanksByScore(t *testing.T) {
	now := time.Now().UTC()
	memories := &stubMemories{candidates: map[string][]*model.Memory{
		"owner-1": {
			mem("far", "owner-1", []float32{0, 1, 0}, now),
			mem("near", "owner-1", []float32{1, 0, 0}, now),
			mem("mid", "owner-1", []float32{1, 1, 0}, now),
		},
	}}
	e := NewEngine(memories, stubBlobURLs{}, zerolog.Nop())

	results, err := e.Search(context.Background(), "owner-1", []float32{1, 0, 0}, 0.5, 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "near", results[0].MemoryID)
	assert.Equal(t, "mid", results[1].MemoryID)
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.Equal(t, "http://blobs.local/owner-1/near.txt", results[0].SourceURL)
}

func TestSearchThresholdExcludes(t *testing.T) {
	memories := &stubMemories{candidates: map[string][]*model.Memory{
		"owner-1": {mem("orthogonal", "owner-1", []float32{0, 1, 0}, time.Now())},
	}}
	e := NewEngine(memories, stubBlobURLs{}, zerolog.Nop())

	results, err := e.Search(context.Background(), "owner-1", []float32{1, 0, 0}, 0.5, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchTopKLimit(t *testing.T) {
	now := time.Now().UTC()
	var rows []*model.Memory
	for i := 0; i < 10; i++ {
		rows = append(rows, mem("m"+string(rune('a'+i)), "owner-1", []float32{1, 0, 0}, now.Add(time.Duration(i)*time.Minute)))
	}
	memories := &stubMemories{candidates: map[string][]*model.Memory{"owner-1": rows}}
	e := NewEngine(memories, stubBlobURLs{}, zerolog.Nop())

	results, err := e.Search(context.Background(), "owner-1", []float32{1, 0, 0}, 0.5, 3)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestSearchTieBreakNewestFirst(t *testing.T) {
	now := time.Now().UTC()
	memories := &stubMemories{candidates: map[string][]*model.Memory{
		"owner-1": {
			mem("older", "owner-1", []float32{1, 0, 0}, now.Add(-time.Hour)),
			mem("newer", "owner-1", []float32{1, 0, 0}, now),
		},
	}}
	e := NewEngine(memories, stubBlobURLs{}, zerolog.Nop())

	results, err := e.Search(context.Background(), "owner-1", []float32{1, 0, 0}, 0.5, 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "newer", results[0].MemoryID)
	assert.Equal(t, "older", results[1].MemoryID)
}

func TestSearchFullTieBreaksOnMemoryID(t *testing.T) {
	now := time.Now().UTC()
	rows := []*model.Memory{
		mem("m-c", "owner-1", []float32{1, 0, 0}, now),
		mem("m-a", "owner-1", []float32{1, 0, 0}, now),
		mem("m-b", "owner-1", []float32{1, 0, 0}, now),
	}
	e := NewEngine(&stubMemories{candidates: map[string][]*model.Memory{"owner-1": rows}}, stubBlobURLs{}, zerolog.Nop())

	// Identical score and createdAt; the memory ID keeps repeated queries
	// byte-stable.
	for i := 0; i < 3; i++ {
		results, err := e.Search(context.Background(), "owner-1", []float32{1, 0, 0}, 0.5, 5)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, "m-a", results[0].MemoryID)
		assert.Equal(t, "m-b", results[1].MemoryID)
		assert.Equal(t, "m-c", results[2].MemoryID)
	}
}

func TestSearchTenantIsolation(t *testing.T) {
	now := time.Now().UTC()
	memories := &stubMemories{candidates: map[string][]*model.Memory{
		"owner-1": {mem("mine", "owner-1", []float32{1, 0, 0}, now)},
		"owner-2": {mem("theirs", "owner-2", []float32{1, 0, 0}, now)},
	}}
	e := NewEngine(memories, stubBlobURLs{}, zerolog.Nop())

	results, err := e.Search(context.Background(), "owner-1", []float32{1, 0, 0}, 0.5, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "mine", results[0].MemoryID)
}

func TestSearchStoreFailure(t *testing.T) {
	memories := &stubMemories{err: errors.New("connection refused")}
	e := NewEngine(memories, stubBlobURLs{}, zerolog.Nop())

	_, err := e.Search(context.Background(), "owner-1", []float32{1, 0, 0}, 0.5, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrRetrieval)
}

func TestSearchSkipsMismatchedDimension(t *testing.T) {
	now := time.Now().UTC()
	memories := &stubMemories{candidates: map[string][]*model.Memory{
		"owner-1": {
			mem("good", "owner-1", []float32{1, 0, 0}, now),
			mem("legacy", "owner-1", []float32{1, 0}, now),
		},
	}}
	e := NewEngine(memories, stubBlobURLs{}, zerolog.Nop())

	results, err := e.Search(context.Background(), "owner-1", []float32{1, 0, 0}, 0.5, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "good", results[0].MemoryID)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, cosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}
