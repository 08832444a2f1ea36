package chat

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remindly/remindly-server/internal/model"
	"github.com/remindly/remindly-server/internal/provider"
)

type stubEmbedder struct {
	vec []float32
	err error
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.vec, e.err
}

type stubChatModel struct {
	reply      string
	err        error
	gotSystem  string
	gotHistory []model.ChatTurn
}

func (c *stubChatModel) Complete(ctx context.Context, system string, turns []model.ChatTurn) (string, error) {
	c.gotSystem = system
	c.gotHistory = turns
	return c.reply, c.err
}

type stubResolver struct {
	backends *provider.Backends
	err      error
}

func (r *stubResolver) Resolve(ctx context.Context, ownerID string) (*provider.Backends, error) {
	return r.backends, r.err
}

type stubRetriever struct {
	results  []model.RetrievedMemory
	err      error
	gotOwner string
	gotQuery []float32
}

func (r *stubRetriever) Search(ctx context.Context, ownerID string, query []float32, threshold float64, topK int) ([]model.RetrievedMemory, error) {
	r.gotOwner = ownerID
	r.gotQuery = query
	return r.results, r.err
}

type orchestratorFixture struct {
	embedder  *stubEmbedder
	chatModel *stubChatModel
	resolver  *stubResolver
	retriever *stubRetriever
	orch      *Orchestrator
}

func newOrchestratorFixture() *orchestratorFixture {
	f := &orchestratorFixture{
		embedder:  &stubEmbedder{vec: []float32{1, 0, 0}},
		chatModel: &stubChatModel{reply: "here is what I remember"},
		retriever: &stubRetriever{},
	}
	f.resolver = &stubResolver{backends: &provider.Backends{
		Embedder: f.embedder,
		Chat:     f.chatModel,
		Provider: "openai",
	}}
	f.orch = NewOrchestrator(f.resolver, f.retriever, NewAssembler(6000), 0.5, 5, zerolog.Nop())
	return f
}

func userTurns(msgs ...string) []model.ChatTurn {
	var turns []model.ChatTurn
	for _, m := range msgs {
		turns = append(turns, model.ChatTurn{Role: model.RoleUser, Content: m})
	}
	return turns
}

func TestRespondGroundsInMemories(t *testing.T) {
	f := newOrchestratorFixture()
	f.retriever.results = []model.RetrievedMemory{{
		MemoryID:  "m1",
		Text:      "passport expires in June",
		SourceURL: "http://blobs.local/owner-1/m1.pdf",
		Score:     0.9,
		CreatedAt: time.Now(),
	}}

	turns := []model.ChatTurn{
		{Role: model.RoleUser, Content: "hi"},
		{Role: model.RoleAssistant, Content: "hello"},
		{Role: model.RoleUser, Content: "when does my passport expire?"},
	}
	ans, err := f.orch.Respond(context.Background(), "owner-1", turns)
	require.NoError(t, err)
	assert.Equal(t, "here is what I remember", ans.Reply)
	require.Len(t, ans.Memories, 1)

	// The latest user message drives retrieval and the full history goes to
	// the model with the memory block in the system instruction.
	assert.Equal(t, "owner-1", f.retriever.gotOwner)
	assert.Equal(t, []float32{1, 0, 0}, f.retriever.gotQuery)
	assert.Contains(t, f.chatModel.gotSystem, "passport expires in June")
	assert.Equal(t, turns, f.chatModel.gotHistory)
}

func TestRespondEmptyRetrievalStillAnswers(t *testing.T) {
	f := newOrchestratorFixture()

	ans, err := f.orch.Respond(context.Background(), "owner-1", userTurns("anything new?"))
	require.NoError(t, err)
	assert.Empty(t, ans.Memories)
	assert.Contains(t, f.chatModel.gotSystem, "No relevant memories found.")
}

func TestRespondEmbedFailureAborts(t *testing.T) {
	f := newOrchestratorFixture()
	f.embedder.err = fmt.Errorf("%w: embed down", model.ErrProviderUnavailable)

	_, err := f.orch.Respond(context.Background(), "owner-1", userTurns("hello"))
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrProviderUnavailable)
	assert.Empty(t, f.chatModel.gotSystem, "chat model must not be called without grounding")
}

func TestRespondRetrievalFailureAborts(t *testing.T) {
	f := newOrchestratorFixture()
	f.retriever.err = fmt.Errorf("%w: store down", model.ErrRetrieval)

	_, err := f.orch.Respond(context.Background(), "owner-1", userTurns("hello"))
	assert.ErrorIs(t, err, model.ErrRetrieval)
	assert.Empty(t, f.chatModel.gotSystem)
}

func TestRespondChatModelFailure(t *testing.T) {
	f := newOrchestratorFixture()
	f.chatModel.err = fmt.Errorf("%w: upstream 500", model.ErrModelProvider)

	_, err := f.orch.Respond(context.Background(), "owner-1", userTurns("hello"))
	assert.ErrorIs(t, err, model.ErrModelProvider)
}

func TestRespondResolverFailure(t *testing.T) {
	f := newOrchestratorFixture()
	f.resolver.err = fmt.Errorf("%w: no credential", model.ErrConfiguration)
	f.resolver.backends = nil

	_, err := f.orch.Respond(context.Background(), "owner-1", userTurns("hello"))
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

func TestRespondNoUserMessage(t *testing.T) {
	f := newOrchestratorFixture()

	_, err := f.orch.Respond(context.Background(), "owner-1", nil)
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = f.orch.Respond(context.Background(), "owner-1", []model.ChatTurn{
		{Role: model.RoleAssistant, Content: "hello"},
	})
	assert.ErrorIs(t, err, model.ErrValidation)
}
