package model

import "time"

// MemoryStatus tracks the two-phase ingestion protocol. A memory row is
// created as StatusPending by the dedup reservation and becomes StatusActive
// once the blob, extracted text and embedding have all been persisted.
type MemoryStatus string

const (
	StatusPending MemoryStatus = "pending"
	StatusActive  MemoryStatus = "active"
)

// Memory is a captured, embedded, owner-scoped unit of content.
// Immutable after finalization except for UserComment.
type Memory struct {
	MemoryID      string       `json:"memoryId"`
	OwnerID       string       `json:"ownerId"`
	ContentHash   string       `json:"contentHash"`
	ExtractedText string       `json:"extractedText"`
	UserComment   string       `json:"userComment"`
	BlobPath      string       `json:"blobPath"`
	BlobType      string       `json:"blobType"`
	Embedding     []float32    `json:"embedding,omitempty"`
	Status        MemoryStatus `json:"status"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// ChatTurn is one message in a caller-supplied conversation. The server keeps
// no conversation state between requests.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// OwnerModelConfig selects chat/embedding backends and a credential for one
// owner. Absent fields fall back to the deployment defaults. Written by the
// settings surface, read-only to the ingestion and chat paths.
type OwnerModelConfig struct {
	OwnerID       string    `json:"ownerId"`
	Provider      string    `json:"provider"` // openai | gemini | anthropic | ollama
	ChatModelID   string    `json:"chatModelId,omitempty"`
	EmbedModelID  string    `json:"embedModelId,omitempty"`
	CredentialRef string    `json:"credentialRef,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// RetrievedMemory pairs a finalized memory with its similarity score for one
// query. SourceURL resolves the memory's blob for citation.
type RetrievedMemory struct {
	MemoryID    string    `json:"memoryId"`
	Text        string    `json:"text"`
	UserComment string    `json:"userComment,omitempty"`
	BlobPath    string    `json:"blobPath"`
	SourceURL   string    `json:"sourceRef"`
	Score       float64   `json:"score"`
	CreatedAt   time.Time `json:"createdAt"`
}
