package api

import (
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/remindly/remindly-server/internal/api/recovery"
)

// Deps are the wired handlers the router exposes.
type Deps struct {
	Memories *MemoryHandler
	Chat     *ChatHandler
	Configs  *ConfigHandler
	Health   *HealthHandler
	Log      zerolog.Logger
}

// NewRouter creates the HTTP router with all API routes.
func NewRouter(d Deps) *mux.Router {
	router := mux.NewRouter()

	// Global middlewares
	router.Use(recovery.Middleware(d.Log))

	// Health endpoint
	router.HandleFunc("/api/health", d.Health.CheckHealth).Methods("GET")

	// Memory capture and browsing
	router.HandleFunc("/api/memories", d.Memories.CreateMemory).Methods("POST")
	router.HandleFunc("/api/owners/{ownerId}/memories", d.Memories.ListMemories).Methods("GET")
	router.HandleFunc("/api/owners/{ownerId}/memories/{memoryId:[0-9a-fA-F-]{36}}", d.Memories.GetMemory).Methods("GET")
	router.HandleFunc("/api/owners/{ownerId}/memories/{memoryId:[0-9a-fA-F-]{36}}/comment", d.Memories.UpdateComment).Methods("PATCH")

	// Retrieval and conversation
	router.HandleFunc("/api/search", d.Chat.HandleSearch).Methods("POST")
	router.HandleFunc("/api/chat", d.Chat.HandleChat).Methods("POST")

	// Per-owner model selection
	router.HandleFunc("/api/owners/{ownerId}/model-config", d.Configs.GetModelConfig).Methods("GET")
	router.HandleFunc("/api/owners/{ownerId}/model-config", d.Configs.PutModelConfig).Methods("PUT")

	return router
}
