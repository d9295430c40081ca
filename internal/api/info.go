package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

// Version is the service version reported by /api/v1/info.
const Version = "0.1.0"

type InfoHandler struct {
	dataDir string
	store   string
	mode    string
}

func NewInfoHandler(dataDir, store, mode string) *InfoHandler {
	return &InfoHandler{dataDir: dataDir, store: store, mode: mode}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	DataDir  string   `json:"data_dir" doc:"Data directory path"`
	Store    string   `json:"store" doc:"Local storage backend" enum:"memory,bolt,duckdb"`
	Mode     string   `json:"mode" doc:"Default addressing mode" enum:"query,hash,nested"`
	Features []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:     "plat-permalink",
		Version:  Version,
		DataDir:  h.dataDir,
		Store:    h.store,
		Mode:     h.mode,
		Features: []string{"query", "hash", "nested", "local-storage", "aliases", "sse"},
	}}, nil
}
