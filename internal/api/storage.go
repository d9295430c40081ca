package api

import (
	"context"
	"sort"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-permalink/internal/store"
)

// StorageHandler exposes the local-storage mirror for inspection.
type StorageHandler struct {
	kv store.KV
}

// NewStorageHandler creates a new storage handler.
func NewStorageHandler(kv store.KV) *StorageHandler {
	return &StorageHandler{kv: kv}
}

// RegisterRoutes registers storage routes with Huma.
func (h *StorageHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/storage", h.ListEntries, huma.OperationTags("storage"))
}

// StorageEntry is one stored param string.
type StorageEntry struct {
	Key   string `json:"key" doc:"Storage key" example:"paramsTemp/1b4e28ba-2fa1-11d2-883f-0016d3cca427"`
	Value string `json:"value" doc:"Stored params without the leading '?'" example:"zoom=5&lat=10&lon=20"`
}

// StorageInput filters entries by key prefix.
type StorageInput struct {
	Prefix string `query:"prefix" default:"paramsTemp" doc:"Key prefix"`
}

// StorageOutput is the response for listing entries.
type StorageOutput struct {
	Body struct {
		Entries []StorageEntry `json:"entries" doc:"Stored entries sorted by key"`
		Count   int            `json:"count" doc:"Number of entries returned"`
	}
}

// ListEntries returns the stored params under a prefix.
func (h *StorageHandler) ListEntries(ctx context.Context, input *StorageInput) (*StorageOutput, error) {
	if h.kv == nil {
		return nil, huma.Error503ServiceUnavailable("Storage not available")
	}
	entries, err := h.kv.List(input.Prefix)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list storage", err)
	}

	out := &StorageOutput{}
	out.Body.Entries = make([]StorageEntry, 0, len(entries))
	for k, v := range entries {
		out.Body.Entries = append(out.Body.Entries, StorageEntry{Key: k, Value: v})
	}
	sort.Slice(out.Body.Entries, func(i, j int) bool {
		return out.Body.Entries[i].Key < out.Body.Entries[j].Key
	})
	out.Body.Count = len(out.Body.Entries)
	return out, nil
}
