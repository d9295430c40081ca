// Package service contains the business logic of the permalink server:
// the layer catalog, live sessions and the change bus.
package service

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a layer or session does not exist.
	ErrNotFound = errors.New("not found")
	// ErrExists is returned when creating a layer whose id is taken.
	ErrExists = errors.New("already exists")
	// ErrInvalid is returned for requests the session cannot apply.
	ErrInvalid = errors.New("invalid request")
)

// LayerConfig is a catalog entry. Huma reads the tags for OpenAPI and
// validation.
type LayerConfig struct {
	ID             string       `json:"id,omitempty" yaml:"id,omitempty" toml:"id,omitempty" doc:"Unique layer identifier" example:"trails"`
	Name           string       `json:"name" yaml:"name" toml:"name" required:"true" minLength:"1" maxLength:"100" doc:"Display name" example:"Hiking trails"`
	BaseLayer      bool         `json:"baseLayer" yaml:"baseLayer" toml:"baseLayer" doc:"Whether the layer is a mutually exclusive base layer"`
	DefaultVisible bool         `json:"defaultVisible" yaml:"defaultVisible" toml:"defaultVisible" doc:"Whether new sessions show the overlay"`
	Nested         *NestedLayer `json:"nested,omitempty" yaml:"nested,omitempty" toml:"nested,omitempty" doc:"Layer actually put on the map for composite entries"`
}

// NestedLayer is the map layer behind a composite catalog entry.
type NestedLayer struct {
	ID string `json:"id" yaml:"id" toml:"id" required:"true" minLength:"1" doc:"Nested layer identifier" example:"trails_tiles"`
}

// CatalogFile is the on-disk layout of a catalog seed file.
type CatalogFile struct {
	BaseLayers []LayerConfig `json:"baselayers" yaml:"baselayers" toml:"baselayers"`
	Overlays   []LayerConfig `json:"overlays" yaml:"overlays" toml:"overlays"`
}

// Alias pairs an overlay id with its short param key.
type Alias struct {
	ID    string `json:"id" yaml:"id" doc:"Overlay id" example:"trails"`
	Alias string `json:"alias" yaml:"alias" doc:"Param key used in permalinks" example:"36"`
}

// SessionInfo is a point-in-time view of a session.
type SessionInfo struct {
	ID      string            `json:"id" doc:"Session id"`
	Href    string            `json:"href" doc:"Current permalink address"`
	BaseURL string            `json:"baseUrl" doc:"Address without params"`
	Query   string            `json:"query" doc:"Encoded params, including the leading '?'" example:"?zoom=5&lat=10&lon=20"`
	Params  map[string]string `json:"params" doc:"Current params"`
	Keys    []string          `json:"keys" doc:"Param keys in address order"`
	Mode    string            `json:"mode" enum:"query,hash,nested" doc:"Addressing mode"`
	Text    string            `json:"text" doc:"Link text"`
	State   string            `json:"state" enum:"idle,syncing" doc:"Sync state"`
	Zoom    float64           `json:"zoom" doc:"Map zoom"`
	Lat     float64           `json:"lat" doc:"Map center latitude"`
	Lon     float64           `json:"lon" doc:"Map center longitude"`
	Layers  []string          `json:"layers" doc:"Layers on the map, in order"`
	Created time.Time         `json:"created" doc:"Creation time"`
}
