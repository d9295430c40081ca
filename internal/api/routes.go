// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-permalink/internal/permalink"
	"github.com/joeblew999/plat-permalink/internal/service"
)

// Services holds the service dependencies for API handlers.
type Services struct {
	Catalog  *service.CatalogService
	Sessions *service.SessionService
}

// Types

type IDInput struct {
	ID string `path:"id" doc:"Layer ID" example:"trails"`
}

type SessionInput struct {
	ID string `path:"id" doc:"Session ID"`
}

type LayerOutput struct {
	Body service.LayerConfig
}

type LayersOutput struct {
	Body []service.LayerConfig
}

type SessionOutput struct {
	Body service.SessionInfo
}

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type CreatedLayerBody struct {
	ID      string              `json:"id" doc:"Generated layer ID"`
	Layer   service.LayerConfig `json:"layer" doc:"Created layer configuration"`
	Message string              `json:"message" doc:"Result message"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

type ResolveBody struct {
	Href string `json:"href" required:"true" minLength:"1" doc:"Address to read params from" example:"https://example.com/map#zoom=5&lat=10&lon=20"`
	Mode string `json:"mode,omitempty" enum:"query,hash,nested" default:"query" doc:"Addressing mode"`
}

type ResolvedBody struct {
	Params  map[string]string `json:"params" doc:"Decoded params"`
	Keys    []string          `json:"keys" doc:"Param keys in address order"`
	BaseURL string            `json:"baseUrl" doc:"Address without params"`
	Address string            `json:"address" doc:"Address rebuilt from base URL and params"`
}

type CreateSessionBody struct {
	Href          string `json:"href" required:"true" minLength:"1" doc:"Initial address" example:"https://example.com/map#zoom=5&lat=10&lon=20"`
	Mode          string `json:"mode,omitempty" enum:"query,hash,nested" doc:"Addressing mode; server default when empty"`
	LocalStorage  *bool  `json:"localStorage,omitempty" doc:"Read and mirror params through local storage"`
	WriteLocation *bool  `json:"writeLocation,omitempty" doc:"Write every new address back to the location"`
	Width         int    `json:"width,omitempty" minimum:"0" maximum:"8192" doc:"Viewport width in pixels"`
	Height        int    `json:"height,omitempty" minimum:"0" maximum:"8192" doc:"Viewport height in pixels"`
}

type AddressBody struct {
	Href string `json:"href" required:"true" minLength:"1" doc:"New address" example:"https://example.com/map#zoom=7&lat=10&lon=20"`
}

type ViewBody struct {
	Lat  float64 `json:"lat" minimum:"-90" maximum:"90" doc:"Center latitude" example:"10"`
	Lon  float64 `json:"lon" minimum:"-180" maximum:"180" doc:"Center longitude" example:"20"`
	Zoom float64 `json:"zoom" minimum:"0" maximum:"22" doc:"Zoom level" example:"5"`
}

type LayerVisibilityBody struct {
	Visible bool `json:"visible" doc:"Whether the layer is shown"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterRoutes registers every REST route on api.
func RegisterRoutes(api huma.API, svc *Services) {
	huma.AutoRegister(api, NewAPIHandler(svc))
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterLayers registers layer catalog CRUD routes.
func (h *APIHandler) RegisterLayers(api huma.API) {
	huma.Get(api, "/api/v1/layers", h.GetLayers, huma.OperationTags("layers"))
	huma.Post(api, "/api/v1/layers", h.CreateLayer, huma.OperationTags("layers"))
	huma.Get(api, "/api/v1/layers/{id}", h.GetLayer, huma.OperationTags("layers"))
	huma.Put(api, "/api/v1/layers/{id}", h.PutLayer, huma.OperationTags("layers"))
	huma.Delete(api, "/api/v1/layers/{id}", h.DeleteLayer, huma.OperationTags("layers"))
}

// RegisterAliases registers the overlay alias table route.
func (h *APIHandler) RegisterAliases(api huma.API) {
	huma.Get(api, "/api/v1/aliases", h.GetAliases, huma.OperationTags("layers"))
}

// RegisterResolve registers the stateless address resolver.
func (h *APIHandler) RegisterResolve(api huma.API) {
	huma.Post(api, "/api/v1/resolve", h.Resolve, huma.OperationTags("permalink"))
}

// RegisterSessions registers session routes.
func (h *APIHandler) RegisterSessions(api huma.API) {
	huma.Get(api, "/api/v1/sessions", h.GetSessions, huma.OperationTags("sessions"))
	huma.Register(api, huma.Operation{
		OperationID:   "create-session",
		Method:        http.MethodPost,
		Path:          "/api/v1/sessions",
		DefaultStatus: http.StatusCreated,
		Tags:          []string{"sessions"},
	}, h.CreateSession)
	huma.Get(api, "/api/v1/sessions/{id}", h.GetSession, huma.OperationTags("sessions"))
	huma.Delete(api, "/api/v1/sessions/{id}", h.DeleteSession, huma.OperationTags("sessions"))
	huma.Put(api, "/api/v1/sessions/{id}/address", h.PutAddress, huma.OperationTags("sessions"))
	huma.Put(api, "/api/v1/sessions/{id}/view", h.PutView, huma.OperationTags("sessions"))
	huma.Put(api, "/api/v1/sessions/{id}/layers/{layer}", h.PutLayerVisibility, huma.OperationTags("sessions"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: Version}}, nil
}

func (h *APIHandler) GetLayers(ctx context.Context, input *struct{}) (*LayersOutput, error) {
	return &LayersOutput{Body: h.svc.Catalog.List()}, nil
}

func (h *APIHandler) CreateLayer(ctx context.Context, input *struct{ Body service.LayerConfig }) (*struct{ Body CreatedLayerBody }, error) {
	created, err := h.svc.Catalog.Create(input.Body)
	if err != nil {
		return nil, HTTPError(err)
	}
	return &struct{ Body CreatedLayerBody }{Body: CreatedLayerBody{
		ID: created.ID, Layer: created, Message: "Layer created",
	}}, nil
}

func (h *APIHandler) GetLayer(ctx context.Context, input *IDInput) (*LayerOutput, error) {
	layer, err := h.svc.Catalog.Get(input.ID)
	if err != nil {
		return nil, HTTPError(err)
	}
	return &LayerOutput{Body: layer}, nil
}

func (h *APIHandler) PutLayer(ctx context.Context, input *struct {
	IDInput
	Body service.LayerConfig
}) (*LayerOutput, error) {
	updated, err := h.svc.Catalog.Update(input.ID, input.Body)
	if err != nil {
		return nil, HTTPError(err)
	}
	return &LayerOutput{Body: updated}, nil
}

func (h *APIHandler) DeleteLayer(ctx context.Context, input *IDInput) (*struct{ Body MessageBody }, error) {
	if err := h.svc.Catalog.Delete(input.ID); err != nil {
		return nil, HTTPError(err)
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Layer deleted"}}, nil
}

func (h *APIHandler) GetAliases(ctx context.Context, input *struct{}) (*struct{ Body []service.Alias }, error) {
	return &struct{ Body []service.Alias }{Body: h.svc.Catalog.Aliases()}, nil
}

// Resolve reads an address the way a permalink would, without a session.
func (h *APIHandler) Resolve(ctx context.Context, input *struct{ Body ResolveBody }) (*struct{ Body ResolvedBody }, error) {
	mode, err := permalink.ParseMode(input.Body.Mode)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	return &struct{ Body ResolvedBody }{Body: Resolve(input.Body.Href, mode)}, nil
}

// Resolve splits href into params and base URL under mode.
func Resolve(href string, mode permalink.Mode) ResolvedBody {
	r := permalink.Resolver{Mode: mode}
	params, _ := r.CurrentParams(href)
	base := r.BaseURL(href)
	keys := params.Keys()
	if keys == nil {
		keys = []string{}
	}
	return ResolvedBody{
		Params:  params.Map(),
		Keys:    keys,
		BaseURL: base,
		Address: r.BuildAddress(base, params),
	}
}

func (h *APIHandler) GetSessions(ctx context.Context, input *struct{}) (*struct{ Body []service.SessionInfo }, error) {
	return &struct{ Body []service.SessionInfo }{Body: h.svc.Sessions.List()}, nil
}

func (h *APIHandler) CreateSession(ctx context.Context, input *struct{ Body CreateSessionBody }) (*SessionOutput, error) {
	b := input.Body
	info, err := h.svc.Sessions.Create(ctx, service.SessionOptions{
		Href:            b.Href,
		Mode:            b.Mode,
		UseLocalStorage: b.LocalStorage,
		WriteLocation:   b.WriteLocation,
		Width:           b.Width,
		Height:          b.Height,
	})
	if err != nil {
		return nil, HTTPError(err)
	}
	return &SessionOutput{Body: info}, nil
}

func (h *APIHandler) GetSession(ctx context.Context, input *SessionInput) (*SessionOutput, error) {
	info, err := h.svc.Sessions.Get(ctx, input.ID)
	if err != nil {
		return nil, HTTPError(err)
	}
	return &SessionOutput{Body: info}, nil
}

func (h *APIHandler) DeleteSession(ctx context.Context, input *SessionInput) (*struct{ Body MessageBody }, error) {
	if err := h.svc.Sessions.Delete(ctx, input.ID); err != nil {
		return nil, HTTPError(err)
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Session deleted"}}, nil
}

func (h *APIHandler) PutAddress(ctx context.Context, input *struct {
	SessionInput
	Body AddressBody
}) (*SessionOutput, error) {
	info, err := h.svc.Sessions.Navigate(ctx, input.ID, input.Body.Href)
	if err != nil {
		return nil, HTTPError(err)
	}
	return &SessionOutput{Body: info}, nil
}

func (h *APIHandler) PutView(ctx context.Context, input *struct {
	SessionInput
	Body ViewBody
}) (*SessionOutput, error) {
	info, err := h.svc.Sessions.SetView(ctx, input.ID, input.Body.Lat, input.Body.Lon, input.Body.Zoom)
	if err != nil {
		return nil, HTTPError(err)
	}
	return &SessionOutput{Body: info}, nil
}

func (h *APIHandler) PutLayerVisibility(ctx context.Context, input *struct {
	SessionInput
	Layer string `path:"layer" doc:"Catalog layer ID" example:"trails"`
	Body  LayerVisibilityBody
}) (*SessionOutput, error) {
	info, err := h.svc.Sessions.SetLayer(ctx, input.ID, input.Layer, input.Body.Visible)
	if err != nil {
		return nil, HTTPError(err)
	}
	return &SessionOutput{Body: info}, nil
}

// HTTPError maps service errors to HTTP errors.
func HTTPError(err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, service.ErrExists):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, service.ErrInvalid):
		return huma.Error400BadRequest(err.Error())
	}
	return huma.Error500InternalServerError("internal error", err)
}
