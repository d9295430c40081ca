// Package live streams session permalinks to Datastar pages over SSE.
package live

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-permalink/internal/api"
	"github.com/joeblew999/plat-permalink/internal/humastar"
	"github.com/joeblew999/plat-permalink/internal/service"
	"github.com/joeblew999/plat-permalink/internal/templates"
)

// Handler serves the live permalink control of a session.
type Handler struct {
	humastar.Handler
	sessions *service.SessionService
}

// NewHandler creates a live handler.
func NewHandler(sessions *service.SessionService, renderer *templates.Renderer) *Handler {
	return &Handler{
		Handler:  humastar.Handler{Renderer: renderer},
		sessions: sessions,
	}
}

// SessionInput identifies a session.
type SessionInput struct {
	ID string `path:"id" doc:"Session id"`
}

// SignalsInput carries Datastar signals for a session.
type SignalsInput struct {
	ID      string `path:"id" doc:"Session id"`
	RawBody []byte
}

// Param is one rendered permalink param.
type Param struct {
	Key   string
	Value string
}

func (h *Handler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/sessions/{id}/events", h.Events,
		huma.OperationTags("live"),
	)
	huma.Post(api, "/api/v1/sessions/{id}/live/view", h.View,
		huma.OperationTags("live"),
	)
	huma.Post(api, "/api/v1/sessions/{id}/live/layer", h.Layer,
		huma.OperationTags("live"),
	)
}

// Events pushes the session's permalink now and after every address change.
func (h *Handler) Events(ctx context.Context, input *SessionInput) (*huma.StreamResponse, error) {
	if _, err := h.sessions.Get(ctx, input.ID); err != nil {
		return nil, api.HTTPError(err)
	}
	bus := h.sessions.Bus()
	sub := bus.Subscribe(service.ForSession(input.ID))

	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			defer bus.Unsubscribe(sub)
			sse := humastar.NewSSE(humaCtx)
			streamCtx := humaCtx.Context()

			info, err := h.sessions.Get(streamCtx, input.ID)
			if err != nil {
				sse.Signals(map[string]any{"deleted": true})
				return
			}
			h.push(sse, info)

			for {
				select {
				case <-streamCtx.Done():
					return
				case ev, ok := <-sub.C:
					if !ok {
						return
					}
					switch ev.Action {
					case "address":
						info, err := h.sessions.Get(streamCtx, input.ID)
						if err != nil {
							continue
						}
						h.push(sse, info)
					case "deleted":
						sse.Signals(map[string]any{"deleted": true})
						return
					}
				}
			}
		},
	}, nil
}

// View moves the session's map to the lat, lon and zoom signals.
func (h *Handler) View(ctx context.Context, input *SignalsInput) (*huma.StreamResponse, error) {
	signals, err := humastar.DecodeSignals(input.RawBody)
	if err != nil {
		return nil, err
	}
	for _, key := range []string{"lat", "lon", "zoom"} {
		if !signals.Has(key) {
			return nil, huma.Error400BadRequest("missing signal " + key)
		}
	}
	info, err := h.sessions.SetView(ctx, input.ID,
		signals.Float("lat"), signals.Float("lon"), signals.Float("zoom"))
	if err != nil {
		return nil, api.HTTPError(err)
	}
	return h.Stream(func(sse humastar.SSE) { h.push(sse, info) }), nil
}

// Layer shows or hides the layer named by the layer signal.
func (h *Handler) Layer(ctx context.Context, input *SignalsInput) (*huma.StreamResponse, error) {
	signals, err := humastar.DecodeSignals(input.RawBody)
	if err != nil {
		return nil, err
	}
	layer := signals.String("layer")
	if layer == "" {
		return nil, huma.Error400BadRequest("missing signal layer")
	}
	info, err := h.sessions.SetLayer(ctx, input.ID, layer, signals.Bool("visible"))
	if err != nil {
		return nil, api.HTTPError(err)
	}
	return h.Stream(func(sse humastar.SSE) { h.push(sse, info) }), nil
}

func (h *Handler) push(sse humastar.SSE, info service.SessionInfo) {
	sse.Replace(h.Renderer.MustRender("permalink", info), "#permalink")
	sse.Replace(h.Renderer.MustRender("params", Params(info)), "#params")
	sse.Signals(map[string]any{
		"href": info.Href,
		"zoom": info.Zoom,
		"lat":  info.Lat,
		"lon":  info.Lon,
	})
}

// Params lists a session's params in address order.
func Params(info service.SessionInfo) []Param {
	out := make([]Param, 0, len(info.Keys))
	for _, key := range info.Keys {
		if v, ok := info.Params[key]; ok {
			out = append(out, Param{Key: key, Value: v})
		}
	}
	return out
}
