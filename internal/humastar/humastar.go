// Package humastar serves Datastar server-sent events from Huma operations.
//
// A live handler embeds [Handler], decodes the page's signals with
// [DecodeSignals] and answers with [Handler.Stream]:
//
//	func (h *Handler) Layer(ctx context.Context, in *SignalsInput) (*huma.StreamResponse, error) {
//	    signals, err := humastar.DecodeSignals(in.RawBody)
//	    if err != nil {
//	        return nil, err
//	    }
//	    info, err := h.sessions.SetLayer(ctx, in.ID, signals.String("layer"), signals.Bool("visible"))
//	    ...
//	    return h.Stream(func(sse humastar.SSE) {
//	        sse.Replace(h.Renderer.MustRender("permalink", info), "#permalink")
//	    }), nil
//	}
//
// Link headers describing follow-up requests are built with [ActionsFor].
package humastar

import (
	"encoding/json"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/joeblew999/plat-permalink/internal/templates"
)

// Handler carries the fragment renderer shared by live handlers.
type Handler struct {
	Renderer *templates.Renderer
}

// Stream wraps fn in a streaming response. fn owns the connection until
// it returns.
func (h *Handler) Stream(fn func(sse SSE)) *huma.StreamResponse {
	return &huma.StreamResponse{
		Body: func(ctx huma.Context) { fn(NewSSE(ctx)) },
	}
}

// SSE is a Datastar event writer bound to one request.
type SSE struct {
	*datastar.ServerSentEventGenerator
}

// NewSSE starts an event stream on the request behind ctx.
func NewSSE(ctx huma.Context) SSE {
	r, w := humago.Unwrap(ctx)
	return SSE{datastar.NewSSE(w, r)}
}

// Replace swaps the element matched by selector for html.
func (s SSE) Replace(html, selector string) {
	s.PatchElements(html, datastar.WithSelector(selector), datastar.WithModeOuter())
}

// Signals merges values into the page's signals.
func (s SSE) Signals(values map[string]any) {
	s.MarshalAndPatchSignals(values)
}

// Signals is the flat JSON object a Datastar page posts. Lookups of a
// missing or mistyped key yield the zero value.
type Signals map[string]any

// ParseSignals decodes a request body.
func ParseSignals(body []byte) (Signals, error) {
	var s Signals
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, err
	}
	return s, nil
}

// DecodeSignals is ParseSignals for handlers: a malformed body becomes a
// 400 response.
func DecodeSignals(body []byte) (Signals, error) {
	s, err := ParseSignals(body)
	if err != nil {
		return nil, huma.Error400BadRequest("malformed signals", err)
	}
	return s, nil
}

func lookup[T any](s Signals, key string) T {
	v, _ := s[key].(T)
	return v
}

func (s Signals) String(key string) string { return lookup[string](s, key) }
func (s Signals) Float(key string) float64 { return lookup[float64](s, key) }
func (s Signals) Bool(key string) bool { return lookup[bool](s, key) }

// Has reports whether key was posted, whatever its value.
func (s Signals) Has(key string) bool {
	_, ok := s[key]
	return ok
}
