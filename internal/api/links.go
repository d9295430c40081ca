package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-permalink/internal/humastar"
)

// links maps operation paths to their RFC 8288 Link header values.
// Enables restish hypermedia navigation via `restish links <url>`.
var links = map[string][]string{
	"/health": {
		`</api/v1/info>; rel="info"`,
		`</api/v1/layers>; rel="layers"`,
		`</api/v1/sessions>; rel="sessions"`,
	},
	"/api/v1/info": {
		`</health>; rel="health"`,
		`</api/v1/layers>; rel="layers"`,
		`</api/v1/storage>; rel="storage"`,
	},
	"/api/v1/layers": {
		`</api/v1/aliases>; rel="aliases"`,
		`</api/v1/sessions>; rel="sessions"`,
	},
	"/api/v1/layers/{id}": {
		`</api/v1/layers>; rel="collection"`,
	},
	"/api/v1/aliases": {
		`</api/v1/layers>; rel="layers"`,
	},
	"/api/v1/resolve": {
		`</api/v1/sessions>; rel="sessions"`,
	},
	"/api/v1/sessions": {
		`</api/v1/layers>; rel="layers"`,
		`</api/v1/resolve>; rel="resolve"`,
	},
	"/api/v1/sessions/{id}": {
		`</api/v1/sessions>; rel="collection"`,
	},
}

// sessionActions are advertised on a session's own resource.
var sessionActions = []humastar.ActionDef{
	{Rel: "events", Pattern: "/api/v1/sessions/%s/events", Method: "GET", Title: "Stream permalink changes"},
	{Rel: "address", Pattern: "/api/v1/sessions/%s/address", Method: "PUT", Title: "Navigate to an address"},
	{Rel: "view", Pattern: "/api/v1/sessions/%s/view", Method: "PUT", Title: "Move the map"},
	{Rel: "delete", Pattern: "/api/v1/sessions/%s", Method: "DELETE", Title: "End the session"},
}

// LinkTransformer returns a Huma Transformer that injects RFC 8288 Link headers.
func LinkTransformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}

		for _, link := range links[op.Path] {
			ctx.AppendHeader("Link", link)
		}

		// Item endpoints get a self link
		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, ctx.URL().Path))
		}

		if op.Path == "/api/v1/sessions/{id}" && op.Method == http.MethodGet {
			for _, a := range humastar.ActionsFor(ctx.Param("id"), sessionActions) {
				ctx.AppendHeader("Link", a.LinkHeader())
			}
		}

		return v, nil
	}
}
