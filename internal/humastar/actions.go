package humastar

import (
	"fmt"
	"strings"
)

// Action is a hypermedia action on one resource, emitted as an RFC 8288
// Link header with method and title extension parameters:
//
//	</api/v1/sessions/42/view>; rel="view"; method="PUT"; title="Move the map"
type Action struct {
	Rel    string
	Href   string
	Method string
	Title  string
}

// LinkHeader formats the action as a Link header value.
func (a Action) LinkHeader() string {
	var b strings.Builder
	fmt.Fprintf(&b, `<%s>; rel="%s"`, a.Href, a.Rel)
	if a.Method != "" {
		fmt.Fprintf(&b, `; method="%s"`, a.Method)
	}
	if a.Title != "" {
		fmt.Fprintf(&b, `; title="%s"`, a.Title)
	}
	return b.String()
}

// ActionDef is an action template. Pattern holds a single %s for the
// resource ID.
type ActionDef struct {
	Rel     string
	Pattern string
	Method  string
	Title   string
}

// ActionsFor expands defs for the resource id.
func ActionsFor(id string, defs []ActionDef) []Action {
	actions := make([]Action, len(defs))
	for i, d := range defs {
		actions[i] = Action{
			Rel:    d.Rel,
			Href:   fmt.Sprintf(d.Pattern, id),
			Method: d.Method,
			Title:  d.Title,
		}
	}
	return actions
}
