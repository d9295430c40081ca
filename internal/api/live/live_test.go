package live

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/joeblew999/plat-permalink/internal/permalink"
	"github.com/joeblew999/plat-permalink/internal/service"
	"github.com/joeblew999/plat-permalink/internal/store"
	"github.com/joeblew999/plat-permalink/internal/templates"
)

const startHref = "https://example.com/map#zoom=5&lat=10&lon=20"

func setup(t *testing.T) (*http.ServeMux, *service.SessionService, service.SessionInfo) {
	t.Helper()
	catalog := service.NewCatalogService(t.TempDir(), nil)
	if err := catalog.Import(service.DefaultCatalog()); err != nil {
		t.Fatal(err)
	}
	sessions := service.NewSessionService(service.SessionConfig{
		Mode:       permalink.ModeHash,
		Registerer: prometheus.NewRegistry(),
	}, catalog, store.NewMemory(), nil)
	info, err := sessions.Create(context.Background(), service.SessionOptions{Href: startHref})
	if err != nil {
		t.Fatal(err)
	}

	renderer, err := templates.New()
	if err != nil {
		t.Fatal(err)
	}
	mux := http.NewServeMux()
	api := humago.New(mux, huma.DefaultConfig("Live Test", "0.0.0"))
	NewHandler(sessions, renderer).RegisterRoutes(api)
	return mux, sessions, info
}

func post(mux http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestViewPushesPermalink(t *testing.T) {
	mux, sessions, info := setup(t)

	rec := post(mux, "/api/v1/sessions/"+info.ID+"/live/view", `{"lat":1,"lon":2,"zoom":4}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	got, err := sessions.Get(context.Background(), info.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Zoom != 4 {
		t.Errorf("zoom = %v, want 4", got.Zoom)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"event: datastar-patch-elements",
		`<a id="permalink"`,
		`<dl id="params"`,
		"event: datastar-patch-signals",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("stream missing %q:\n%s", want, body)
		}
	}
}

func TestViewRejectsBadSignals(t *testing.T) {
	mux, _, info := setup(t)

	if rec := post(mux, "/api/v1/sessions/"+info.ID+"/live/view", `{"lat":1}`); rec.Code != http.StatusBadRequest {
		t.Errorf("missing signals status = %d, want 400", rec.Code)
	}
	if rec := post(mux, "/api/v1/sessions/"+info.ID+"/live/view", `not json`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad json status = %d, want 400", rec.Code)
	}
	if rec := post(mux, "/api/v1/sessions/nope/live/view", `{"lat":1,"lon":2,"zoom":3}`); rec.Code != http.StatusNotFound {
		t.Errorf("unknown session status = %d, want 404", rec.Code)
	}
}

func TestLayerTogglesOverlay(t *testing.T) {
	mux, sessions, info := setup(t)

	rec := post(mux, "/api/v1/sessions/"+info.ID+"/live/layer", `{"layer":"labels","visible":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	got, _ := sessions.Get(context.Background(), info.ID)
	if got.Params["2u"] != "t" {
		t.Errorf("params = %v", got.Params)
	}

	if rec := post(mux, "/api/v1/sessions/"+info.ID+"/live/layer", `{"visible":true}`); rec.Code != http.StatusBadRequest {
		t.Errorf("missing layer status = %d, want 400", rec.Code)
	}
}

func TestEventsStream(t *testing.T) {
	mux, sessions, info := setup(t)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := http.Get(srv.URL + "/api/v1/sessions/nope/events")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown session status = %d, want 404", resp.StatusCode)
	}

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/sessions/"+info.ID+"/events", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	lines := bufio.NewScanner(resp.Body)

	// until reads lines up to one containing s.
	until := func(s string) {
		t.Helper()
		for lines.Scan() {
			if strings.Contains(lines.Text(), s) {
				return
			}
		}
		t.Fatalf("stream ended before %q: %v", s, lines.Err())
	}

	until(`"href":`)
	if _, err := sessions.Navigate(ctx, info.ID, "https://example.com/map#zoom=7&lat=10&lon=20"); err != nil {
		t.Fatal(err)
	}
	until(`zoom=7`)
	if err := sessions.Delete(ctx, info.ID); err != nil {
		t.Fatal(err)
	}
	until(`"deleted":true`)
}

func TestParams(t *testing.T) {
	got := Params(service.SessionInfo{
		Query:  "?zoom=5&lat=10&a%26b=x%20y&36=t",
		Keys:   []string{"zoom", "lat", "a&b", "36"},
		Params: map[string]string{"zoom": "5", "lat": "10", "a&b": "x y", "36": "t"},
	})
	want := []Param{{"zoom", "5"}, {"lat", "10"}, {"a&b", "x y"}, {"36", "t"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Params mismatch (-want +got):\n%s", diff)
	}
	if got := Params(service.SessionInfo{Query: "?"}); len(got) != 0 {
		t.Errorf("empty query gave %v", got)
	}
}
