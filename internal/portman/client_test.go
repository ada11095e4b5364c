package portman

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herratomsiili/portwatch/internal/state"
)

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	t.Parallel()

	u, err := parseBaseURL("", defaultBaseURL)
	require.NoError(t, err)
	assert.Equal(t, "http", u.Scheme)
	assert.Equal(t, "localhost:7071", u.Host)

	u, err = parseBaseURL("portman.example.net/func/?x=1#frag", defaultBaseURL)
	require.NoError(t, err)
	assert.Equal(t, "http://portman.example.net/func", u.String())

	_, err = parseBaseURL("http://", defaultBaseURL)
	assert.Error(t, err)
}

func TestParseFeedURL(t *testing.T) {
	t.Parallel()

	u, err := parseFeedURL("")
	require.NoError(t, err)
	assert.Equal(t, defaultAISURL, u.String())

	_, err = parseFeedURL("/relative/only")
	assert.Error(t, err)
}

func TestCursorFromNextLink(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		link    string
		want    string
		wantErr bool
	}{
		{name: "empty", link: "", want: ""},
		{name: "whitespace", link: "  ", want: ""},
		{name: "absolute", link: "https://portman.example.net/api/voyages?$after=1042&code=k", want: "1042"},
		{name: "relative", link: "/api/arrivals?%24after=abc", want: "abc"},
		{name: "missing after", link: "https://portman.example.net/api/voyages?page=2", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := cursorFromNextLink(tt.link)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, state.ErrProtocolViolation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func newTestClient(t *testing.T, apiURL, aisURL string, opts Options) *Client {
	t.Helper()
	opts.BaseURL = apiURL
	opts.AISURL = aisURL
	c, err := NewClient(opts)
	require.NoError(t, err)
	return c
}

func TestClient_FetchVoyagesPage(t *testing.T) {
	t.Parallel()

	var (
		mu      sync.Mutex
		queries []string
		auth    []string
		agents  []string
	)
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		queries = append(queries, r.URL.Query().Get("$after"))
		auth = append(auth, r.Header.Get("Authorization"))
		agents = append(agents, r.Header.Get("User-Agent"))
		mu.Unlock()

		if r.URL.Path != "/api/voyages" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "fn-key", r.URL.Query().Get("code"))

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("$after") {
		case "":
			_, _ = fmt.Fprintf(w, `{"value":[{"portcallid":1,"vesselname":"Finnmaid","imolloyds":9468918,"ata":"2025-03-20T07:00:00Z"}],"nextLink":"%s/api/voyages?$after=1"}`, server.URL)
		case "1":
			_, _ = fmt.Fprint(w, `{"value":[{"portcallid":2,"vesselname":"Viking Grace"}],"nextLink":null}`)
		}
	}))
	t.Cleanup(server.Close)

	c := newTestClient(t, server.URL, server.URL+"/ais", Options{FunctionKey: "fn-key", AuthToken: "secret", UserAgent: "portwatch-test"})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	items, next, err := c.FetchVoyagesPage(ctx, "")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(1), items[0].PortCallID)
	assert.Equal(t, "Finnmaid", items[0].VesselName)
	assert.Equal(t, StatusInPort, items[0].Status())
	assert.Equal(t, "1", next)

	items, next, err = c.FetchVoyagesPage(ctx, next)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Viking Grace", items[0].VesselName)
	assert.Empty(t, next)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"", "1"}, queries)
	assert.Equal(t, []string{"Bearer secret", "Bearer secret"}, auth)
	assert.Equal(t, "portwatch-test", agents[0])
}

func TestClient_FetchArrivalsPage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/arrivals", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"), "no token configured")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"value": []Arrival{{ID: 7, PortCallID: 1, ATA: "2025-03-20T07:00:00Z", OldATA: "2025-03-20T06:00:00Z"}},
		})
	}))
	t.Cleanup(server.Close)

	c := newTestClient(t, server.URL, server.URL, Options{})
	items, next, err := c.FetchArrivalsPage(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].Updated())
	assert.Equal(t, time.Date(2025, 3, 20, 7, 0, 0, 0, time.UTC), items[0].ParsedATA())
	assert.Empty(t, next)
}

func TestClient_PageErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		body     string
		wantKind error
	}{
		{name: "server error", status: http.StatusBadGateway, body: `{}`, wantKind: state.ErrFetchFailed},
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{}`, wantKind: state.ErrFetchFailed},
		{name: "missing value", status: http.StatusOK, body: `{"nextLink":null}`, wantKind: state.ErrProtocolViolation},
		{name: "not json", status: http.StatusOK, body: `<html>`, wantKind: state.ErrProtocolViolation},
		{name: "bad nextLink", status: http.StatusOK, body: `{"value":[],"nextLink":"https://x/api/voyages"}`, wantKind: state.ErrProtocolViolation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = fmt.Fprint(w, tt.body)
			}))
			t.Cleanup(server.Close)

			c := newTestClient(t, server.URL, server.URL, Options{FunctionKey: "hidden-key"})
			_, _, err := c.FetchVoyagesPage(context.Background(), "")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantKind)
			assert.NotContains(t, err.Error(), "hidden-key")
		})
	}
}

func TestClient_FetchVesselLocations(t *testing.T) {
	t.Parallel()

	gotUser := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser <- r.Header.Get("Digitraffic-User")
		assert.Empty(t, r.Header.Get("Authorization"), "AIS feed must not receive the API token")
		_, _ = fmt.Fprint(w, `{
			"type": "FeatureCollection",
			"dataUpdatedTime": "2025-03-20T07:00:00Z",
			"features": [
				{"mmsi": 230629000, "type": "Feature",
				 "geometry": {"type": "Point", "coordinates": [24.95, 60.16]},
				 "properties": {"mmsi": 230629000, "sog": 12.3, "cog": 181.2, "navStat": 0, "rot": 0,
				                "posAcc": true, "raim": false, "heading": 180, "timestamp": 41,
				                "timestampExternal": 1742454041000}},
				{"type": "Feature",
				 "geometry": {"type": "Point", "coordinates": [22.1, 60.4]},
				 "properties": {"mmsi": 276829000, "sog": 0.1}}
			]}`)
	}))
	t.Cleanup(server.Close)

	c := newTestClient(t, server.URL, server.URL+"/api/ais/v1/locations", Options{AuthToken: "secret"})
	locs, err := c.FetchVesselLocations(context.Background())
	require.NoError(t, err)
	require.Len(t, locs, 2)

	assert.Equal(t, int64(230629000), locs[0].MMSI)
	assert.InDelta(t, 60.16, locs[0].Lat, 1e-9)
	assert.InDelta(t, 24.95, locs[0].Lon, 1e-9)
	assert.InDelta(t, 12.3, locs[0].SOG, 1e-9)
	assert.Equal(t, 180, locs[0].Heading)
	assert.Equal(t, time.UnixMilli(1742454041000), locs[0].ReportedAt())
	assert.Equal(t, int64(276829000), locs[1].MMSI, "mmsi falls back to properties")
	assert.True(t, locs[1].ReportedAt().IsZero())
	assert.Equal(t, defaultUserAgent, <-gotUser)
}

func TestClient_FetchVesselLocationsMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "no features", body: `{"type":"FeatureCollection"}`},
		{name: "no mmsi", body: `{"features":[{"geometry":{"coordinates":[1,2]},"properties":{}}]}`},
		{name: "no coordinates", body: `{"features":[{"mmsi":1,"geometry":{"coordinates":[1]}}]}`},
		{name: "no geometry", body: `{"features":[{"mmsi":1}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = fmt.Fprint(w, tt.body)
			}))
			t.Cleanup(server.Close)

			c := newTestClient(t, server.URL, server.URL, Options{})
			_, err := c.FetchVesselLocations(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, state.ErrProtocolViolation)
		})
	}
}

func TestClient_BasePathIsKept(t *testing.T) {
	t.Parallel()

	gotPath := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath <- r.URL.Path
		_, _ = fmt.Fprint(w, `{"value":[]}`)
	}))
	t.Cleanup(server.Close)

	c := newTestClient(t, server.URL+"/portman/", server.URL, Options{})
	_, _, err := c.FetchVoyagesPage(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "/portman/api/voyages", <-gotPath)
}

func TestClient_RateLimiterHonoursContext(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `{"value":[]}`)
	}))
	t.Cleanup(server.Close)

	c := newTestClient(t, server.URL, server.URL, Options{RequestsPerSecond: 0.001})
	_, _, err := c.FetchVoyagesPage(context.Background(), "")
	require.NoError(t, err, "first request uses the burst")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err = c.FetchVoyagesPage(ctx, "")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "rate limit"))
}

func TestClient_TransportFailureIsFetchFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := server.URL
	server.Close()

	c := newTestClient(t, addr, addr, Options{FunctionKey: "hidden-key", Timeout: time.Second})
	_, _, err := c.FetchArrivalsPage(context.Background(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, state.ErrFetchFailed)
	assert.NotContains(t, err.Error(), "hidden-key")

	info := state.Classify(err, time.Now())
	assert.Equal(t, state.KindFetchFailure, info.Kind)
}
