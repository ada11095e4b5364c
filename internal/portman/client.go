package portman

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/herratomsiili/portwatch/internal/state"
)

// Fetcher is the subset of Client the sync components depend on.
type Fetcher interface {
	FetchVoyagesPage(ctx context.Context, cursor string) ([]PortCall, string, error)
	FetchArrivalsPage(ctx context.Context, cursor string) ([]Arrival, string, error)
	FetchVesselLocations(ctx context.Context) ([]VesselLocation, error)
}

var _ Fetcher = (*Client)(nil)

// ErrMalformedResponse marks a payload that cannot be interpreted.
var ErrMalformedResponse = fmt.Errorf("malformed response: %w", state.ErrProtocolViolation)

const (
	defaultBaseURL     = "http://localhost:7071"
	defaultAISURL      = "https://meri.digitraffic.fi/api/ais/v1/locations"
	defaultUserAgent   = "portwatch/0.1"
	defaultTimeout     = 15 * time.Second
	cursorParam        = "$after"
	functionKeyParam   = "code"
	digitrafficUserHdr = "Digitraffic-User"
)

// Options configures a Client.
type Options struct {
	BaseURL           string
	AISURL            string
	FunctionKey       string
	AuthToken         string
	Timeout           time.Duration
	RequestsPerSecond float64
	UserAgent         string
	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

// Client talks to the Portman API and the AIS locations feed.
type Client struct {
	baseURL     *url.URL
	aisURL      *url.URL
	api         *http.Client
	feed        *http.Client
	functionKey string
	userAgent   string
	limiter     *rate.Limiter
}

// NewClient builds a Client from opts, filling in defaults for empty fields.
func NewClient(opts Options) (*Client, error) {
	base, err := parseBaseURL(opts.BaseURL, defaultBaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	ais, err := parseFeedURL(opts.AISURL)
	if err != nil {
		return nil, fmt.Errorf("parse ais url: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	apiTransport := transport
	if token := strings.TrimSpace(opts.AuthToken); token != "" {
		apiTransport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   transport,
		}
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &Client{
		baseURL:     base,
		aisURL:      ais,
		api:         &http.Client{Timeout: timeout, Transport: apiTransport},
		feed:        &http.Client{Timeout: timeout, Transport: transport},
		functionKey: strings.TrimSpace(opts.FunctionKey),
		userAgent:   userAgent,
		limiter:     rate.NewLimiter(limit, 1),
	}, nil
}

// FetchVoyagesPage returns one page of port calls and the cursor of the next
// page, which is empty on the last page.
func (c *Client) FetchVoyagesPage(ctx context.Context, cursor string) ([]PortCall, string, error) {
	return fetchPage[PortCall](ctx, c, "voyages", cursor)
}

// FetchArrivalsPage returns one page of arrival updates and the next cursor.
func (c *Client) FetchArrivalsPage(ctx context.Context, cursor string) ([]Arrival, string, error) {
	return fetchPage[Arrival](ctx, c, "arrivals", cursor)
}

// FetchVesselLocations returns the full current AIS snapshot.
func (c *Client) FetchVesselLocations(ctx context.Context) ([]VesselLocation, error) {
	if c == nil {
		return nil, errors.New("client is nil")
	}
	var payload featureCollection
	if err := c.get(ctx, c.feed, c.aisURL, &payload); err != nil {
		return nil, err
	}
	if payload.Features == nil {
		return nil, fmt.Errorf("%w: ais response has no features", ErrMalformedResponse)
	}

	out := make([]VesselLocation, 0, len(*payload.Features))
	for i, f := range *payload.Features {
		loc, err := f.location()
		if err != nil {
			return nil, fmt.Errorf("%w: feature %d: %w", ErrMalformedResponse, i, err)
		}
		out = append(out, loc)
	}
	return out, nil
}

func (f feature) location() (VesselLocation, error) {
	mmsi := f.MMSI
	if mmsi == 0 {
		mmsi = f.Properties.MMSI
	}
	if mmsi == 0 {
		return VesselLocation{}, errors.New("missing mmsi")
	}
	if f.Geometry == nil || len(f.Geometry.Coordinates) < 2 {
		return VesselLocation{}, fmt.Errorf("mmsi %d: missing coordinates", mmsi)
	}
	p := f.Properties
	return VesselLocation{
		MMSI:      mmsi,
		Lon:       f.Geometry.Coordinates[0],
		Lat:       f.Geometry.Coordinates[1],
		SOG:       p.SOG,
		COG:       p.COG,
		Heading:   p.Heading,
		NavStat:   p.NavStat,
		ROT:       p.ROT,
		PosAcc:    p.PosAcc,
		RAIM:      p.RAIM,
		Timestamp: p.TimestampExternal,
	}, nil
}

func fetchPage[T any](ctx context.Context, c *Client, resource, cursor string) ([]T, string, error) {
	if c == nil {
		return nil, "", errors.New("client is nil")
	}
	values := url.Values{}
	if cursor != "" {
		values.Set(cursorParam, cursor)
	}
	if c.functionKey != "" {
		values.Set(functionKeyParam, c.functionKey)
	}
	target := c.baseURL.JoinPath("api", resource)
	target.RawQuery = values.Encode()

	var payload listResponse[T]
	if err := c.get(ctx, c.api, target, &payload); err != nil {
		return nil, "", err
	}
	if payload.Value == nil {
		return nil, "", fmt.Errorf("%w: %s response has no value array", ErrMalformedResponse, resource)
	}
	next, err := cursorFromNextLink(payload.NextLink)
	if err != nil {
		return nil, "", err
	}
	return *payload.Value, next, nil
}

// cursorFromNextLink extracts the $after parameter of a nextLink.
func cursorFromNextLink(nextLink string) (string, error) {
	nextLink = strings.TrimSpace(nextLink)
	if nextLink == "" {
		return "", nil
	}
	u, err := url.Parse(nextLink)
	if err != nil {
		return "", fmt.Errorf("%w: parse nextLink %q: %w", ErrMalformedResponse, nextLink, err)
	}
	after := u.Query().Get(cursorParam)
	if after == "" {
		return "", fmt.Errorf("%w: nextLink %q has no %s parameter", ErrMalformedResponse, nextLink, cursorParam)
	}
	return after, nil
}

func (c *Client) get(ctx context.Context, hc *http.Client, target *url.URL, dest any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if hc == c.feed {
		req.Header.Set(digitrafficUserHdr, c.userAgent)
	}

	resp, err := hc.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = redact(target)
		}
		return fmt.Errorf("%w: %w", state.ErrFetchFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: %s returned status %d", state.ErrFetchFailed, redact(target), resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("%w: decode response: %w", ErrMalformedResponse, err)
	}
	return nil
}

// redact drops the query so function keys never reach error messages.
func redact(u *url.URL) string {
	dup := *u
	dup.RawQuery = ""
	return dup.String()
}

func parseBaseURL(raw, fallback string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = fallback
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, err
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%q has no host", raw)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

func parseFeedURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultAISURL
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%q is not an absolute url", raw)
	}
	return u, nil
}
