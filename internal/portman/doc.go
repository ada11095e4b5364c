// Package portman is the HTTP client for the Portman port-call API and the
// Digitraffic AIS locations feed.
//
// The paginated endpoints (/api/voyages, /api/arrivals) answer with
//
//	{"value": [...], "nextLink": "https://host/api/voyages?$after=123"}
//
// and the client hands back the items plus the $after value of nextLink as
// the next cursor. An absent or empty nextLink ends the collection.
//
// Requests to the Portman API carry the function key as the "code" query
// parameter and, when configured, a bearer token. All requests share one rate
// limiter. Transport failures wrap state.ErrFetchFailed; payloads that do not
// match the expected shape wrap state.ErrProtocolViolation.
package portman
