// Package services talks to the Spotify Web API.
//
// # Gateway
//
// [Gateway] is the single HTTP entry point. It attaches the bearer token from a [TokenSource],
// paces requests with a [rate.Limiter], and maps every non-2xx response to a [RemoteError].
// It never retries; a 429 response blocks further calls until its Retry-After has elapsed.
// A 401 response is reported to the OnUnauthorized hook so the session can expire.
//
// # Spotify
//
// [SpotifyService] layers typed endpoints over the gateway and normalizes Spotify payloads
// into [models] types at the boundary, so no provider downstream sees raw JSON shapes.
//
// # Authorization
//
// [Authorizer] wraps [oauth2.Config] for the public-client PKCE flow: no client secret,
// S256 challenge on the authorize URL and the verifier on the token exchange.
//
// # Pagination
//
// [CollectPages] follows "next" links, truncating at the page or item limit and failing on a repeated link.
//
// # Error Handling
//
// All remote failures satisfy errors.Is(err, [shared.ErrAPIRequest]):
//   - [RemoteError] : non-2xx response with Spotify's message; 401 also matches [shared.ErrTokenExpired]
//   - [shared.ErrNotAuthenticated] : no token available, the request was never sent
//   - [shared.ErrRateLimited] : inside a Retry-After window
//   - [shared.ErrPaginationLimit] : a paginated listing repeated a page link
package services
