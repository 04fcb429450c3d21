// Package services defines the [DataGateway] the router and activation pipeline read chart data through, and
// implements it over the tunemeld GraphQL API with [GraphQLClient].
//
// # Transport
//
// Every query is POSTed as {"query", "variables"} to {base}/api/{QueryName}/. The path carries the query name so
// requests can be told apart in server logs. Responses are the usual {"data", "errors"} envelope and are decoded
// with goccy/go-json.
//
// Requests are paced by a client-side [rate.Limiter] and tagged with an X-Request-ID header.
//
// # Errors
//
// Failures are reported as [*GatewayError] with one of five kinds:
//   - [KindConnection] : transport unreachable, retried with exponential backoff up to MaxRetries
//   - [KindTimeout] : request deadline exceeded
//   - [KindHTTP] : non-2xx status
//   - [KindQuery] : the response carried a GraphQL error list
//   - [KindDecode] : the body (or its data object) could not be decoded
//
// Each kind unwraps to a sentinel in the shared package ([shared.ErrConnection], [shared.ErrTimeout],
// [shared.ErrHTTPStatus], [shared.ErrQuery], [shared.ErrDecode]) so callers classify with [errors.Is].
//
// # Play counts
//
// Play counts are enrichment data keyed by ISRC. [PlayCountCache] keeps them in a bounded TTL cache so switching
// back to a genre only requests ISRCs that are not already known.
package services
