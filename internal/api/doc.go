// Package api implements the client for the local HTTP API exposed by
// V-ZUG household appliances.
//
// The appliance serves two parallel sub-APIs: the legacy communication
// module under /ai and the newer household module under /hh. Both take
// a single "command" query parameter and answer with JSON (or plain
// text for a few endpoints). The device firmware is quirky: it
// occasionally returns malformed JSON, empty bodies, null instead of
// [], and transient 5xx errors, so every call goes through a retry
// loop with linear backoff, best-effort JSON repair and response shape
// validation (see Client.command).
//
// On top of the per-endpoint accessors the package provides aggregate
// snapshots (AggregateState, AggregateUpdateStatus, AggregateMeta,
// AggregateConfig) that fan out over several endpoints concurrently
// and combine the results into one coherent view. Aggregates are built
// fresh on every call; nothing is cached or mutated in place.
//
// Authentication failures (HTTP 401) are never retried and never
// replaced by fallback values; hosts should detect them with
// IsAuthError and trigger re-authentication.
package api
