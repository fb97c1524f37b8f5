// Package client is the HTTP client for the execution backend.
//
// The backend exposes four routes:
//
//	GET  /api/graph                 graph description
//	POST /api/run                   {"run_id": "..."}
//	GET  /api/events?run_id=<id>    server-sent events, one JSON event per "data:" line
//	POST /api/input                 {"run_id", "request_id", "response"}
//
// [Client.Graph] retries transient failures with [httputil.Retry]. Starting
// a run and submitting input are not retried. Non-2xx responses surface as
// *errors.StatusError with the backend's plain-text body.
//
// [Client.Events] returns a [Stream]; the caller reads it with [Stream.Next]
// and must close it. Payloads are returned undecoded so the caller decides
// how to handle malformed events.
package client
