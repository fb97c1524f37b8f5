// Package replay serves a recorded graph and event log over the backend
// HTTP routes, for developing and demoing the visualization without a real
// execution backend.
//
// A script is a graph JSON file plus a JSON-lines event log, one event per
// line:
//
//	{"event_type":"node_start","node_id":"A"}
//	{"event_type":"input_request","node_id":"B","request_id":"q1","prompt":"Proceed?"}
//	{"event_type":"run_end"}
//
// Each POST /api/run creates a run with a fresh id; streaming its events
// replays the log with the run's id substituted and a fixed delay before
// each event. The replay pauses at every input_request until the request is
// answered through POST /api/input.
package replay
