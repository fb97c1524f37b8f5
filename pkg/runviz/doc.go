// Package runviz reduces a run's event stream into presentation state.
//
// Events ([Event]) are a closed set of types decoded from stream payloads
// with [Decode]. A [Machine] applies them one at a time to a [RunState]:
//
//   - node_start / node_end move nodes idle -> active -> done; done and error
//     are sticky until the next run.
//   - edge_taken activates matching edges; without a target it activates the
//     edge into the source's dynamic node.
//   - tool_call / tool_result upsert the tool feed by call ID, most recent
//     first. The streaming tool (default "stream_chunk") also feeds a buffer of
//     the latest distinct chunks.
//   - input_request opens the single pending request, replacing any earlier
//     one; input_response or a successful submission clears it.
//   - run_end and error end the run; [Machine.Apply] returns true so the caller
//     closes the stream.
//
// The machine never touches the graph, and it is not safe for concurrent use.
package runviz
