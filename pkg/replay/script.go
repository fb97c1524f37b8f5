package replay

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/graphstudio/pkg/errors"
	"github.com/matzehuels/graphstudio/pkg/graph"
	"github.com/matzehuels/graphstudio/pkg/runviz"
)

const maxLine = 1 << 20

// Script is a graph description plus the event log replayed for each run.
type Script struct {
	Graph  []byte
	Events []Entry
}

// Entry is one scripted event. Fields are kept undecoded so unknown fields
// survive the replay; only run_id is rewritten.
type Entry struct {
	Type   runviz.EventType
	Fields map[string]json.RawMessage
}

// withRun encodes the entry for the given run.
func (e Entry) withRun(runID string) ([]byte, error) {
	fields := make(map[string]json.RawMessage, len(e.Fields)+1)
	for k, v := range e.Fields {
		fields[k] = v
	}
	id, err := json.Marshal(runID)
	if err != nil {
		return nil, err
	}
	fields["run_id"] = id
	return json.Marshal(fields)
}

// field returns a string field, or "".
func (e Entry) field(name string) string {
	var s string
	if raw, ok := e.Fields[name]; ok {
		_ = json.Unmarshal(raw, &s)
	}
	return s
}

// LoadScript reads a graph JSON file and a JSON-lines event log.
func LoadScript(graphPath, eventsPath string, logger *log.Logger) (*Script, error) {
	data, err := os.ReadFile(graphPath)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "read graph %s", graphPath)
	}
	f, err := os.Open(eventsPath)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "read events %s", eventsPath)
	}
	defer f.Close()
	return NewScript(data, f, logger)
}

// NewScript validates a graph body and parses an event log from r. Blank
// lines and lines starting with '#' are skipped. Malformed events are an
// error; events of unknown type are kept and logged.
func NewScript(graphJSON []byte, r io.Reader, logger *log.Logger) (*Script, error) {
	if logger == nil {
		logger = log.Default()
	}
	spec, err := graph.DecodeBytes(graphJSON)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidGraph, err, "invalid graph")
	}
	if spec.Empty() {
		logger.Warn("replay graph has no nodes")
	}

	s := &Script{Graph: bytes.Clone(graphJSON)}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLine)
	for line := 1; sc.Scan(); line++ {
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 || text[0] == '#' {
			continue
		}
		entry, err := parseEntry(text)
		if errors.Is(err, runviz.ErrUnknownEventType) {
			logger.Warn("unknown event type in script", "line", line, "type", entry.Type)
		} else if err != nil {
			return nil, errs.Wrap(errs.ErrCodeMalformedEvent, err, "events line %d", line)
		}
		s.Events = append(s.Events, entry)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	return s, nil
}

func parseEntry(line []byte) (Entry, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil {
		return Entry{}, fmt.Errorf("%w: %v", runviz.ErrMalformedEvent, err)
	}
	if fields == nil {
		return Entry{}, fmt.Errorf("%w: not an object", runviz.ErrMalformedEvent)
	}
	entry := Entry{Fields: fields}
	entry.Type = runviz.EventType(entry.field("event_type"))
	_, err := runviz.Decode(line)
	return entry, err
}
