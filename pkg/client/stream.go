package client

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
)

// ErrStreamClosed is returned by [Stream.Next] after [Stream.Close].
var ErrStreamClosed = errors.New("event stream closed")

// Stream reads server-sent events from a response body. Only data fields are
// surfaced; each dispatched event's data lines are joined with "\n".
//
// Next must be called from one goroutine at a time. Close may be called from
// any goroutine and unblocks a pending Next.
type Stream struct {
	body   io.ReadCloser
	r      *bufio.Reader
	once   sync.Once
	closed chan struct{}
}

// NewStream wraps an SSE body.
func NewStream(body io.ReadCloser) *Stream {
	return &Stream{
		body:   body,
		r:      bufio.NewReader(body),
		closed: make(chan struct{}),
	}
}

// Next blocks until the next event's data is available. It returns io.EOF
// when the server ends the stream, ctx.Err() when ctx is done, and
// [ErrStreamClosed] after Close. Cancelling ctx closes the stream.
func (s *Stream) Next(ctx context.Context) ([]byte, error) {
	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()

	var data [][]byte
	for {
		line, err := s.r.ReadBytes('\n')
		if err != nil {
			return nil, s.readErr(ctx, err)
		}
		line = bytes.TrimRight(line, "\r\n")

		switch {
		case len(line) == 0:
			if len(data) > 0 {
				return bytes.Join(data, []byte("\n")), nil
			}
		case line[0] == ':':
		default:
			field, value, _ := bytes.Cut(line, []byte(":"))
			if string(field) == "data" {
				value = bytes.TrimPrefix(value, []byte(" "))
				data = append(data, bytes.Clone(value))
			}
		}
	}
}

func (s *Stream) readErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	select {
	case <-s.closed:
		return ErrStreamClosed
	default:
	}
	if errors.Is(err, io.EOF) {
		return io.EOF
	}
	return err
}

// Close closes the underlying body. It is safe to call more than once.
func (s *Stream) Close() error {
	var err error
	s.once.Do(func() {
		close(s.closed)
		err = s.body.Close()
	})
	return err
}

// Closed reports whether Close has been called.
func (s *Stream) Closed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}
