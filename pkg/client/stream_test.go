package client

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func TestStreamNext(t *testing.T) {
	body := strings.Join([]string{
		": comment",
		"",
		"event: message",
		"id: 1",
		"data: {\"a\":1}",
		"",
		"data:first",
		"data: second",
		"",
		"",
		"data: crlf\r",
		"\r",
		"data: trailing without blank line",
	}, "\n")
	s := NewStream(io.NopCloser(strings.NewReader(body)))

	want := []string{`{"a":1}`, "first\nsecond", "crlf"}
	for i, w := range want {
		got, err := s.Next(context.Background())
		if err != nil {
			t.Fatalf("Next() #%d error: %v", i, err)
		}
		if string(got) != w {
			t.Errorf("Next() #%d = %q, want %q", i, got, w)
		}
	}
	if _, err := s.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("Next() at end = %v, want io.EOF", err)
	}
}

func TestStreamCloseUnblocksNext(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	s := NewStream(pr)

	errc := make(chan error, 1)
	go func() {
		_, err := s.Next(context.Background())
		errc <- err
	}()

	time.Sleep(10 * time.Millisecond)
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}

	select {
	case err := <-errc:
		if !errors.Is(err, ErrStreamClosed) {
			t.Errorf("Next() error = %v, want ErrStreamClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Next() did not return after Close()")
	}
	if !s.Closed() {
		t.Error("Closed() = false after Close()")
	}
}

func TestStreamContextCancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	s := NewStream(pr)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.Next(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Next() error = %v, want DeadlineExceeded", err)
	}
	if !s.Closed() {
		t.Error("cancelling Next should close the stream")
	}
}
