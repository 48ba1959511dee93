package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer guards a bytes.Buffer shared with the spinner goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerDrawsMessage(t *testing.T) {
	var out syncBuffer
	s := newSpinner(context.Background(), &out, "Resolving root@1.0.0")
	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.SetMessage("Resolving root@1.0.0 · 3 fetched")
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	got := out.String()
	if !strings.Contains(got, "Resolving root@1.0.0") {
		t.Errorf("output missing message: %q", got)
	}
	if !strings.Contains(got, "3 fetched") {
		t.Errorf("output missing updated message: %q", got)
	}
	if !s.Cancelled() {
		t.Error("Cancelled() = false after Stop")
	}
}

func TestSpinnerStopTwice(t *testing.T) {
	s := newSpinner(context.Background(), &syncBuffer{}, "x")
	s.Start()
	s.Stop()
	s.Stop()
}

func TestSpinnerWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	s := newSpinner(ctx, &syncBuffer{}, "Testing with context...")
	s.Start()
	cancel()

	select {
	case <-s.stopped:
	case <-time.After(time.Second):
		t.Fatal("spinner did not stop after context cancellation")
	}
	if !s.Cancelled() {
		t.Error("Spinner should be cancelled after context cancellation")
	}
}

func TestSpinnerStopWithSuccess(t *testing.T) {
	var out syncBuffer
	s := newSpinner(context.Background(), &out, "working")
	s.Start()
	s.StopWithSuccess("done")

	if !strings.Contains(out.String(), "done") {
		t.Errorf("output = %q, want success line", out.String())
	}
}
