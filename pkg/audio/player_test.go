package audio_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/strmhost/iris/pkg/audio"
)

func stream(chunks ...[]byte) <-chan []byte {
	ch := make(chan []byte, len(chunks))
	for _, c := range chunks {
		ch <- c
	}
	close(ch)
	return ch
}

func TestWriterPlayerWritesAllChunks(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := audio.NewWriterPlayer(&buf)

	err := p.Play(context.Background(), stream([]byte("ab"), []byte("cd")))
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if got := buf.String(); got != "abcd" {
		t.Errorf("wrote %q, want %q", got, "abcd")
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("device gone") }

func TestWriterPlayerDrainsOnWriteFailure(t *testing.T) {
	t.Parallel()

	p := audio.NewWriterPlayer(failWriter{})
	ch := stream([]byte("a"), []byte("b"), []byte("c"))

	if err := p.Play(context.Background(), ch); err == nil {
		t.Fatal("Play should fail on write error")
	}
	// The stream must be fully drained so a producer would not block.
	if _, ok := <-ch; ok {
		t.Error("stream not drained after failure")
	}
}

func TestCollect(t *testing.T) {
	t.Parallel()

	got, err := audio.Collect(context.Background(), stream([]byte{1}, []byte{2, 3}))
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("Collect = %v", got)
	}
}

func TestDrainHonorsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ch := make(chan []byte) // never closed

	if err := audio.Drain(ctx, ch); !errors.Is(err, context.Canceled) {
		t.Errorf("Drain = %v, want context.Canceled", err)
	}
}
