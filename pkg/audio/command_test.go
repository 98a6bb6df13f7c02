package audio_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/strmhost/iris/pkg/audio"
)

func TestNewCommandPlayerRequiresArgv(t *testing.T) {
	t.Parallel()

	if _, err := audio.NewCommandPlayer(nil); err == nil {
		t.Fatal("expected error for empty argv")
	}
}

func TestCommandPlayerFeedsProcess(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "audio.bin")
	p, err := audio.NewCommandPlayer([]string{"sh", "-c", "cat > " + out})
	if err != nil {
		t.Fatal(err)
	}

	if err := p.Play(context.Background(), stream([]byte("abc"), []byte("def"))); err != nil {
		t.Fatalf("Play: %v", err)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "abcdef" {
		t.Errorf("process received %q, want %q", got, "abcdef")
	}
}

func TestCommandPlayerReportsStartFailure(t *testing.T) {
	t.Parallel()

	p, err := audio.NewCommandPlayer([]string{"/nonexistent/player"})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Play(context.Background(), stream([]byte("x"))); err == nil {
		t.Fatal("expected error for missing player binary")
	}
}
