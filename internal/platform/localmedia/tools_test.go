package localmedia

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yungbote/videoguard-backend/internal/pkg/logger"
)

func TestKeyframeArgs(t *testing.T) {
	args, err := keyframeArgs("/in.mp4", "/out", KeyframeOptions{IntervalSeconds: 4, Width: 640, MaxFrames: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	joined := strings.Join(args, " ")
	for _, want := range []string{"-i /in.mp4", "fps=0.250000,scale=640:-1", "-frames:v 10", "-q:v 3", "/out/frame_%06d.jpg"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing %q in %q", want, joined)
		}
	}
	if _, err := keyframeArgs("/in.mp4", "/out", KeyframeOptions{Format: "gif"}); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}

func TestKeyframeArgsSceneMode(t *testing.T) {
	args, _ := keyframeArgs("/in.mp4", "/out", KeyframeOptions{SceneThreshold: 0.3, Format: "png"})
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "select='gt(scene\\,0.300)'") || !strings.Contains(joined, "-vsync vfr") {
		t.Fatalf("unexpected scene args %q", joined)
	}
	if strings.Contains(joined, "-q:v") {
		t.Fatalf("png frames should not carry jpeg quality")
	}
}

func TestAudioArgs(t *testing.T) {
	joined := strings.Join(audioArgs("/in.mp4", "/out.wav", AudioExtractOptions{MaxSeconds: 90}), " ")
	for _, want := range []string{"-vn", "-ac 1", "-ar 16000", "-t 90.00", "pcm_s16le", "/out.wav"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing %q in %q", want, joined)
		}
	}
}

func TestGlobSortedAndWorkDir(t *testing.T) {
	m := New(logger.Nop(), t.TempDir())
	dir, cleanup, err := m.WorkDir("frames")
	if err != nil {
		t.Fatalf("workdir: %v", err)
	}
	for _, name := range []string{"frame_000002.jpg", "frame_000001.jpg", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	got, err := globSorted(dir, `^frame_\d+\.(png|jpe?g)$`)
	if err != nil || len(got) != 2 || filepath.Base(got[0]) != "frame_000001.jpg" {
		t.Fatalf("unexpected frames %v (%v)", got, err)
	}
	cleanup()
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("cleanup should remove %s", dir)
	}
}
