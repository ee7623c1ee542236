package localmedia

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/videoguard-backend/internal/pkg/ctxutil"
	"github.com/yungbote/videoguard-backend/internal/pkg/logger"
)

// Tools wraps the ffmpeg binary. Calls are synchronous and belong in worker jobs, not request
// handlers.
type Tools interface {
	AssertReady(ctx context.Context) error
	WorkDir(prefix string) (dir string, cleanup func(), err error)
	ExtractAudioFromVideo(ctx context.Context, videoPath string, outPath string, opts AudioExtractOptions) (string, error)
	ExtractKeyframes(ctx context.Context, videoPath string, outDir string, opts KeyframeOptions) ([]string, error)
}

type AudioExtractOptions struct {
	SampleRateHz int
	Channels     int
	// MaxSeconds truncates the track; 0 keeps it whole.
	MaxSeconds float64
}

type KeyframeOptions struct {
	IntervalSeconds float64
	SceneThreshold  float64

	Width       int
	MaxFrames   int
	Format      string // "jpg" or "png"
	JPEGQuality int
}

type tools struct {
	log            *logger.Logger
	ffmpegPath     string
	workRoot       string
	defaultTimeout time.Duration
}

func New(log *logger.Logger, workRoot string) Tools {
	if strings.TrimSpace(workRoot) == "" {
		workRoot = filepath.Join(os.TempDir(), "videoguard-media")
	}
	return &tools{
		log:            log.With("service", "MediaTools"),
		ffmpegPath:     "ffmpeg",
		workRoot:       workRoot,
		defaultTimeout: 10 * time.Minute,
	}
}

func (m *tools) AssertReady(ctx context.Context) error {
	if _, err := exec.LookPath(m.ffmpegPath); err != nil {
		return fmt.Errorf("missing required binary %q in PATH: %w", m.ffmpegPath, err)
	}
	if err := os.MkdirAll(m.workRoot, 0o755); err != nil {
		return fmt.Errorf("create workRoot: %w", err)
	}
	return nil
}

// WorkDir creates a scratch directory under the work root. cleanup removes it.
func (m *tools) WorkDir(prefix string) (string, func(), error) {
	if err := os.MkdirAll(m.workRoot, 0o755); err != nil {
		return "", func() {}, fmt.Errorf("mkdir workRoot: %w", err)
	}
	dir, err := os.MkdirTemp(m.workRoot, prefix+"-*")
	if err != nil {
		return "", func() {}, fmt.Errorf("mkdir work dir: %w", err)
	}
	return dir, func() { _ = os.RemoveAll(dir) }, nil
}

// ExtractAudioFromVideo writes a mono 16-bit PCM wav track.
func (m *tools) ExtractAudioFromVideo(ctx context.Context, videoPath string, outPath string, opts AudioExtractOptions) (string, error) {
	ctx = ctxutil.Default(ctx)
	if err := m.AssertReady(ctx); err != nil {
		return "", err
	}
	if videoPath == "" {
		return "", fmt.Errorf("videoPath required")
	}
	if outPath == "" {
		return "", fmt.Errorf("outPath required")
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("mkdir outPath dir: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.defaultTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, m.ffmpegPath, audioArgs(videoPath, outPath, opts)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("ffmpeg extract audio failed: %w; out=%s", err, tail(out))
	}
	if _, err := os.Stat(outPath); err != nil {
		return "", fmt.Errorf("audio output missing at %s", outPath)
	}
	return outPath, nil
}

func audioArgs(videoPath, outPath string, opts AudioExtractOptions) []string {
	sr := opts.SampleRateHz
	if sr <= 0 {
		sr = 16000
	}
	ch := opts.Channels
	if ch <= 0 {
		ch = 1
	}
	args := []string{"-y", "-i", videoPath, "-vn", "-ac", strconv.Itoa(ch), "-ar", strconv.Itoa(sr)}
	if opts.MaxSeconds > 0 {
		args = append(args, "-t", strconv.FormatFloat(opts.MaxSeconds, 'f', 2, 64))
	}
	return append(args, "-acodec", "pcm_s16le", "-f", "wav", outPath)
}

func (m *tools) ExtractKeyframes(ctx context.Context, videoPath string, outDir string, opts KeyframeOptions) ([]string, error) {
	ctx = ctxutil.Default(ctx)
	if err := m.AssertReady(ctx); err != nil {
		return nil, err
	}
	if videoPath == "" {
		return nil, fmt.Errorf("videoPath required")
	}
	if outDir == "" {
		return nil, fmt.Errorf("outDir required")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir outDir: %w", err)
	}
	args, err := keyframeArgs(videoPath, outDir, opts)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, m.defaultTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, m.ffmpegPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg keyframes failed: %w; out=%s", err, tail(out))
	}

	frames, _ := globSorted(outDir, `^frame_\d+\.(png|jpe?g)$`)
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames produced by ffmpeg; out=%s", tail(out))
	}
	maxFrames := opts.MaxFrames
	if maxFrames <= 0 {
		maxFrames = 300
	}
	if len(frames) > maxFrames {
		frames = frames[:maxFrames]
	}
	m.log.Debug("Keyframes extracted", "video", filepath.Base(videoPath), "frames", len(frames))
	return frames, nil
}

func keyframeArgs(videoPath, outDir string, opts KeyframeOptions) ([]string, error) {
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "jpg"
	}
	if format != "jpg" && format != "jpeg" && format != "png" {
		return nil, fmt.Errorf("unsupported keyframe format: %s", format)
	}

	scale := ""
	if opts.Width > 0 {
		scale = fmt.Sprintf("scale=%d:-1", opts.Width)
	}
	var vf string
	if opts.SceneThreshold > 0 {
		vf = fmt.Sprintf("select='gt(scene\\,%0.3f)'", opts.SceneThreshold)
	} else {
		interval := opts.IntervalSeconds
		if interval <= 0 {
			interval = 2.0
		}
		vf = fmt.Sprintf("fps=%0.6f", 1.0/interval)
	}
	if scale != "" {
		vf = vf + "," + scale
	}

	args := []string{"-y", "-i", videoPath, "-vf", vf}
	if opts.SceneThreshold > 0 {
		args = append(args, "-vsync", "vfr")
	}
	if opts.MaxFrames > 0 {
		args = append(args, "-frames:v", strconv.Itoa(opts.MaxFrames))
	}
	if format == "jpg" || format == "jpeg" {
		q := opts.JPEGQuality
		if q <= 0 {
			q = 3
		}
		args = append(args, "-q:v", strconv.Itoa(q))
	}
	return append(args, filepath.Join(outDir, "frame_%06d."+format)), nil
}

// ---------- helpers ----------

func tail(out []byte) string {
	const max = 2048
	if len(out) > max {
		out = out[len(out)-max:]
	}
	return string(out)
}

func globSorted(dir string, pattern string) ([]string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if re.MatchString(strings.ToLower(e.Name())) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}
