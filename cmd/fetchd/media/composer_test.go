package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/karmafinder/karmafetch/common/config"
	"github.com/karmafinder/karmafetch/common/logger"
)

// fakeDeleter records scheduled deletions
type fakeDeleter struct {
	scheduled []string
}

func (d *fakeDeleter) ScheduleFileDeletion(path, name string) {
	d.scheduled = append(d.scheduled, path)
}

func testComposer(t *testing.T, ffmpegPath string) (*Composer, *fakeDeleter, string) {
	t.Helper()
	deleter := &fakeDeleter{}
	cfg := config.MediaConfig{
		TempDir:          t.TempDir(),
		FFmpegPath:       ffmpegPath,
		UserAgent:        "test-agent",
		TranscodeTimeout: 10 * time.Second,
		FileRetention:    7 * time.Minute,
	}
	return NewComposer(cfg, deleter, logger.New("error", "text")), deleter, cfg.TempDir
}

func pairSource(id string) *Source {
	return &Source{
		VideoID:  id,
		VideoURL: "https://v.redd.it/" + id + "/DASH_480.mp4",
		AudioURL: "https://v.redd.it/" + id + "/DASH_AUDIO_128.mp4",
	}
}

func TestCompose_ExistingOutputShortCircuits(t *testing.T) {
	// A missing binary would fail the run, so a pass proves it never ran
	composer, deleter, dir := testComposer(t, "/nonexistent/ffmpeg")

	outputPath := filepath.Join(dir, "vid1.mp4")
	if err := os.WriteFile(outputPath, []byte("already composed"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := composer.Compose(context.Background(), pairSource("vid1"), outputPath); err != nil {
		t.Fatalf("existing output should short-circuit, got %v", err)
	}
	if len(deleter.scheduled) != 0 {
		t.Fatal("short-circuit must not reschedule deletion")
	}
}

func TestCompose_EmptyOutputDoesNotShortCircuit(t *testing.T) {
	composer, _, dir := testComposer(t, "false")

	outputPath := filepath.Join(dir, "vid2.mp4")
	if err := os.WriteFile(outputPath, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	// A zero-byte leftover from a crashed run must be recomposed
	err := composer.Compose(context.Background(), pairSource("vid2"), outputPath)
	if !errors.Is(err, ErrTranscodeFailed) {
		t.Fatalf("err = %v, want ErrTranscodeFailed", err)
	}
}

func TestCompose_SuccessSchedulesDeletion(t *testing.T) {
	composer, deleter, dir := testComposer(t, "true")

	outputPath := filepath.Join(dir, "vid3.mp4")
	if err := composer.Compose(context.Background(), pairSource("vid3"), outputPath); err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	if len(deleter.scheduled) != 1 || deleter.scheduled[0] != outputPath {
		t.Fatalf("deletion not scheduled for %q: %v", outputPath, deleter.scheduled)
	}
}

// slowTranscoder writes a shell script standing in for a transcoder
// that never finishes. With exec the sleep replaces the shell; without
// it the sleep survives as a child holding the inherited stderr pipe.
func slowTranscoder(t *testing.T, dir string, useExec bool) string {
	t.Helper()

	body := "#!/bin/sh\nsleep 30\n"
	if useExec {
		body = "#!/bin/sh\nexec sleep 30\n"
	}

	path := filepath.Join(dir, "slow-transcoder.sh")
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCompose_WatchdogKillsSlowTranscode(t *testing.T) {
	dir := t.TempDir()
	deleter := &fakeDeleter{}
	cfg := config.MediaConfig{
		TempDir:          dir,
		FFmpegPath:       slowTranscoder(t, dir, true),
		UserAgent:        "test-agent",
		TranscodeTimeout: 200 * time.Millisecond,
		FileRetention:    7 * time.Minute,
	}
	composer := NewComposer(cfg, deleter, logger.New("error", "text"))

	outputPath := filepath.Join(dir, "vid5.mp4")

	start := time.Now()
	err := composer.Compose(context.Background(), pairSource("vid5"), outputPath)
	elapsed := time.Since(start)

	if !errors.Is(err, ErrTranscodeTimeout) {
		t.Fatalf("err = %v, want ErrTranscodeTimeout", err)
	}
	if elapsed > 2*time.Second {
		t.Fatalf("watchdog took %v to fire for a 200ms deadline", elapsed)
	}
	if _, statErr := os.Stat(outputPath); !os.IsNotExist(statErr) {
		t.Fatal("partial output left behind after timeout")
	}
	if len(deleter.scheduled) != 0 {
		t.Fatal("timed-out compose must not schedule deletion")
	}
}

func TestCompose_WatchdogHonoredDespiteInheritedPipe(t *testing.T) {
	// The sleep here outlives the killed shell and keeps the stderr
	// pipe open; WaitDelay bounds how long Run may block on it
	dir := t.TempDir()
	cfg := config.MediaConfig{
		TempDir:          dir,
		FFmpegPath:       slowTranscoder(t, dir, false),
		UserAgent:        "test-agent",
		TranscodeTimeout: 200 * time.Millisecond,
		FileRetention:    7 * time.Minute,
	}
	composer := NewComposer(cfg, &fakeDeleter{}, logger.New("error", "text"))

	start := time.Now()
	err := composer.Compose(context.Background(), pairSource("vid6"), filepath.Join(dir, "vid6.mp4"))
	elapsed := time.Since(start)

	if !errors.Is(err, ErrTranscodeTimeout) {
		t.Fatalf("err = %v, want ErrTranscodeTimeout", err)
	}
	if elapsed > pipeGrace+2*time.Second {
		t.Fatalf("Run blocked %v on an orphaned pipe", elapsed)
	}
}

func TestCompose_FailureRemovesPartialOutput(t *testing.T) {
	composer, deleter, dir := testComposer(t, "false")

	outputPath := filepath.Join(dir, "vid4.mp4")
	err := composer.Compose(context.Background(), pairSource("vid4"), outputPath)
	if !errors.Is(err, ErrTranscodeFailed) {
		t.Fatalf("err = %v, want ErrTranscodeFailed", err)
	}

	if _, statErr := os.Stat(outputPath); !os.IsNotExist(statErr) {
		t.Fatal("partial output left behind after failure")
	}
	if len(deleter.scheduled) != 0 {
		t.Fatal("failed compose must not schedule deletion")
	}
}

func TestBuildArgs_PairMuxesWithShortest(t *testing.T) {
	composer, _, _ := testComposer(t, "true")

	args, err := composer.buildArgs(pairSource("vid"), "/tmp/out.mp4")
	if err != nil {
		t.Fatalf("buildArgs failed: %v", err)
	}

	joined := strings.Join(args, " ")
	for _, want := range []string{"-c:v copy", "-c:a aac", "-shortest", "-referer https://www.reddit.com/"} {
		if !strings.Contains(joined, want) {
			t.Errorf("pair args missing %q: %s", want, joined)
		}
	}
}

func TestBuildArgs_FallbackCopiesCombinedStream(t *testing.T) {
	composer, _, _ := testComposer(t, "true")

	src := &Source{VideoID: "vid", FallbackURL: "https://v.redd.it/vid/HLSPlaylist.m3u8"}
	args, err := composer.buildArgs(src, "/tmp/out.mp4")
	if err != nil {
		t.Fatalf("buildArgs failed: %v", err)
	}

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-c copy") {
		t.Errorf("fallback args should stream-copy: %s", joined)
	}
	if strings.Contains(joined, "-shortest") {
		t.Errorf("single input must not trim to shortest: %s", joined)
	}
}

func TestBuildArgs_SilentVideoDropsAudio(t *testing.T) {
	composer, _, _ := testComposer(t, "true")

	src := &Source{VideoID: "vid", VideoURL: "https://v.redd.it/vid/DASH_360.mp4"}
	args, err := composer.buildArgs(src, "/tmp/out.mp4")
	if err != nil {
		t.Fatalf("buildArgs failed: %v", err)
	}

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-an") {
		t.Errorf("silent args should disable audio: %s", joined)
	}
}

func TestBuildArgs_NoStreamsFails(t *testing.T) {
	composer, _, _ := testComposer(t, "true")

	if _, err := composer.buildArgs(&Source{VideoID: "vid"}, "/tmp/out.mp4"); err == nil {
		t.Fatal("empty source should not build args")
	}
}
