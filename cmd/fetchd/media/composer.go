package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/karmafinder/karmafetch/common/config"
	"github.com/karmafinder/karmafetch/common/logger"
)

// Transcode failure classes
var (
	// ErrTranscodeTimeout means the external process exceeded its
	// deadline and was killed
	ErrTranscodeTimeout = errors.New("transcode timed out")

	// ErrTranscodeFailed means the external process exited nonzero
	ErrTranscodeFailed = errors.New("transcode failed")
)

const streamReferer = "https://www.reddit.com/"

// After the watchdog kills the process, a descendant inheriting the
// stderr pipe could otherwise hold Run open indefinitely
const pipeGrace = 2 * time.Second

// Deleter schedules deferred removal of a produced artifact
type Deleter interface {
	ScheduleFileDeletion(path, name string)
}

// Composer muxes resolved input streams into one output file via an
// external transcoding process bounded by a watchdog deadline
type Composer struct {
	cfg     config.MediaConfig
	deleter Deleter
	log     *logger.Logger
}

// NewComposer creates a composer
func NewComposer(cfg config.MediaConfig, deleter Deleter, log *logger.Logger) *Composer {
	return &Composer{
		cfg:     cfg,
		deleter: deleter,
		log:     log,
	}
}

// Compose produces outputPath from the resolved source. A pre-existing
// non-empty file at outputPath short-circuits the whole operation: the
// filename is the cache key. On any failure no partial artifact is left
// behind. On success deletion of the artifact is scheduled after the
// configured retention window, independent of the request lifetime.
func (c *Composer) Compose(ctx context.Context, src *Source, outputPath string) error {
	if info, err := os.Stat(outputPath); err == nil && info.Size() > 0 {
		c.log.Debug("output already composed", "path", outputPath)
		return nil
	}

	args, err := c.buildArgs(src, outputPath)
	if err != nil {
		return err
	}

	// Watchdog: the deadline is always released on return
	ctx, cancel := context.WithTimeout(ctx, c.cfg.TranscodeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.cfg.FFmpegPath, args...)
	cmd.WaitDelay = pipeGrace

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	c.log.Info("starting transcode", "video_id", src.VideoID, "output", outputPath)

	runErr := cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		os.Remove(outputPath)
		c.log.Error("transcode killed by watchdog", "video_id", src.VideoID)
		return fmt.Errorf("%w after %s", ErrTranscodeTimeout, c.cfg.TranscodeTimeout)
	}

	if runErr != nil {
		os.Remove(outputPath)
		c.log.Error("transcode process failed",
			"video_id", src.VideoID,
			"error", runErr,
			"stderr", tail(stderr.String(), 512),
		)
		return fmt.Errorf("%w: %v", ErrTranscodeFailed, runErr)
	}

	c.log.Info("transcode complete", "video_id", src.VideoID, "output", outputPath)

	c.deleter.ScheduleFileDeletion(outputPath, filepath.Base(outputPath))

	return nil
}

// buildArgs picks one of three strategies: mux a video/audio pair, copy
// a combined fallback stream, or copy video alone for a silent output.
func (c *Composer) buildArgs(src *Source, outputPath string) ([]string, error) {
	ua := c.cfg.UserAgent

	switch {
	case src.VideoURL != "" && src.AudioURL != "":
		// Copy the video stream, re-encode audio to AAC, trim to the
		// shorter of the two.
		return []string{
			"-y",
			"-user_agent", ua, "-referer", streamReferer, "-i", src.VideoURL,
			"-user_agent", ua, "-referer", streamReferer, "-i", src.AudioURL,
			"-c:v", "copy",
			"-c:a", "aac",
			"-shortest",
			outputPath,
		}, nil

	case src.FallbackURL != "":
		return []string{
			"-y",
			"-user_agent", ua, "-referer", streamReferer, "-i", src.FallbackURL,
			"-c", "copy",
			outputPath,
		}, nil

	case src.VideoURL != "":
		return []string{
			"-y",
			"-user_agent", ua, "-referer", streamReferer, "-i", src.VideoURL,
			"-c:v", "copy",
			"-an",
			outputPath,
		}, nil

	default:
		return nil, fmt.Errorf("source has no input streams")
	}
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
