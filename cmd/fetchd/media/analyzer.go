package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/karmafinder/karmafetch/cmd/fetchd/models"
	"github.com/karmafinder/karmafetch/common/config"
	"github.com/karmafinder/karmafetch/common/logger"
)

var mediaExtensions = map[string]bool{
	"gif":  true,
	"gifv": true,
	"mp4":  true,
	"webm": true,
}

var mediaDomains = []string{
	"i.imgur.com",
	"v.redd.it",
	"streamable.com",
	"redgifs.com",
}

// ShouldAnalyze reports whether a URL looks like probeable media, by
// extension or by known media host
func ShouldAnalyze(url string) bool {
	cleaned := strings.ToLower(url)

	ext := cleaned
	if idx := strings.LastIndex(ext, "."); idx >= 0 {
		ext = ext[idx+1:]
	}
	if idx := strings.Index(ext, "?"); idx >= 0 {
		ext = ext[:idx]
	}
	if mediaExtensions[ext] {
		return true
	}

	for _, domain := range mediaDomains {
		if strings.Contains(cleaned, domain) {
			return true
		}
	}

	return false
}

// Analyzer extracts frame count and dimensions from downloaded media
// via an external probe process
type Analyzer struct {
	cfg config.MediaConfig
	log *logger.Logger
}

// NewAnalyzer creates an analyzer
func NewAnalyzer(cfg config.MediaConfig, log *logger.Logger) *Analyzer {
	return &Analyzer{
		cfg: cfg,
		log: log,
	}
}

// Analyze probes filePath and returns its stream properties. mediaType
// is recorded as-is (usually the URL extension).
func (a *Analyzer) Analyze(ctx context.Context, filePath, sourceURL, mediaType string) (*models.MediaAnalysis, error) {
	cmd := exec.CommandContext(ctx, a.cfg.FFprobePath,
		"-v", "error",
		"-count_frames",
		"-select_streams", "v:0",
		"-show_entries", "stream=nb_read_frames,width,height,duration",
		"-of", "default=noprint_wrappers=1",
		filePath,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		a.log.Warn("ffprobe failed", "url", sourceURL, "error", err, "stderr", tail(stderr.String(), 256))
		return nil, fmt.Errorf("probe media: %w", err)
	}

	fields := parseProbeOutput(stdout.String())

	frameCount := atoiOr(fields["nb_read_frames"], 0)

	return &models.MediaAnalysis{
		URL:        sourceURL,
		Type:       mediaType,
		FrameCount: frameCount,
		Animated:   frameCount > 1,
		Width:      atoiOr(fields["width"], 0),
		Height:     atoiOr(fields["height"], 0),
		Duration:   atofOr(fields["duration"], 0),
	}, nil
}

func parseProbeOutput(out string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		key, val, found := strings.Cut(strings.TrimSpace(line), "=")
		if found && key != "" && val != "" {
			fields[key] = val
		}
	}
	return fields
}

func atoiOr(s string, fallback int) int {
	val, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return val
}

func atofOr(s string, fallback float64) float64 {
	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return val
}
