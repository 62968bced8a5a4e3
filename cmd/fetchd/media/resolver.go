// Package media resolves and composes short-lived video artifacts from
// upstream DASH streams.
package media

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/karmafinder/karmafetch/common/logger"
)

// ErrNoVideo means no video variant of the identifier was reachable
var ErrNoVideo = errors.New("no reachable video source")

// Probe order is fixed: selection is first-reachable in priority order,
// not best-available. 480p leads because it keeps transcode time and
// artifact size predictable.
var (
	videoVariants = []string{"DASH_480", "DASH_720", "DASH_360", "DASH_240"}
	audioVariants = []string{"DASH_AUDIO_128", "DASH_AUDIO_64"}
)

const hlsPlaylist = "HLSPlaylist.m3u8"

// Prober performs a lightweight existence check against a candidate URL
type Prober interface {
	Probe(ctx context.Context, url string) bool
}

// HTTPProber probes with HEAD requests
type HTTPProber struct {
	http      *http.Client
	userAgent string
}

// NewHTTPProber creates an HTTP prober
func NewHTTPProber(httpClient *http.Client, userAgent string) *HTTPProber {
	return &HTTPProber{
		http:      httpClient,
		userAgent: userAgent,
	}
}

// Probe reports whether url answers a HEAD request successfully
func (p *HTTPProber) Probe(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()

	return resp.StatusCode < 400
}

// Source is a resolved set of input streams for one video identifier.
// Either VideoURL is set (AudioURL optionally alongside), or FallbackURL
// alone carries a combined stream.
type Source struct {
	VideoID     string
	VideoURL    string
	AudioURL    string
	FallbackURL string
}

// Resolver selects input streams by probing quality variants in order
type Resolver struct {
	prober Prober
	base   string
	log    *logger.Logger
}

// NewResolver creates a resolver probing under base (e.g. https://v.redd.it)
func NewResolver(prober Prober, base string, log *logger.Logger) *Resolver {
	return &Resolver{
		prober: prober,
		base:   base,
		log:    log,
	}
}

// Resolve probes the video variants for videoID and picks the first
// reachable one, then does the same for audio. When no audio variant
// answers, the combined HLS playlist is tried as a fallback and, if
// reachable, returned in lieu of a separate pair. No reachable video
// variant at all fails with ErrNoVideo.
func (r *Resolver) Resolve(ctx context.Context, videoID string) (*Source, error) {
	src := &Source{VideoID: videoID}

	for _, variant := range videoVariants {
		url := fmt.Sprintf("%s/%s/%s.mp4", r.base, videoID, variant)
		if r.prober.Probe(ctx, url) {
			src.VideoURL = url
			r.log.Debug("video variant resolved", "video_id", videoID, "variant", variant)
			break
		}
	}

	if src.VideoURL == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoVideo, videoID)
	}

	for _, variant := range audioVariants {
		url := fmt.Sprintf("%s/%s/%s.mp4", r.base, videoID, variant)
		if r.prober.Probe(ctx, url) {
			src.AudioURL = url
			r.log.Debug("audio variant resolved", "video_id", videoID, "variant", variant)
			break
		}
	}

	if src.AudioURL == "" {
		url := fmt.Sprintf("%s/%s/%s", r.base, videoID, hlsPlaylist)
		if r.prober.Probe(ctx, url) {
			r.log.Debug("falling back to combined stream", "video_id", videoID)
			return &Source{VideoID: videoID, FallbackURL: url}, nil
		}

		r.log.Debug("no audio variant, composing silent output", "video_id", videoID)
	}

	return src, nil
}
