package media

import (
	"context"
	"errors"
	"testing"

	"github.com/karmafinder/karmafetch/common/logger"
)

// fakeProber answers from a fixed set of reachable URLs and records
// probe order
type fakeProber struct {
	reachable map[string]bool
	probed    []string
}

func (p *fakeProber) Probe(ctx context.Context, url string) bool {
	p.probed = append(p.probed, url)
	return p.reachable[url]
}

const testBase = "https://v.redd.it"

func testResolver(reachable ...string) (*Resolver, *fakeProber) {
	prober := &fakeProber{reachable: make(map[string]bool)}
	for _, url := range reachable {
		prober.reachable[url] = true
	}
	return NewResolver(prober, testBase, logger.New("error", "text")), prober
}

func TestResolve_PrefersFirstVariantInOrder(t *testing.T) {
	// 720 is reachable but 480 leads the probe order
	r, _ := testResolver(
		testBase+"/vid1/DASH_480.mp4",
		testBase+"/vid1/DASH_720.mp4",
		testBase+"/vid1/DASH_AUDIO_128.mp4",
	)

	src, err := r.Resolve(context.Background(), "vid1")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if src.VideoURL != testBase+"/vid1/DASH_480.mp4" {
		t.Fatalf("video = %q, want the 480 variant", src.VideoURL)
	}
	if src.AudioURL != testBase+"/vid1/DASH_AUDIO_128.mp4" {
		t.Fatalf("audio = %q, want the 128 variant", src.AudioURL)
	}
	if src.FallbackURL != "" {
		t.Fatalf("fallback should be unset when a pair resolved, got %q", src.FallbackURL)
	}
}

func TestResolve_FallsThroughVariants(t *testing.T) {
	r, prober := testResolver(
		testBase+"/vid2/DASH_240.mp4",
		testBase+"/vid2/DASH_AUDIO_64.mp4",
	)

	src, err := r.Resolve(context.Background(), "vid2")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if src.VideoURL != testBase+"/vid2/DASH_240.mp4" {
		t.Fatalf("video = %q, want the 240 variant", src.VideoURL)
	}
	if src.AudioURL != testBase+"/vid2/DASH_AUDIO_64.mp4" {
		t.Fatalf("audio = %q, want the 64 variant", src.AudioURL)
	}

	// Higher qualities must have been tried first, in order
	want := []string{
		testBase + "/vid2/DASH_480.mp4",
		testBase + "/vid2/DASH_720.mp4",
		testBase + "/vid2/DASH_360.mp4",
		testBase + "/vid2/DASH_240.mp4",
	}
	for i, url := range want {
		if prober.probed[i] != url {
			t.Fatalf("probe %d = %q, want %q", i, prober.probed[i], url)
		}
	}
}

func TestResolve_HLSFallbackWhenNoAudio(t *testing.T) {
	r, _ := testResolver(
		testBase+"/vid3/DASH_480.mp4",
		testBase+"/vid3/HLSPlaylist.m3u8",
	)

	src, err := r.Resolve(context.Background(), "vid3")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if src.FallbackURL != testBase+"/vid3/HLSPlaylist.m3u8" {
		t.Fatalf("fallback = %q, want the HLS playlist", src.FallbackURL)
	}
	if src.VideoURL != "" || src.AudioURL != "" {
		t.Fatal("fallback source must not carry a separate video/audio pair")
	}
}

func TestResolve_SilentWhenNoAudioAndNoPlaylist(t *testing.T) {
	r, _ := testResolver(testBase + "/vid4/DASH_360.mp4")

	src, err := r.Resolve(context.Background(), "vid4")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if src.VideoURL == "" {
		t.Fatal("video should have resolved")
	}
	if src.AudioURL != "" || src.FallbackURL != "" {
		t.Fatal("no audio and no playlist should yield a silent source")
	}
}

func TestResolve_NoVideoFails(t *testing.T) {
	r, prober := testResolver(testBase + "/vid5/DASH_AUDIO_128.mp4")

	_, err := r.Resolve(context.Background(), "vid5")
	if !errors.Is(err, ErrNoVideo) {
		t.Fatalf("err = %v, want ErrNoVideo", err)
	}

	// Audio must not be probed once video resolution failed
	for _, url := range prober.probed {
		if url == testBase+"/vid5/DASH_AUDIO_128.mp4" {
			t.Fatal("audio probed despite missing video")
		}
	}
}
