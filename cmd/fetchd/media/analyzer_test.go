package media

import "testing"

func TestShouldAnalyze(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://i.imgur.com/abc.gif", true},
		{"https://example.com/clip.MP4", true},
		{"https://example.com/clip.webm?source=share", true},
		{"https://v.redd.it/xyz123", true},
		{"https://www.redgifs.com/watch/something", true},
		{"https://streamable.com/abc", true},
		{"https://i.redd.it/photo.jpg", false},
		{"https://example.com/article", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := ShouldAnalyze(tt.url); got != tt.want {
			t.Errorf("ShouldAnalyze(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestParseProbeOutput(t *testing.T) {
	out := "nb_read_frames=42\nwidth=640\nheight=480\nduration=3.500000\n\n"

	fields := parseProbeOutput(out)

	if fields["nb_read_frames"] != "42" {
		t.Errorf("nb_read_frames = %q", fields["nb_read_frames"])
	}
	if fields["width"] != "640" || fields["height"] != "480" {
		t.Errorf("dimensions = %q x %q", fields["width"], fields["height"])
	}
	if fields["duration"] != "3.500000" {
		t.Errorf("duration = %q", fields["duration"])
	}
}

func TestParseProbeOutput_SkipsMalformedLines(t *testing.T) {
	fields := parseProbeOutput("width=640\ngarbage\n=5\nheight=\n")

	if len(fields) != 1 {
		t.Fatalf("got %d fields, want only width: %v", len(fields), fields)
	}
	if fields["width"] != "640" {
		t.Errorf("width = %q", fields["width"])
	}
}
