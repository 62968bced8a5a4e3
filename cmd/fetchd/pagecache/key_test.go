package pagecache

import (
	"strings"
	"testing"
)

func TestBuildKey_Deterministic(t *testing.T) {
	f := Filters{Subreddit: "videos", Sort: "hot"}

	first := BuildKey(FirstPageToken, f)
	second := BuildKey(FirstPageToken, f)

	if first != second {
		t.Fatalf("equal requests produced different keys: %q vs %q", first, second)
	}
}

func TestBuildKey_DefaultsSubstituted(t *testing.T) {
	// All-zero filters and explicit defaults must collide
	zero := BuildKey(FirstPageToken, Filters{})
	explicit := BuildKey(FirstPageToken, Filters{
		Subreddit:   "all",
		ContentType: "all",
		Sort:        "hot",
		Time:        "all",
	})

	if zero != explicit {
		t.Fatalf("zero filters %q != explicit defaults %q", zero, explicit)
	}

	want := "page_1__all__all__hot____all"
	if zero != want {
		t.Fatalf("default key = %q, want %q", zero, want)
	}
}

func TestBuildKey_CaseInsensitiveFilters(t *testing.T) {
	lower := BuildKey(FirstPageToken, Filters{Subreddit: "videos", Sort: "hot"})
	upper := BuildKey(FirstPageToken, Filters{Subreddit: "Videos", Sort: "HOT"})

	if lower != upper {
		t.Fatalf("case variants produced different keys: %q vs %q", lower, upper)
	}
}

func TestBuildKey_DistinctFilters(t *testing.T) {
	base := Filters{Subreddit: "videos", Sort: "hot"}

	hot := BuildKey(FirstPageToken, base)
	newest := BuildKey(FirstPageToken, Filters{Subreddit: "videos", Sort: "new"})
	cursored := BuildKey("t3_abc123", base)

	if hot == newest {
		t.Errorf("sort variants collided on %q", hot)
	}
	if hot == cursored {
		t.Errorf("cursor variants collided on %q", hot)
	}
}

func TestBuildKey_QueryEscaped(t *testing.T) {
	key := BuildKey(FirstPageToken, Filters{Query: "cats & dogs"})

	if strings.Contains(key, " ") || strings.Contains(key, "&") {
		t.Fatalf("key contains unescaped separators: %q", key)
	}
	if !strings.Contains(key, "cats+%26+dogs") {
		t.Fatalf("query not percent-encoded in %q", key)
	}
}

func TestNormalizeCursor(t *testing.T) {
	tests := []struct {
		after string
		want  string
	}{
		{"", FirstPageToken},
		{FirstPageToken, FirstPageToken},
		{"abc123", "t3_abc123"},
		{"t3_abc123", "t3_abc123"},
	}

	for _, tt := range tests {
		if got := NormalizeCursor(tt.after); got != tt.want {
			t.Errorf("NormalizeCursor(%q) = %q, want %q", tt.after, got, tt.want)
		}
	}
}
