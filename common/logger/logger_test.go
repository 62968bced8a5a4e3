package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func bufferLogger() (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return &Logger{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}, &buf
}

func TestWithEndpoint(t *testing.T) {
	log, buf := bufferLogger()

	log.WithEndpoint("video").Info("resolved")

	if !strings.Contains(buf.String(), `"endpoint":"video"`) {
		t.Fatalf("missing endpoint attribute in %q", buf.String())
	}
}

func TestWithSubreddit(t *testing.T) {
	log, buf := bufferLogger()

	log.WithSubreddit("videos").Info("icon cached")

	if !strings.Contains(buf.String(), `"subreddit":"videos"`) {
		t.Fatalf("missing subreddit attribute in %q", buf.String())
	}
}

func TestWithFields(t *testing.T) {
	log, buf := bufferLogger()

	log.WithFields(map[string]any{"query": "cats"}).Info("cache hit")

	if !strings.Contains(buf.String(), `"query":"cats"`) {
		t.Fatalf("missing field in %q", buf.String())
	}
}

func TestErrorIncludesStack(t *testing.T) {
	log, buf := bufferLogger()

	log.Error("boom")

	if !strings.Contains(buf.String(), `"stack"`) {
		t.Fatalf("missing stack attribute in %q", buf.String())
	}
}
