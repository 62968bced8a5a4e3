// Package janitor owns time-based cleanup: stale database rows, the
// media temp directory, and per-artifact deletion timers.
package janitor

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/karmafinder/karmafetch/cmd/fetchd/repository"
	"github.com/karmafinder/karmafetch/common/config"
	"github.com/karmafinder/karmafetch/common/logger"
)

// Janitor runs the periodic cleanup loops
type Janitor struct {
	posts    *repository.PostRepository
	icons    *repository.IconRepository
	search   *repository.SearchCacheRepository
	analysis *repository.MediaAnalysisRepository
	images   *repository.ImageCacheRepository

	cfg   config.JanitorConfig
	media config.MediaConfig
	log   *logger.Logger

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// New creates a janitor
func New(
	posts *repository.PostRepository,
	icons *repository.IconRepository,
	search *repository.SearchCacheRepository,
	analysis *repository.MediaAnalysisRepository,
	images *repository.ImageCacheRepository,
	cfg config.JanitorConfig,
	media config.MediaConfig,
	log *logger.Logger,
) *Janitor {
	return &Janitor{
		posts:    posts,
		icons:    icons,
		search:   search,
		analysis: analysis,
		images:   images,
		cfg:      cfg,
		media:    media,
		log:      log,
		stop:     make(chan struct{}),
	}
}

// Start launches the cleanup loops and sweeps leftover temp files from
// a previous run
func (j *Janitor) Start() {
	j.sweepTemp()

	j.loop(j.cfg.PostMaxAge, "posts", func(ctx context.Context) (int64, error) {
		return j.posts.DeleteOlderThan(ctx, j.cfg.PostMaxAge)
	})
	j.loop(1*time.Hour, "subreddit search cache", func(ctx context.Context) (int64, error) {
		return j.search.DeleteOlderThan(ctx, j.cfg.SearchCacheMaxAge)
	})
	j.loop(24*time.Hour, "subreddit icons", func(ctx context.Context) (int64, error) {
		return j.icons.DeleteOlderThan(ctx, j.cfg.IconMaxAge)
	})
	j.loop(24*time.Hour, "media analysis", func(ctx context.Context) (int64, error) {
		return j.analysis.DeleteOlderThan(ctx, j.cfg.AnalysisMaxAge)
	})
	j.loop(24*time.Hour, "image news cache", func(ctx context.Context) (int64, error) {
		return j.images.DeleteOlderThan(ctx, 24*time.Hour)
	})

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()

		ticker := time.NewTicker(j.cfg.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				j.sweepTemp()
			case <-j.stop:
				return
			}
		}
	}()

	j.log.Info("janitor started", "temp_dir", j.media.TempDir)
}

// Stop halts all cleanup loops. Per-file deletion timers already armed
// keep running; they outlive requests by design.
func (j *Janitor) Stop() {
	j.once.Do(func() {
		close(j.stop)
	})
	j.wg.Wait()
	j.log.Info("janitor stopped")
}

// ScheduleFileDeletion removes path after the retention window,
// regardless of how the request that produced it ended
func (j *Janitor) ScheduleFileDeletion(path, name string) {
	retention := j.media.FileRetention

	time.AfterFunc(retention, func() {
		if err := os.Remove(path); err != nil {
			if os.IsNotExist(err) {
				j.log.Debug("file already deleted", "name", name)
				return
			}
			j.log.Warn("timer delete failed", "name", name, "error", err)
			return
		}
		j.log.Info("timer deleted artifact", "name", name)
	})

	j.log.Debug("deletion scheduled", "name", name, "after", retention)
}

func (j *Janitor) loop(interval time.Duration, what string, clean func(ctx context.Context) (int64, error)) {
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				deleted, err := clean(ctx)
				cancel()

				if err != nil {
					j.log.Error("cleanup failed", "what", what, "error", err)
					continue
				}
				if deleted > 0 {
					j.log.Info("cleanup pass", "what", what, "deleted", deleted)
				}
			case <-j.stop:
				return
			}
		}
	}()
}

// sweepTemp removes temp files older than the retention window
func (j *Janitor) sweepTemp() {
	entries, err := os.ReadDir(j.media.TempDir)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		j.log.Warn("temp sweep failed", "error", err)
		return
	}

	maxAge := j.media.FileRetention
	now := time.Now()
	deleted := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if now.Sub(info.ModTime()) > maxAge {
			path := filepath.Join(j.media.TempDir, entry.Name())
			if err := os.Remove(path); err != nil {
				j.log.Warn("temp sweep delete failed", "file", entry.Name(), "error", err)
				continue
			}
			deleted++
		}
	}

	if deleted > 0 {
		j.log.Info("temp sweep complete", "deleted", deleted)
	}
}
