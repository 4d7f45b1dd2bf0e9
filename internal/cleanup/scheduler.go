package cleanup

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cabinetlabs/seanced/internal/logger"
)

// Scheduler periodically removes stale entries from the upload temp
// directory and the artifact staging area. A crashed run can leave an
// orphaned staging directory behind; the atomic commit path guarantees it is
// never visible as a bundle, so sweeping it is always safe.
type Scheduler struct {
	dirs            []string
	intervalMinutes int
	maxAgeHours     int
	stopChan        chan struct{}
	log             *logger.Logger
}

// NewScheduler creates a scheduler sweeping the given directories.
func NewScheduler(log *logger.Logger, intervalMinutes, maxAgeHours int, dirs ...string) *Scheduler {
	return &Scheduler{
		dirs:            dirs,
		intervalMinutes: intervalMinutes,
		maxAgeHours:     maxAgeHours,
		stopChan:        make(chan struct{}),
		log:             log,
	}
}

// Start begins the cleanup scheduler
func (s *Scheduler) Start() {
	s.sweep()

	ticker := time.NewTicker(time.Duration(s.intervalMinutes) * time.Minute)
	go func() {
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	s.log.WithFields(map[string]interface{}{
		"interval_minutes": s.intervalMinutes,
		"max_age_hours":    s.maxAgeHours,
	}).Info("cleanup scheduler started")
}

// Stop stops the cleanup scheduler
func (s *Scheduler) Stop() {
	close(s.stopChan)
	s.log.Info("cleanup scheduler stopped")
}

// sweep removes entries older than maxAgeHours from the swept directories.
// Staging directories are removed whole.
func (s *Scheduler) sweep() {
	now := time.Now()
	maxAge := time.Duration(s.maxAgeHours) * time.Hour
	var deleted int

	for _, dir := range s.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if now.Sub(info.ModTime()) <= maxAge {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if err := os.RemoveAll(path); err != nil {
				s.log.WithError(err).WithField("path", path).Warn("failed to delete stale entry")
				continue
			}
			deleted++
		}
	}

	if deleted > 0 {
		s.log.WithField("deleted", deleted).Info("cleanup sweep complete")
	}
}

// EnsureDirExists creates a swept directory if it doesn't exist
func EnsureDirExists(dir string) error {
	return os.MkdirAll(dir, 0755)
}
