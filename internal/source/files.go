package source

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	apperrors "github.com/GriffinCanCode/autovod/internal/errors"
)

// Files replays still images matching a glob, one per tick, in name order.
// Useful for re-validating calibration against recorded footage.
type Files struct {
	pattern string
	every   time.Duration
	loop    bool
}

// NewFiles creates a replay source. With loop set, the list repeats until ctx
// is done.
func NewFiles(pattern string, every time.Duration, loop bool) *Files {
	return &Files{pattern: pattern, every: every, loop: loop}
}

func (s *Files) Name() string { return "files" }

// Paths returns the matching files in replay order.
func (s *Files) Paths() ([]string, error) {
	paths, err := filepath.Glob(s.pattern)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeConfigInvalid, "bad glob").WithMetadata("pattern", s.pattern)
	}
	if len(paths) == 0 {
		return nil, apperrors.New(apperrors.CodeSourceFailed, "no files match").WithMetadata("pattern", s.pattern)
	}
	sort.Strings(paths)
	return paths, nil
}

func (s *Files) Run(ctx context.Context, emit Emit) error {
	paths, err := s.Paths()
	if err != nil {
		return err
	}
	ticker := time.NewTicker(s.every)
	defer ticker.Stop()

	for {
		for _, p := range paths {
			f, err := DecodeFile(p)
			if err != nil {
				slog.Warn("skipping unreadable frame", "path", p, "error", err)
				continue
			}
			select {
			case <-ctx.Done():
				return nil
			case now := <-ticker.C:
				emit(now, f)
			}
		}
		if !s.loop {
			return nil
		}
	}
}
