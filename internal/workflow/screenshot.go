package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"library-room-booker/internal/browser"
	"library-room-booker/internal/logging"
)

// FileScreenshotter saves full-page screenshots as <dir>/<name>_<timestamp>.png.
type FileScreenshotter struct {
	Dir     string
	Enabled bool
	Log     *logging.Logger
	Now     func() time.Time
}

// Capture saves a screenshot and returns its path, or "" when disabled or failed.
func (s *FileScreenshotter) Capture(page browser.Page, name string) string {
	if !s.Enabled {
		return ""
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	if err := os.MkdirAll(s.Dir, 0o750); err != nil {
		s.Log.Warnf("Failed to create screenshot directory: %v", err)
		return ""
	}
	path := filepath.Join(s.Dir, fmt.Sprintf("%s_%s.png", name, now().Format("20060102_150405")))
	if err := page.Screenshot(path); err != nil {
		s.Log.Warnf("Failed to take screenshot: %v", err)
		return ""
	}
	s.Log.Infof("Screenshot saved: %s", path)
	return path
}
