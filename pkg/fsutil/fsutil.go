package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// EnsureDailyDir creates (if needed) and returns base/yyyy/mm/dd, keeping
// per-directory file counts bounded over time.
func EnsureDailyDir(base string, now time.Time) (string, error) {
	dir := filepath.Join(base,
		fmt.Sprintf("%04d", now.Year()),
		fmt.Sprintf("%02d", int(now.Month())),
		fmt.Sprintf("%02d", now.Day()),
	)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create daily directory: %w", err)
	}
	return dir, nil
}

// SuggestPNGName returns a collision-resistant file name for a capture of
// the given target.
func SuggestPNGName(target string) string {
	return fmt.Sprintf("%s_%s.png", target, uuid.New().String())
}
