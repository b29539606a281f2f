package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// snapshotDir records the files already present so a later poll can tell
// which one a click produced.
func snapshotDir(dir string) (map[string]bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		seen[e.Name()] = true
	}
	return seen, nil
}

// inProgress reports whether name is a partial download artifact.
func inProgress(name string) bool {
	return strings.HasSuffix(name, ".crdownload") || strings.HasSuffix(name, ".tmp")
}

// waitForDownload polls dir until a file not present in before finishes
// downloading, then renames it to finalName when one is given. It returns
// the path the file ended up at.
func waitForDownload(ctx context.Context, dir string, before map[string]bool, finalName string) (string, error) {
	var lastSize int64 = -1
	for {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return "", err
		}
		for _, e := range entries {
			name := e.Name()
			if before[name] || e.IsDir() || inProgress(name) {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			// Wait for the size to hold still across two polls.
			if info.Size() == 0 || info.Size() != lastSize {
				lastSize = info.Size()
				break
			}
			path := filepath.Join(dir, name)
			if finalName == "" || name == finalName {
				return path, nil
			}
			return renameDownload(path, filepath.Join(dir, finalName))
		}
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("no completed download appeared: %w", ctx.Err())
		case <-time.After(250 * time.Millisecond):
		}
	}
}

// renameDownload moves a finished download to its final name, suffixing
// with a nanosecond stamp when the name is taken.
func renameDownload(src, dst string) (string, error) {
	if _, err := os.Stat(dst); err == nil {
		ext := filepath.Ext(dst)
		base := strings.TrimSuffix(filepath.Base(dst), ext)
		dst = filepath.Join(filepath.Dir(dst), fmt.Sprintf("%s-%d%s", base, time.Now().UnixNano(), ext))
	}
	if err := os.Rename(src, dst); err != nil {
		return "", err
	}
	return dst, nil
}
