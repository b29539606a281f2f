package organize

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// MoveFileToDir moves srcPath into dstDir, creating the directory when
// needed. On a name collision the file gets a unix-nano suffix instead of
// overwriting. Falls back to copy+remove for cross-device moves.
func MoveFileToDir(srcPath string, dstDir string) (string, error) {
	dstPath, err := destinationPath(srcPath, dstDir)
	if err != nil {
		return "", err
	}

	// Try fast rename first.
	if err := os.Rename(srcPath, dstPath); err == nil {
		return dstPath, nil
	}

	if err := copyFile(srcPath, dstPath); err != nil {
		return "", err
	}
	if err := os.Remove(srcPath); err != nil {
		return "", err
	}
	return dstPath, nil
}

// CopyFileToDir copies srcPath into dstDir with the same collision rules
// as MoveFileToDir, leaving the source in place.
func CopyFileToDir(srcPath string, dstDir string) (string, error) {
	dstPath, err := destinationPath(srcPath, dstDir)
	if err != nil {
		return "", err
	}
	if err := copyFile(srcPath, dstPath); err != nil {
		return "", err
	}
	return dstPath, nil
}

func destinationPath(srcPath, dstDir string) (string, error) {
	if strings.TrimSpace(dstDir) == "" {
		return "", fmt.Errorf("dstDir is empty")
	}
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return "", err
	}
	base := filepath.Base(srcPath)
	dstPath := filepath.Join(dstDir, base)
	if _, err := os.Stat(dstPath); err == nil {
		ext := filepath.Ext(base)
		name := strings.TrimSuffix(base, ext)
		dstPath = filepath.Join(dstDir, fmt.Sprintf("%s-%d%s", name, time.Now().UnixNano(), ext))
	}
	return dstPath, nil
}

func copyFile(srcPath, dstPath string) error {
	in, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dstPath)
	if err != nil {
		return err
	}
	_, copyErr := io.Copy(out, in)
	closeErr := out.Close()
	if copyErr != nil {
		_ = os.Remove(dstPath)
		return copyErr
	}
	if closeErr != nil {
		_ = os.Remove(dstPath)
		return closeErr
	}
	return nil
}
