package dupes

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// RenameResult is the accounting of one rename pass.
type RenameResult struct {
	Total   int
	Renamed int
	Skipped int
	Errors  int
}

const renamePrefix = "hermaco-"

// RenameByControlNumber renames every JSON document in dir to
// hermaco-<numeroControl>.json. Files already named correctly, files
// without a control number and name collisions are skipped.
func RenameByControlNumber(dir string, log *slog.Logger) (*RenameResult, error) {
	if log == nil {
		log = slog.Default()
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}

	res := &RenameResult{}
	for _, path := range matches {
		name := filepath.Base(path)
		if isBookkeepingFile(name) {
			continue
		}
		res.Total++

		raw, err := os.ReadFile(path)
		if err != nil {
			log.Error("unreadable file", "file", name, "err", err)
			res.Errors++
			continue
		}
		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			log.Error("unparsable file", "file", name, "err", err)
			res.Errors++
			continue
		}
		control := ControlNumber(doc)
		if control == "" {
			log.Warn("file without control number", "file", name)
			res.Skipped++
			continue
		}

		newName := fmt.Sprintf("%s%s.json", renamePrefix, control)
		if name == newName {
			res.Skipped++
			continue
		}
		newPath := filepath.Join(dir, newName)
		if _, err := os.Stat(newPath); err == nil {
			log.Warn("target name already taken", "file", name, "target", newName)
			res.Skipped++
			continue
		}
		if err := os.Rename(path, newPath); err != nil {
			log.Error("rename failed", "file", name, "err", err)
			res.Errors++
			continue
		}
		res.Renamed++
		log.Info("renamed", "from", name, "to", newName)
	}
	return res, nil
}
