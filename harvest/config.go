package harvest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SessionConfig holds the ERP session parameters the browser layer needs.
type SessionConfig struct {
	BaseURL  string `yaml:"base_url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// Headless defaults to true; set false to watch the session.
	Headless *bool `yaml:"headless"`
	// PageSize is requested from the listing's page-size control.
	PageSize int `yaml:"page_size"`
	// DateFilter is the listing date-range preset, e.g. "this_month".
	DateFilter string `yaml:"date_filter"`
}

// JobConfig configures one document type's ingestion run.
type JobConfig struct {
	// Dir is where downloads, checkpoints, tracking files and reports for
	// this type live. Defaults to <download_root>/<type>.
	Dir string `yaml:"dir"`
	// MaxAttempts per row; defaults to 3.
	MaxAttempts int `yaml:"max_attempts"`
	// FinalAttemptPause before the last retry; defaults to 1s. Written in
	// the config as a duration string, e.g. "1s" or "1500ms".
	FinalAttemptPause time.Duration `yaml:"-"`
}

// UnmarshalYAML accepts final_attempt_pause as a duration string.
func (j *JobConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Dir               string `yaml:"dir"`
		MaxAttempts       int    `yaml:"max_attempts"`
		FinalAttemptPause string `yaml:"final_attempt_pause"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	j.Dir = raw.Dir
	j.MaxAttempts = raw.MaxAttempts
	if raw.FinalAttemptPause != "" {
		d, err := time.ParseDuration(raw.FinalAttemptPause)
		if err != nil {
			return fmt.Errorf("final_attempt_pause: %w", err)
		}
		j.FinalAttemptPause = d
	}
	return nil
}

// FileConfig is the whole collector configuration.
type FileConfig struct {
	// DownloadRoot is the base directory holding one subdirectory per
	// document type.
	DownloadRoot string `yaml:"download_root"`
	// LedgerDB is the sqlite run-history database path. Empty disables the
	// ledger.
	LedgerDB string `yaml:"ledger_db"`
	Debug    bool   `yaml:"debug"`

	Session SessionConfig `yaml:"session"`

	Invoices   JobConfig `yaml:"invoices"`
	Expenses   JobConfig `yaml:"expenses"`
	Remissions JobConfig `yaml:"remissions"`
}

// Job returns the (defaulted) job configuration for one document type.
func (c *FileConfig) Job(docType DocType) JobConfig {
	var j JobConfig
	switch docType {
	case DocExpenses:
		j = c.Expenses
	case DocRemissions:
		j = c.Remissions
	default:
		j = c.Invoices
	}
	if strings.TrimSpace(j.Dir) == "" {
		j.Dir = filepath.Join(c.DownloadRoot, string(docType))
	}
	if j.MaxAttempts <= 0 {
		j.MaxAttempts = 3
	}
	if j.FinalAttemptPause <= 0 {
		j.FinalAttemptPause = time.Second
	}
	return j
}

func LoadConfig(path string) (*FileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg FileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.DownloadRoot) == "" {
		return nil, fmt.Errorf("%s: download_root is required", path)
	}
	return &cfg, nil
}
