package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"

	"github.com/jmaddaus/issuetrack/internal/model"
)

// PageSizes are the page sizes offered by the list page. 0 means "all".
var PageSizes = []int{10, 50, 100, 0}

// Config holds the daemon configuration.
type Config struct {
	ListenAddr string `json:"listen_addr"` // default ":8043"
	DataDir    string `json:"data_dir"`    // default "~/.issuetrack"
	DBPath     string `json:"db_path"`     // default "{data_dir}/issues.db"
	PageSize   int    `json:"page_size"`   // default 10

	model.Schema
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".issuetrack")
	return &Config{
		ListenAddr: ":8043",
		DataDir:    dataDir,
		DBPath:     filepath.Join(dataDir, "issues.db"),
		PageSize:   10,
		Schema:     model.DefaultSchema(),
	}
}

// DefaultPath returns the config file location for the default data dir,
// honouring $ISSUETRACK_CONFIG.
func DefaultPath() string {
	if p := os.Getenv("ISSUETRACK_CONFIG"); p != "" {
		return expandHome(p)
	}
	return filepath.Join(DefaultConfig().DataDir, "config.json")
}

// expandHome replaces a leading "~" with the user's home directory.
func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}

// Load reads configuration from path. Comments and trailing commas are
// allowed. If the file does not exist, it returns the default configuration.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(expandHome(path))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := parse(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parse(data []byte, cfg *Config) error {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if err := json.Unmarshal(standardized, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	cfg.DataDir = expandHome(cfg.DataDir)
	cfg.DBPath = expandHome(cfg.DBPath)
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, "issues.db")
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	return nil
}

// Validate checks that the Config contains valid values.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}

	_, portStr, err := net.SplitHostPort(c.ListenAddr)
	if err != nil {
		return fmt.Errorf("invalid listen_addr %q: %w", c.ListenAddr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port in listen_addr %q: %w", c.ListenAddr, err)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port %d out of range (1-65535)", port)
	}

	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if !slices.Contains(PageSizes, c.PageSize) {
		return fmt.Errorf("page_size %d must be one of %v", c.PageSize, PageSizes)
	}

	if len(c.Statuses) == 0 {
		return fmt.Errorf("statuses must not be empty")
	}
	if len(c.Priorities) == 0 {
		return fmt.Errorf("priorities must not be empty")
	}
	if !c.ValidStatus(c.DefaultStatus) {
		return fmt.Errorf("default_status %q is not one of %v", c.DefaultStatus, c.Statuses)
	}
	if !c.ValidPriority(c.DefaultPriority) {
		return fmt.Errorf("default_priority %q is not one of %v", c.DefaultPriority, c.Priorities)
	}

	return nil
}

// Save writes the configuration to path, replacing any existing file
// atomically.
func Save(cfg *Config, path string) error {
	path = expandHome(path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	data = append(data, '\n')

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// EnsureDataDir creates the data directory if it does not exist.
func EnsureDataDir(cfg *Config) error {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir %s: %w", cfg.DataDir, err)
	}
	return nil
}
