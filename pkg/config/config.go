package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileName is the config file looked up by FindConfigPath.
const FileName = "config.json"

// Config is the contents of config.json.
type Config struct {
	// Engine is the path to a USI engine binary, relative to the config file's directory.
	Engine   string `json:"engine"`
	Millis   int    `json:"millis"`
	MaxPlies int    `json:"max_plies"`
	Seed     int64  `json:"seed"`
}

// FindConfigPath walks up from the working directory until it finds config.json.
// It returns the file path and the directory holding it.
func FindConfigPath() (string, string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", "", err
	}
	return findFrom(cwd)
}

func findFrom(start string) (string, string, error) {
	dir := start
	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return path, filepath.Dir(path), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", "", fmt.Errorf("%s not found from %s", FileName, start)
}

// LoadConfig reads and validates a config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Millis < 0 || cfg.MaxPlies < 0 {
		return Config{}, fmt.Errorf("parse %s: millis and max_plies must be >= 0", path)
	}
	return cfg, nil
}

// Resolve loads the config at arg, or searches for one when arg is empty.
// A missing config during the search is not an error: the zero Config is returned.
func Resolve(arg string) (Config, string, error) {
	if arg != "" {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return Config{}, "", err
		}
		cfg, err := LoadConfig(abs)
		return cfg, filepath.Dir(abs), err
	}
	path, root, err := FindConfigPath()
	if err != nil {
		return Config{}, "", nil
	}
	cfg, err := LoadConfig(path)
	return cfg, root, err
}

// EnginePath resolves cfg.Engine against the config directory.
func (c Config) EnginePath(root string) (string, error) {
	if c.Engine == "" {
		return "", errors.New("engine path is required")
	}
	if filepath.IsAbs(c.Engine) {
		return c.Engine, nil
	}
	return filepath.Join(root, c.Engine), nil
}
