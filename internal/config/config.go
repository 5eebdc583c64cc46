// Package config holds the runtime configuration for the bench tool.
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config is the parsed command line plus environment overrides.
type Config struct {
	DataDir string
	Device  string
	Baud    int

	ListPorts bool
	ExportKey string
	ExportOut string
	Verbose   bool
}

// Parse reads flags from args (not including the program name).
func Parse(args []string) (Config, error) {
	cfg := Config{}
	fs := flag.NewFlagSet("pressurebench", flag.ContinueOnError)

	fs.StringVar(&cfg.DataDir, "data-dir", "", "data directory (default $HOME/PressureReadings)")
	fs.StringVar(&cfg.Device, "device", "", "serial device path, example /dev/ttyACM0 (default: first USB port)")
	fs.IntVar(&cfg.Baud, "baud", 115200, "serial bit rate")
	fs.BoolVar(&cfg.ListPorts, "list-ports", false, "list candidate serial ports and exit")
	fs.StringVar(&cfg.ExportKey, "export", "", "export a session, key form user/bodypart/session")
	fs.StringVar(&cfg.ExportOut, "out", "", "destination path for -export")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "debug logging")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.DataDir = firstNonEmpty(
		cfg.DataDir,
		os.Getenv("PRESSUREBENCH_DATA_DIR"),
		defaultDataDir(),
	)
	cfg.Device = firstNonEmpty(cfg.Device, os.Getenv("PRESSUREBENCH_DEVICE"))

	if cfg.Baud <= 0 {
		return Config{}, fmt.Errorf("invalid baud rate %d", cfg.Baud)
	}
	if cfg.ExportKey != "" && strings.TrimSpace(cfg.ExportOut) == "" {
		return Config{}, fmt.Errorf("-export requires -out")
	}
	return cfg, nil
}

// SplitSessionKey parses the user/bodypart/session form used by -export.
func SplitSessionKey(key string) (userID, bodyPartID, sessionID string, err error) {
	parts := strings.Split(strings.Trim(strings.TrimSpace(key), "/"), "/")
	if len(parts) != 3 {
		return "", "", "", fmt.Errorf("session key must be user/bodypart/session, got %q", key)
	}
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return "", "", "", fmt.Errorf("session key has an empty segment: %q", key)
		}
	}
	return parts[0], parts[1], parts[2], nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "PressureReadings"
	}
	return filepath.Join(home, "PressureReadings")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
