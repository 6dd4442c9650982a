// Package profile holds the process bootstrap configuration: the flags/env
// settled before the composition root wires any component.
package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration needed to start the daemon.
type Profile struct {
	Mode string // "dev", "demo", or "prod"
	Addr string
	Port int

	// Data is the root directory for the database file (sqlite) and session credentials.
	Data string
	// Driver selects the store backend: "sqlite" or "postgres".
	Driver string
	DSN    string

	// SessionsDir is the root of the two session-pool credential directories
	// (<SessionsDir>/realtime, <SessionsDir>/history). Defaults to <Data>/sessions.
	SessionsDir string

	// ConfigFile is the path to the hot-reloadable parameters file (C9).
	ConfigFile string

	Version string
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// FromEnv fills in defaults that are cheaper to express as env lookups than
// as cobra flag defaults (values an operator is more likely to set via the
// process environment than the command line).
func (p *Profile) FromEnv() {
	if p.SessionsDir == "" {
		p.SessionsDir = getEnvOrDefault("LEADWATCH_SESSIONS_DIR", "")
	}
	if p.ConfigFile == "" {
		p.ConfigFile = getEnvOrDefault("LEADWATCH_CONFIG_FILE", "")
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func checkDataDir(dataDir string) (string, error) {
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		if os.IsNotExist(err) {
			if mkErr := os.MkdirAll(dataDir, 0o770); mkErr != nil {
				return "", errors.Wrapf(mkErr, "unable to create data folder %s", dataDir)
			}
			return dataDir, nil
		}
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

// Validate normalizes Mode/Data/DSN/SessionsDir/ConfigFile and fails closed on
// anything that cannot be made sane (per spec.md §7, ConfigMissing is fatal on boot).
func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Data == "" {
		if p.Mode == "prod" {
			if runtime.GOOS == "windows" {
				p.Data = filepath.Join(os.Getenv("ProgramData"), "leadwatch")
			} else {
				p.Data = "/var/opt/leadwatch"
			}
		} else {
			p.Data = "data"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to prepare data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir

	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported driver %q: must be sqlite or postgres", p.Driver)
	}
	if p.Driver == "sqlite" && p.DSN == "" {
		p.DSN = filepath.Join(dataDir, fmt.Sprintf("leadwatch_%s.db", p.Mode))
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("postgres driver requires --dsn")
	}

	if p.SessionsDir == "" {
		p.SessionsDir = filepath.Join(dataDir, "sessions")
	}
	if p.ConfigFile == "" {
		p.ConfigFile = filepath.Join(dataDir, "config", "parameters.yaml")
	}

	return nil
}
