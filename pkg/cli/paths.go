package cli

import (
	"os"
	"path/filepath"
)

// DefaultBaseDir is the data directory under the user's home.
const DefaultBaseDir = ".simulagent"

// Paths locates the simulagent directories (~/.simulagent).
type Paths struct {
	HomeDir string
}

// NewPaths resolves the user's home directory. SIMULAGENT_HOME overrides
// the base directory.
func NewPaths() (*Paths, error) {
	if dir := os.Getenv("SIMULAGENT_HOME"); dir != "" {
		return &Paths{HomeDir: dir}, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return &Paths{HomeDir: filepath.Join(home, DefaultBaseDir)}, nil
}

// BaseDir returns ~/.simulagent.
func (p *Paths) BaseDir() string {
	return p.HomeDir
}

// SystemDir returns the default system directory (~/.simulagent/system).
func (p *Paths) SystemDir() string {
	return filepath.Join(p.HomeDir, "system")
}

// StoreDir returns the badger directory for evaluation runs
// (~/.simulagent/runs).
func (p *Paths) StoreDir() string {
	return filepath.Join(p.HomeDir, "runs")
}

// StoreURL returns the kv URL of StoreDir.
func (p *Paths) StoreURL() string {
	return "badger://" + p.StoreDir()
}

// EnsureStoreDir creates StoreDir if it doesn't exist.
func (p *Paths) EnsureStoreDir() error {
	return os.MkdirAll(p.StoreDir(), 0755)
}
