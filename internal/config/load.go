package config

import (
	"fmt"
	"os"

	"github.com/gns3/gns3-proxy/internal/clog"
)

// Load reads, parses, and validates the INI configuration file at path,
// returning an immutable Snapshot. Any failure here is a fatal config error:
// the caller should exit with the process's config-error exit code rather
// than attempt to proceed with partial configuration.
func Load(path string) (*Snapshot, error) {
	clog.Info("config: loading from %s", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	snap, err := parseSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := Validate(snap); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	clog.Info("config: loaded %d server(s), %d user(s), %d mapping(s), %d deny rule(s), %d project filter(s)",
		len(snap.Servers), len(snap.Users), len(snap.Mappings), len(snap.DenyRules), len(snap.ProjectFilters))

	return snap, nil
}
