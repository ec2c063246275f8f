// Package config loads and validates the gns3-proxy INI configuration file
// into an immutable Snapshot consumed by the policy engine and connection
// workers.
package config

import "time"

// Snapshot is the fully parsed and validated configuration. Regex patterns
// are held as strings; the policy engine compiles them.
// Once returned from Load, it is never mutated; the policy engine and
// connection workers only read from it, so it is safe to share across
// goroutines without synchronization.
type Snapshot struct {
	BindAddr string
	BindPort int

	BackendUser     string
	BackendPassword string
	BackendPort     int

	// DefaultServerName is the server used when no mapping rule matches an
	// authenticated user. Empty means there is no default.
	DefaultServerName string

	Backlog               int
	ServerRecvBuf         int
	ClientRecvBuf         int
	OpenFileLimit         int
	InactivityTimeout     time.Duration

	AuthWhitelist     []string
	AuthHeaderName    string
	RealIPHeaderName  string
	AllowAnyUser      bool

	// Servers maps a server name to its backend host/IP literal.
	Servers map[string]string

	// Users maps a username to its plaintext password, as supplied in config.
	Users map[string]string

	Mappings       []MappingEntry
	ProjectFilters []ProjectFilterEntry
	DenyRules      []DenyRuleEntry
}

// MappingEntry is one row of the `[mapping]` section before regex
// compilation: an id, a username-matching regex, and the server name routed
// to on match.
type MappingEntry struct {
	ID          string
	UserPattern string
	ServerName  string
}

// ProjectFilterEntry is one row of the `[project-filter]` section before
// regex compilation: an id, a username-matching regex, and the
// project-name-matching regex applied to that user's `/projects` responses.
type ProjectFilterEntry struct {
	ID             string
	UserPattern    string
	ProjectPattern string
}

// DenyRuleEntry is one row of the `[deny]` section before regex compilation.
// All five patterns must match for the rule to fire; an empty pattern
// string matches anything.
type DenyRuleEntry struct {
	ID            string
	UserPattern   string
	MethodPattern string
	URLPattern    string
	HeaderPattern string
	BodyPattern   string
}
