package config

import (
	"fmt"
	"net"
	"regexp"
)

// Validate checks a parsed Snapshot against the invariants documented
// alongside the configuration snapshot: every `servers` value is a
// resolvable host or IP, every mapping's server name exists in `servers`,
// `default_server_name` (if present) exists in `servers`, and every regex
// in `mappings`, `project_filters`, and `deny_rules` compiles.
func Validate(snap *Snapshot) error {
	if snap.BindPort < 1 || snap.BindPort > 65535 {
		return fmt.Errorf("proxy.bind_port: invalid port %d, must be 1-65535", snap.BindPort)
	}
	if snap.BackendPort < 1 || snap.BackendPort > 65535 {
		return fmt.Errorf("proxy.backend_port: invalid port %d, must be 1-65535", snap.BackendPort)
	}
	if len(snap.Servers) == 0 {
		return fmt.Errorf("servers: at least one server must be configured")
	}

	for name, addr := range snap.Servers {
		resolved, err := resolve(addr)
		if err != nil {
			return fmt.Errorf("servers.%s: %w", name, err)
		}
		// Cache the resolved IP literal so the data path never performs a
		// synchronous DNS lookup.
		snap.Servers[name] = resolved
	}

	for _, entry := range snap.AuthWhitelist {
		if _, _, err := net.ParseCIDR(entry); err == nil {
			continue
		}
		if net.ParseIP(entry) == nil {
			return fmt.Errorf("proxy.auth_whitelist: invalid IP or CIDR entry %q", entry)
		}
	}

	if snap.DefaultServerName != "" {
		if _, ok := snap.Servers[snap.DefaultServerName]; !ok {
			return fmt.Errorf("proxy.default_server_name: server %q is not defined in [servers]", snap.DefaultServerName)
		}
	}

	for _, m := range snap.Mappings {
		if err := compiles(m.UserPattern); err != nil {
			return fmt.Errorf("mapping %q: user-regex: %w", m.ID, err)
		}
		if _, ok := snap.Servers[m.ServerName]; !ok {
			return fmt.Errorf("mapping %q: server %q is not defined in [servers]", m.ID, m.ServerName)
		}
	}

	for _, pf := range snap.ProjectFilters {
		if err := compiles(pf.UserPattern); err != nil {
			return fmt.Errorf("project-filter %q: user-regex: %w", pf.ID, err)
		}
		if err := compiles(pf.ProjectPattern); err != nil {
			return fmt.Errorf("project-filter %q: project-regex: %w", pf.ID, err)
		}
	}

	for _, d := range snap.DenyRules {
		fields := map[string]string{
			"user-regex":   d.UserPattern,
			"method-regex": d.MethodPattern,
			"url-regex":    d.URLPattern,
			"header-regex": d.HeaderPattern,
			"body-regex":   d.BodyPattern,
		}
		for field, pattern := range fields {
			if err := compiles(pattern); err != nil {
				return fmt.Errorf("deny %q: %s: %w", d.ID, field, err)
			}
		}
	}

	return nil
}

// compiles reports whether pattern compiles as a regular expression. An
// empty pattern is always valid (it matches anything, per the deny-rule
// field semantics).
func compiles(pattern string) error {
	if pattern == "" {
		return nil
	}
	_, err := regexp.Compile(pattern)
	return err
}

// resolve returns addr unchanged if it is already an IP literal, or the
// first address a hostname resolves to. Resolution happens once here, at
// config load, so the data path never performs synchronous DNS lookups.
func resolve(addr string) (string, error) {
	if net.ParseIP(addr) != nil {
		return addr, nil
	}
	ips, err := net.LookupHost(addr)
	if err != nil {
		return "", fmt.Errorf("host %q is not a resolvable hostname or IP: %w", addr, err)
	}
	return ips[0], nil
}
