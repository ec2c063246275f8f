package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/ini.v1"
)

const (
	sectionProxy         = "proxy"
	sectionServers       = "servers"
	sectionUsers         = "users"
	sectionMapping       = "mapping"
	sectionProjectFilter = "project-filter"
	sectionDeny          = "deny"
)

// parseSnapshot parses raw INI data into a Snapshot. It does not validate
// cross-references (e.g. that a mapping's server name exists in `servers`)
// or compile any regex; that is the job of Validate.
func parseSnapshot(data []byte) (*Snapshot, error) {
	f, err := ini.Load(data)
	if err != nil {
		return nil, fmt.Errorf("parse ini: %w", err)
	}

	snap := defaultSnapshot()

	if err := parseProxySection(f, snap); err != nil {
		return nil, err
	}
	parseKeyValueSection(f, sectionServers, snap.Servers)
	parseKeyValueSection(f, sectionUsers, snap.Users)

	snap.Mappings, err = parseMappingSection(f)
	if err != nil {
		return nil, err
	}
	snap.ProjectFilters, err = parseProjectFilterSection(f)
	if err != nil {
		return nil, err
	}
	snap.DenyRules, err = parseDenySection(f)
	if err != nil {
		return nil, err
	}

	return snap, nil
}

func parseProxySection(f *ini.File, snap *Snapshot) error {
	if !f.HasSection(sectionProxy) {
		return nil
	}
	sec := f.Section(sectionProxy)

	if k, err := sec.GetKey("bind_addr"); err == nil {
		snap.BindAddr = k.String()
	}
	if err := intKey(sec, "bind_port", &snap.BindPort); err != nil {
		return err
	}
	if k, err := sec.GetKey("backend_user"); err == nil {
		snap.BackendUser = k.String()
	}
	if k, err := sec.GetKey("backend_password"); err == nil {
		snap.BackendPassword = k.String()
	}
	if err := intKey(sec, "backend_port", &snap.BackendPort); err != nil {
		return err
	}
	if k, err := sec.GetKey("default_server_name"); err == nil {
		snap.DefaultServerName = k.String()
	}
	if err := intKey(sec, "backlog", &snap.Backlog); err != nil {
		return err
	}
	if err := intKey(sec, "server_recvbuf", &snap.ServerRecvBuf); err != nil {
		return err
	}
	if err := intKey(sec, "client_recvbuf", &snap.ClientRecvBuf); err != nil {
		return err
	}
	if err := intKey(sec, "open_file_limit", &snap.OpenFileLimit); err != nil {
		return err
	}
	if k, err := sec.GetKey("inactivity_timeout_secs"); err == nil {
		secs, convErr := strconv.Atoi(k.String())
		if convErr != nil {
			return fmt.Errorf("proxy.inactivity_timeout_secs: invalid integer %q", k.String())
		}
		snap.InactivityTimeout = time.Duration(secs) * time.Second
	}
	if k, err := sec.GetKey("auth_whitelist"); err == nil && k.String() != "" {
		for _, entry := range strings.Split(k.String(), ",") {
			entry = strings.TrimSpace(entry)
			if entry != "" {
				snap.AuthWhitelist = append(snap.AuthWhitelist, entry)
			}
		}
	}
	if k, err := sec.GetKey("auth_header_name"); err == nil {
		snap.AuthHeaderName = k.String()
	}
	if k, err := sec.GetKey("real_ip_header_name"); err == nil {
		snap.RealIPHeaderName = k.String()
	}
	if k, err := sec.GetKey("allow_any_user"); err == nil {
		b, convErr := strconv.ParseBool(k.String())
		if convErr != nil {
			return fmt.Errorf("proxy.allow_any_user: invalid boolean %q", k.String())
		}
		snap.AllowAnyUser = b
	}
	return nil
}

func intKey(sec *ini.Section, name string, dest *int) error {
	k, err := sec.GetKey(name)
	if err != nil {
		return nil
	}
	v, convErr := strconv.Atoi(k.String())
	if convErr != nil {
		return fmt.Errorf("proxy.%s: invalid integer %q", name, k.String())
	}
	*dest = v
	return nil
}

// parseKeyValueSection copies every key=value pair in section name into dest.
// Used for the flat `[servers]` and `[users]` sections.
func parseKeyValueSection(f *ini.File, name string, dest map[string]string) {
	if !f.HasSection(name) {
		return
	}
	for _, k := range f.Section(name).Keys() {
		dest[k.Name()] = k.String()
	}
}

func parseMappingSection(f *ini.File) ([]MappingEntry, error) {
	if !f.HasSection(sectionMapping) {
		return nil, nil
	}
	var entries []MappingEntry
	for _, k := range f.Section(sectionMapping).Keys() {
		fields, err := splitQuotedColonList(k.String())
		if err != nil {
			return nil, fmt.Errorf("mapping %q: %w", k.Name(), err)
		}
		if len(fields) != 2 {
			return nil, fmt.Errorf("mapping %q: expected 2 fields (user-regex, server-name), got %d", k.Name(), len(fields))
		}
		entries = append(entries, MappingEntry{ID: k.Name(), UserPattern: fields[0], ServerName: fields[1]})
	}
	return entries, nil
}

func parseProjectFilterSection(f *ini.File) ([]ProjectFilterEntry, error) {
	if !f.HasSection(sectionProjectFilter) {
		return nil, nil
	}
	var entries []ProjectFilterEntry
	for _, k := range f.Section(sectionProjectFilter).Keys() {
		fields, err := splitQuotedColonList(k.String())
		if err != nil {
			return nil, fmt.Errorf("project-filter %q: %w", k.Name(), err)
		}
		if len(fields) != 2 {
			return nil, fmt.Errorf("project-filter %q: expected 2 fields (user-regex, project-regex), got %d", k.Name(), len(fields))
		}
		entries = append(entries, ProjectFilterEntry{ID: k.Name(), UserPattern: fields[0], ProjectPattern: fields[1]})
	}
	return entries, nil
}

func parseDenySection(f *ini.File) ([]DenyRuleEntry, error) {
	if !f.HasSection(sectionDeny) {
		return nil, nil
	}
	var entries []DenyRuleEntry
	for _, k := range f.Section(sectionDeny).Keys() {
		fields, err := splitQuotedColonList(k.String())
		if err != nil {
			return nil, fmt.Errorf("deny %q: %w", k.Name(), err)
		}
		if len(fields) != 5 {
			return nil, fmt.Errorf("deny %q: expected 5 fields (user, method, url, header, body regexes), got %d", k.Name(), len(fields))
		}
		entries = append(entries, DenyRuleEntry{
			ID:            k.Name(),
			UserPattern:   fields[0],
			MethodPattern: fields[1],
			URLPattern:    fields[2],
			HeaderPattern: fields[3],
			BodyPattern:   fields[4],
		})
	}
	return entries, nil
}

// splitQuotedColonList parses a value of the form `"a":"b":"c"` into its
// unquoted fields. Each field must be wrapped in double quotes; a literal
// `:` or `"` inside a field may be escaped as `\:` / `\"`.
func splitQuotedColonList(value string) ([]string, error) {
	var fields []string
	i := 0
	for i < len(value) {
		if value[i] != '"' {
			return nil, fmt.Errorf("expected opening quote at offset %d in %q", i, value)
		}
		i++
		var field strings.Builder
		closed := false
		for i < len(value) {
			c := value[i]
			if c == '\\' && i+1 < len(value) && (value[i+1] == '"' || value[i+1] == ':' || value[i+1] == '\\') {
				field.WriteByte(value[i+1])
				i += 2
				continue
			}
			if c == '"' {
				closed = true
				i++
				break
			}
			field.WriteByte(c)
			i++
		}
		if !closed {
			return nil, fmt.Errorf("unterminated quoted field in %q", value)
		}
		fields = append(fields, field.String())

		if i == len(value) {
			break
		}
		if value[i] != ':' {
			return nil, fmt.Errorf("expected ':' separator at offset %d in %q", i, value)
		}
		i++
	}
	return fields, nil
}
