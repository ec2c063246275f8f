package policy

import "fmt"

// MappingRule associates an authenticated-username regex with the name of
// the backend server that requests from matching users are routed to.
type MappingRule struct {
	ID         string
	userRegex  compiledPattern
	ServerName string
}

// Mapping is the ordered, first-match-wins table of username-to-backend
// rules compiled from the `[mapping]` config section.
type Mapping struct {
	rules []MappingRule
}

// NewMapping compiles the given rule specs in order. entries with an
// uncompilable regex return an error identifying the offending rule ID;
// config load treats this as fatal.
func NewMapping(specs []MappingSpec) (*Mapping, error) {
	rules := make([]MappingRule, 0, len(specs))
	for _, s := range specs {
		cp, err := compilePattern(s.UserPattern)
		if err != nil {
			return nil, fmt.Errorf("mapping %q: %w", s.ID, err)
		}
		rules = append(rules, MappingRule{ID: s.ID, userRegex: cp, ServerName: s.ServerName})
	}
	return &Mapping{rules: rules}, nil
}

// MappingSpec is the uncompiled form of a mapping rule, as read from config.
type MappingSpec struct {
	ID          string
	UserPattern string
	ServerName  string
}

// Resolve evaluates the mapping table in order against username and returns
// the first matching server name. ok is false if no rule matched.
func (m *Mapping) Resolve(username string) (serverName string, ok bool) {
	for _, r := range m.rules {
		if r.userRegex.match(username) {
			return r.ServerName, true
		}
	}
	return "", false
}
