// Package policy implements the ordered regex tables and IP whitelist that
// back gns3-proxy's authorization decisions: username-to-backend mapping,
// project-list filter selection, and the deny-rule list.
package policy

import (
	"fmt"
	"regexp"
)

// compiledPattern holds a compiled regex alongside the source string it was
// compiled from, so log lines and rule IDs can report the original text.
type compiledPattern struct {
	regex   *regexp.Regexp
	pattern string
}

// compilePattern compiles a single pattern. An empty pattern is permitted by
// the config format (empty regex strings match anything, per the deny-rule
// field semantics) and compiles to a regex that matches any string.
func compilePattern(p string) (compiledPattern, error) {
	if p == "" {
		re, err := regexp.Compile(".*")
		if err != nil {
			return compiledPattern{}, err
		}
		return compiledPattern{regex: re, pattern: p}, nil
	}
	re, err := regexp.Compile(p)
	if err != nil {
		return compiledPattern{}, fmt.Errorf("compile pattern %q: %w", p, err)
	}
	return compiledPattern{regex: re, pattern: p}, nil
}

func (c compiledPattern) match(s string) bool {
	return c.regex.MatchString(s)
}
