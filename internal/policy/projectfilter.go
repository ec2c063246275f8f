package policy

import "fmt"

// ProjectFilterRule associates an authenticated-username regex with the
// project-name regex that `GET …/projects` responses are filtered by for
// matching users.
type ProjectFilterRule struct {
	ID            string
	userRegex     compiledPattern
	ProjectRegex  compiledPattern
}

// ProjectFilterSpec is the uncompiled form, as read from the
// `[project-filter]` config section.
type ProjectFilterSpec struct {
	ID            string
	UserPattern   string
	ProjectPattern string
}

// ProjectFilters is the ordered, first-match-wins table of
// username-to-project-name-regex rules.
type ProjectFilters struct {
	rules []ProjectFilterRule
}

// NewProjectFilters compiles the given rule specs in order.
func NewProjectFilters(specs []ProjectFilterSpec) (*ProjectFilters, error) {
	rules := make([]ProjectFilterRule, 0, len(specs))
	for _, s := range specs {
		ucp, err := compilePattern(s.UserPattern)
		if err != nil {
			return nil, fmt.Errorf("project-filter %q: %w", s.ID, err)
		}
		pcp, err := compilePattern(s.ProjectPattern)
		if err != nil {
			return nil, fmt.Errorf("project-filter %q: %w", s.ID, err)
		}
		rules = append(rules, ProjectFilterRule{ID: s.ID, userRegex: ucp, ProjectRegex: pcp})
	}
	return &ProjectFilters{rules: rules}, nil
}

// Resolve returns the compiled project-name regex that applies to username,
// evaluating the table in order. ok is false if the user has no matching
// entry, meaning the project-list filter does not apply to their requests.
func (p *ProjectFilters) Resolve(username string) (project *compiledPattern, ok bool) {
	for i := range p.rules {
		if p.rules[i].userRegex.match(username) {
			return &p.rules[i].ProjectRegex, true
		}
	}
	return nil, false
}

// MatchProject reports whether name matches the resolved project regex.
func MatchProject(re *compiledPattern, name string) bool {
	return re.match(name)
}
