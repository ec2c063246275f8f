package policy

import "fmt"

// DenyRuleSpec is the uncompiled form of a deny rule, as read from the
// `[deny]` config section. An empty pattern string matches anything.
type DenyRuleSpec struct {
	ID            string
	UserPattern   string
	MethodPattern string
	URLPattern    string
	HeaderPattern string
	BodyPattern   string
}

// denyRule is a compiled deny rule. All five fields must match for the rule
// to fire.
type denyRule struct {
	id      string
	user    compiledPattern
	method  compiledPattern
	url     compiledPattern
	header  compiledPattern
	body    compiledPattern
}

// DenyRules is the ordered deny-rule table compiled from config.
type DenyRules struct {
	rules []denyRule
}

// NewDenyRules compiles the given rule specs in order.
func NewDenyRules(specs []DenyRuleSpec) (*DenyRules, error) {
	rules := make([]denyRule, 0, len(specs))
	for _, s := range specs {
		r := denyRule{id: s.ID}
		var err error
		if r.user, err = compilePattern(s.UserPattern); err != nil {
			return nil, fmt.Errorf("deny %q: %w", s.ID, err)
		}
		if r.method, err = compilePattern(s.MethodPattern); err != nil {
			return nil, fmt.Errorf("deny %q: %w", s.ID, err)
		}
		if r.url, err = compilePattern(s.URLPattern); err != nil {
			return nil, fmt.Errorf("deny %q: %w", s.ID, err)
		}
		if r.header, err = compilePattern(s.HeaderPattern); err != nil {
			return nil, fmt.Errorf("deny %q: %w", s.ID, err)
		}
		if r.body, err = compilePattern(s.BodyPattern); err != nil {
			return nil, fmt.Errorf("deny %q: %w", s.ID, err)
		}
		rules = append(rules, r)
	}
	return &DenyRules{rules: rules}, nil
}

// DenyInput bundles the five fields a deny rule is evaluated against.
// HeaderBlock is the request's headers rendered as the original bytes
// (case and order preserved). Body is whatever of the request body has
// been buffered so far, subject to the body-match ceiling; matching
// against a partial body is documented imprecision.
type DenyInput struct {
	Username    string
	Method      string
	RequestTarget string
	HeaderBlock string
	Body        string
}

// Evaluate checks the deny-rule table in order and returns the ID of the
// first rule whose five fields all match in. ok is false if no rule fires.
func (d *DenyRules) Evaluate(in DenyInput) (ruleID string, ok bool) {
	for _, r := range d.rules {
		if r.user.match(in.Username) &&
			r.method.match(in.Method) &&
			r.url.match(in.RequestTarget) &&
			r.header.match(in.HeaderBlock) &&
			r.body.match(in.Body) {
			return r.id, true
		}
	}
	return "", false
}
