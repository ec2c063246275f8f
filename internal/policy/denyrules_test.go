package policy

import "testing"

func TestDenyRules_AllFiveMustMatch(t *testing.T) {
	d, err := NewDenyRules([]DenyRuleSpec{
		{
			ID:            "no-delete",
			UserPattern:   "",
			MethodPattern: "^DELETE$",
			URLPattern:    "^/v2/projects/.*$",
			HeaderPattern: "",
			BodyPattern:   "",
		},
	})
	if err != nil {
		t.Fatalf("NewDenyRules() error = %v", err)
	}

	tests := []struct {
		name   string
		in     DenyInput
		wantID string
		wantOK bool
	}{
		{
			name:   "all five match",
			in:     DenyInput{Username: "alice", Method: "DELETE", RequestTarget: "/v2/projects/abc", HeaderBlock: "Host: x\r\n", Body: ""},
			wantID: "no-delete",
			wantOK: true,
		},
		{
			name:   "method does not match",
			in:     DenyInput{Username: "alice", Method: "GET", RequestTarget: "/v2/projects/abc"},
			wantOK: false,
		},
		{
			name:   "url does not match",
			in:     DenyInput{Username: "alice", Method: "DELETE", RequestTarget: "/v2/version"},
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := d.Evaluate(tt.in)
			if ok != tt.wantOK || (ok && id != tt.wantID) {
				t.Errorf("Evaluate() = (%q, %v), want (%q, %v)", id, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestDenyRules_EmptyPatternMatchesAnything(t *testing.T) {
	d, err := NewDenyRules([]DenyRuleSpec{
		{ID: "user-specific", UserPattern: "^intruder$"},
	})
	if err != nil {
		t.Fatalf("NewDenyRules() error = %v", err)
	}

	_, ok := d.Evaluate(DenyInput{Username: "intruder", Method: "GET", RequestTarget: "/anything"})
	if !ok {
		t.Error("expected empty method/url/header/body patterns to match anything")
	}

	_, ok = d.Evaluate(DenyInput{Username: "alice", Method: "GET", RequestTarget: "/anything"})
	if ok {
		t.Error("expected non-matching username to not fire the rule")
	}
}

func TestDenyRules_NoRules(t *testing.T) {
	d, err := NewDenyRules(nil)
	if err != nil {
		t.Fatalf("NewDenyRules(nil) error = %v", err)
	}
	if _, ok := d.Evaluate(DenyInput{Username: "alice", Method: "GET", RequestTarget: "/"}); ok {
		t.Error("empty deny table should never fire")
	}
}
