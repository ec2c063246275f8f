package policy

import "testing"

func TestMapping_Resolve_FirstMatchWins(t *testing.T) {
	m, err := NewMapping([]MappingSpec{
		{ID: "m1", UserPattern: "^alice$", ServerName: "gns3-1"},
		{ID: "m2", UserPattern: "^(alice|bob)$", ServerName: "gns3-2"},
	})
	if err != nil {
		t.Fatalf("NewMapping() error = %v", err)
	}

	tests := []struct {
		name     string
		username string
		wantName string
		wantOK   bool
	}{
		{"alice matches first rule", "alice", "gns3-1", true},
		{"bob matches second rule", "bob", "gns3-2", true},
		{"carol matches nothing", "carol", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.Resolve(tt.username)
			if ok != tt.wantOK || got != tt.wantName {
				t.Errorf("Resolve(%q) = (%q, %v), want (%q, %v)", tt.username, got, ok, tt.wantName, tt.wantOK)
			}
		})
	}
}

func TestMapping_InvalidRegexErrors(t *testing.T) {
	_, err := NewMapping([]MappingSpec{
		{ID: "bad", UserPattern: "(unclosed", ServerName: "gns3-1"},
	})
	if err == nil {
		t.Error("expected error for uncompilable regex, got nil")
	}
}

func TestMapping_Empty(t *testing.T) {
	m, err := NewMapping(nil)
	if err != nil {
		t.Fatalf("NewMapping(nil) error = %v", err)
	}
	if _, ok := m.Resolve("anyone"); ok {
		t.Error("empty mapping should never resolve")
	}
}
