package config

import "testing"

const sampleINI = `
[proxy]
bind_addr = 0.0.0.0
bind_port = 14080
backend_user = admin
backend_password = password
backend_port = 3080
default_server_name = gns3-1
auth_whitelist = 10.0.0.0/24, 127.0.0.1
auth_header_name = X-Auth-Username
allow_any_user = false

[servers]
gns3-1 = 127.0.0.1
gns3-2 = 192.168.1.10

[users]
alice = wonder
bob = builder

[mapping]
m1 = "alice":"gns3-1"
m2 = "bob":"gns3-2"

[project-filter]
pf1 = "alice":"alice-.*"

[deny]
d1 = "":"DELETE":"/v2/projects/.*":"":""
`

func TestParseSnapshot_Sections(t *testing.T) {
	snap, err := parseSnapshot([]byte(sampleINI))
	if err != nil {
		t.Fatalf("parseSnapshot() error = %v", err)
	}

	if snap.BindPort != 14080 {
		t.Errorf("BindPort = %d, want 14080", snap.BindPort)
	}
	if snap.BackendUser != "admin" || snap.BackendPassword != "password" {
		t.Errorf("backend credentials = %q/%q, want admin/password", snap.BackendUser, snap.BackendPassword)
	}
	if snap.DefaultServerName != "gns3-1" {
		t.Errorf("DefaultServerName = %q, want gns3-1", snap.DefaultServerName)
	}
	if len(snap.AuthWhitelist) != 2 {
		t.Fatalf("AuthWhitelist = %v, want 2 entries", snap.AuthWhitelist)
	}

	if snap.Servers["gns3-1"] != "127.0.0.1" {
		t.Errorf("Servers[gns3-1] = %q, want 127.0.0.1", snap.Servers["gns3-1"])
	}
	if snap.Users["alice"] != "wonder" {
		t.Errorf("Users[alice] = %q, want wonder", snap.Users["alice"])
	}

	if len(snap.Mappings) != 2 {
		t.Fatalf("Mappings = %v, want 2 entries", snap.Mappings)
	}
	if snap.Mappings[0].UserPattern != "alice" || snap.Mappings[0].ServerName != "gns3-1" {
		t.Errorf("Mappings[0] = %+v, want alice/gns3-1", snap.Mappings[0])
	}

	if len(snap.ProjectFilters) != 1 || snap.ProjectFilters[0].ProjectPattern != "alice-.*" {
		t.Errorf("ProjectFilters = %+v", snap.ProjectFilters)
	}

	if len(snap.DenyRules) != 1 {
		t.Fatalf("DenyRules = %v, want 1 entry", snap.DenyRules)
	}
	d := snap.DenyRules[0]
	if d.MethodPattern != "DELETE" || d.URLPattern != "/v2/projects/.*" || d.UserPattern != "" {
		t.Errorf("DenyRules[0] = %+v", d)
	}
}

func TestSplitQuotedColonList(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{"two fields", `"alice":"gns3-1"`, []string{"alice", "gns3-1"}, false},
		{"empty field", `"":"DELETE"`, []string{"", "DELETE"}, false},
		{"escaped colon", `"a\:b":"c"`, []string{"a:b", "c"}, false},
		{"missing opening quote", `alice":"gns3-1"`, nil, true},
		{"unterminated quote", `"alice`, nil, true},
		{"missing separator", `"alice""gns3-1"`, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := splitQuotedColonList(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("splitQuotedColonList(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("splitQuotedColonList(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("field %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseMappingSection_WrongFieldCount(t *testing.T) {
	_, err := parseSnapshot([]byte("[mapping]\nm1 = \"alice\"\n"))
	if err == nil {
		t.Error("expected error for mapping entry with wrong field count")
	}
}
