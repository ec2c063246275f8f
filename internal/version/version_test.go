package version

import "testing"

func TestVersionDefault(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
}
