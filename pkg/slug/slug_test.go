package slug

import "testing"

func TestMake(t *testing.T) {
	for _, tc := range []struct {
		name     string
		expected string
	}{
		{"Null Pointers", "null-pointers"},
		{"  rm -rf /  ", "rm-rf"},
		{"Team #42!!", "team-42"},
		{"", ""},
	} {
		if got := Make(tc.name); got != tc.expected {
			t.Errorf("Make(%q) = %q, expected %q", tc.name, got, tc.expected)
		}
	}
}
