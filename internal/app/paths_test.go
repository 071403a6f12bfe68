package app

import (
	"path/filepath"
	"testing"
)

func TestExpandPath(t *testing.T) {
	home := "/home/user"
	current := "/srv/data"

	testCases := []struct {
		input    string
		expected string
	}{
		{"", current},
		{"   ", current},
		{"~", home},
		{"~/docs", filepath.Join(home, "docs")},
		{"~/docs/../music", filepath.Join(home, "music")},
		{"/etc", "/etc"},
		{"/etc/../var", "/var"},
		{"sub", filepath.Join(current, "sub")},
		{"./sub", filepath.Join(current, "sub")},
		{"..", "/srv"},
		{"../other", "/srv/other"},
	}

	for _, tc := range testCases {
		if got := ExpandPath(home, current, tc.input); got != tc.expected {
			t.Errorf("ExpandPath(%q): expected %q, got %q", tc.input, tc.expected, got)
		}
	}
}

func TestMenuProviderSelection(t *testing.T) {
	m := NewMenuProvider()
	if m == nil {
		t.Fatal("no menu provider selected")
	}
	if m.Name() == "" {
		t.Error("provider has no name")
	}
}
