package platform

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveStorePath(t *testing.T) {
	t.Parallel()

	tempRoot := os.TempDir()
	devBase := filepath.Join(tempRoot, "moments-dev")

	tests := []struct {
		name      string
		userPath  string
		forceTemp bool
		expected  string
	}{
		{
			name:      "Normal Mode - Current Dir",
			userPath:  ".",
			forceTemp: false,
			expected:  ".",
		},
		{
			name:      "Normal Mode - Empty Path",
			userPath:  "",
			forceTemp: false,
			expected:  ".",
		},
		{
			name:      "Normal Mode - Specific Path",
			userPath:  "/some/path",
			forceTemp: false,
			expected:  "/some/path",
		},
		{
			name:      "Dev Mode - Empty Path",
			userPath:  "",
			forceTemp: true,
			expected:  filepath.Join(devBase, "default"),
		},
		{
			name:      "Dev Mode - Relative Name",
			userPath:  "my-moments",
			forceTemp: true,
			expected:  filepath.Join(devBase, "my-moments"),
		},
		{
			name:      "Dev Mode - Clean Name",
			userPath:  "../bad/path",
			forceTemp: true,
			expected:  filepath.Join(devBase, "path"),
		},
		{
			name:      "Dev Mode - Exception for Temp Dir",
			userPath:  filepath.Join(tempRoot, "already-safe"),
			forceTemp: true,
			expected:  filepath.Join(tempRoot, "already-safe"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ResolveStorePath(tt.userPath, tt.forceTemp); got != tt.expected {
				t.Errorf("ResolveStorePath(%q, %v) = %q, want %q", tt.userPath, tt.forceTemp, got, tt.expected)
			}
		})
	}
}

func TestIsDevRun(t *testing.T) {
	// Test binaries end in .test or live in the temp build cache.
	if !IsDevRun() {
		t.Error("expected IsDevRun to detect the test binary")
	}
}
