package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	safeDir := t.TempDir()

	inside := filepath.Join(safeDir, "backup.db")
	if err := ValidatePathWithinDirectory(inside, safeDir); err != nil {
		t.Errorf("expected path inside safe dir to validate, got %v", err)
	}

	nested := filepath.Join(safeDir, "exports", "backup.db")
	if err := ValidatePathWithinDirectory(nested, safeDir); err != nil {
		t.Errorf("expected nested path to validate, got %v", err)
	}

	escaped := filepath.Join(safeDir, "..", "backup.db")
	if err := ValidatePathWithinDirectory(escaped, safeDir); err == nil {
		t.Error("expected traversal via .. to be rejected")
	}

	if err := ValidatePathWithinDirectory("/etc/passwd", safeDir); err == nil {
		t.Error("expected absolute path outside safe dir to be rejected")
	}
}

func TestValidatePathWithinDirectorySymlinkEscape(t *testing.T) {
	safeDir := t.TempDir()
	outside := t.TempDir()

	link := filepath.Join(safeDir, "link")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	// The path lexically sits under safeDir but resolves outside it.
	if err := ValidatePathWithinDirectory(filepath.Join(link, "backup.db"), safeDir); err == nil {
		t.Error("expected symlinked escape to be rejected")
	}
}

func TestValidateExportPath(t *testing.T) {
	if err := ValidateExportPath(filepath.Join(os.TempDir(), "warehouse-backup.db")); err != nil {
		t.Errorf("expected temp dir path to validate, got %v", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := ValidateExportPath(filepath.Join(cwd, "warehouse-backup.db")); err != nil {
		t.Errorf("expected working dir path to validate, got %v", err)
	}

	if err := ValidateExportPath("/etc/warehouse-backup.db"); err == nil {
		t.Error("expected path outside allowed dirs to be rejected")
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"nightly", "nightly"},
		{"nightly backup", "nightly_backup"},
		{"../../etc/passwd", "etc_passwd"},
		{"réport détat", "r_port_d_tat"},
		{"...", "unknown"},
		{"", "unknown"},
		{"weekly//backup", "weekly_backup"},
	}
	for _, tc := range cases {
		if got := SanitizeFilename(tc.in); got != tc.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	long := strings.Repeat("x", 300)
	if got := SanitizeFilename(long); len(got) > 128 {
		t.Errorf("expected sanitized name capped at 128 chars, got %d", len(got))
	}
}
